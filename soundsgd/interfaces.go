package soundsgd

import "github.com/unixpickle/anydiff"

// A Transformer rewrites a raw gradient into an update
// direction, as Adam does.
//
// Every call after the first must pass a gradient over
// the same set of variables.
// Transform may reuse its argument for the result.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// A Batch is whatever a Fetcher loads for one step.
// SGD never looks inside it; it only hands it from the
// Fetcher to the Gradienter.
type Batch interface{}

// A Fetcher loads the Batch for a slice of samples.
//
// Fetch runs on a background goroutine, overlapping the
// gradient step for the previous batch.
type Fetcher interface {
	Fetch(s SampleList) (Batch, error)
}

// A Gradienter computes the cost gradient of a Batch.
type Gradienter interface {
	Gradient(b Batch) anydiff.Grad
}

// A Rater picks the learning rate for a (possibly
// fractional) epoch count.
type Rater interface {
	Rate(epoch float64) float64
}

// A SampleList is an ordered, shuffleable list of samples.
type SampleList interface {
	Len() int
	Swap(i, j int)

	// Slice returns a new list holding [i, j), so that
	// later swaps on either list do not affect the other.
	Slice(i, j int) SampleList
}
