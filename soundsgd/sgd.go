// Package soundsgd provides stochastic gradient descent
// for training sound classifiers one epoch at a time.
package soundsgd

import (
	"errors"
	"math/rand"

	"github.com/unixpickle/anydiff"
)

// ErrStopped is returned by RunEpoch when it is stopped
// before the end of the epoch.
var ErrStopped = errors.New("training stopped")

// SGD performs stochastic gradient descent.
type SGD struct {
	Fetcher Fetcher

	// Gradienter computes initial, untransformed gradients
	// for each mini-batch.
	Gradienter Gradienter

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer Transformer

	// Samples is the list of training samples.
	// It is re-shuffled at the start of every epoch.
	Samples SampleList

	// Rater determines the learning rate for each step.
	Rater Rater

	// StatusFunc, if non-nil, is called after every step
	// with the index of the mini-batch in the epoch.
	StatusFunc func(batchIdx int, batch Batch)

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used at
	// every iteration.
	BatchSize int

	// Rand, if non-nil, is used for shuffling.
	// Using a seeded source makes the order of samples
	// reproducible.
	Rand *rand.Rand

	// NumProcessed keeps track of the number of samples
	// that have been passed to Gradienter so far.
	// It is used to compute the epoch for Rater.
	NumProcessed int
}

// Epoch returns the number of epochs completed so far.
// It may be fractional.
func (s *SGD) Epoch() float64 {
	if s.Samples.Len() == 0 {
		return 0
	}
	return float64(s.NumProcessed) / float64(s.Samples.Len())
}

// RunEpoch shuffles the samples and performs one step per
// mini-batch.
//
// If done is closed, RunEpoch returns ErrStopped before
// the next step.
// Fetch errors are returned as-is and end the epoch.
//
// An empty sample list results in no steps.
func (s *SGD) RunEpoch(done <-chan struct{}) error {
	if s.Samples.Len() == 0 {
		return nil
	}
	Shuffle(s.Samples, s.Rand)

	stop := make(chan struct{})
	defer close(stop)
	batches := s.prefetch(stop)

	var batchIdx int
	for res := range batches {
		if res.Err != nil {
			return res.Err
		}
		select {
		case <-done:
			return ErrStopped
		default:
		}

		grad := s.Gradienter.Gradient(res.Batch)
		if s.Transformer != nil {
			grad = s.Transformer.Transform(grad)
		}
		scaleGradient(grad, -s.Rater.Rate(s.Epoch()))
		grad.AddToVars()

		s.NumProcessed += res.Size
		if s.StatusFunc != nil {
			s.StatusFunc(batchIdx, res.Batch)
		}
		batchIdx++
	}
	return nil
}

type fetchResult struct {
	Batch Batch
	Size  int
	Err   error
}

// prefetch fetches the batches of an epoch in order, one
// batch ahead of the consumer.
func (s *SGD) prefetch(stop <-chan struct{}) <-chan fetchResult {
	var lists []SampleList
	for i := 0; i < s.Samples.Len(); {
		bs := s.batchSize(s.Samples.Len() - i)
		lists = append(lists, s.Samples.Slice(i, i+bs))
		i += bs
	}

	res := make(chan fetchResult, 1)
	go func() {
		defer close(res)
		for _, list := range lists {
			select {
			case <-stop:
				return
			default:
			}
			batch, err := s.Fetcher.Fetch(list)
			select {
			case res <- fetchResult{Batch: batch, Size: list.Len(), Err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return res
}

func (s *SGD) batchSize(remaining int) int {
	if s.BatchSize == 0 || s.BatchSize > remaining {
		return remaining
	}
	return s.BatchSize
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}
