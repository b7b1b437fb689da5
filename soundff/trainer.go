// Package soundff trains and evaluates feed-forward sound
// classifiers.
package soundff

import (
	"errors"
	"runtime"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/soundnet"
	"github.com/unixpickle/soundnet/soundsgd"
)

// A Batch stores packed inputs along with one label per
// sample.
type Batch struct {
	Inputs *anydiff.Const
	Labels []int
	Num    int
}

// A Trainer can construct batches, compute gradients, and
// tally up costs for feed-forward neural networks.
type Trainer struct {
	Net    soundnet.Layer
	Cost   soundnet.Cost
	Params []*anydiff.Var

	// Average indicates whether or not the total cost should
	// be averaged before computing gradients.
	Average bool

	// After every gradient computation, LastCost is set to
	// the cost from the batch.
	LastCost float64

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for fetching samples.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
//
// Samples are loaded concurrently, but the batch is
// always packed in list order.
func (t *Trainer) Fetch(s soundsgd.SampleList) (soundsgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}

	l := s.(SampleList)
	ins := make([]anyvec.Vector, l.Len())
	labels := make([]int, l.Len())

	idxChan := make(chan int, l.Len())
	for i := 0; i < l.Len(); i++ {
		idxChan <- i
	}
	close(idxChan)

	maxGos := t.MaxGos
	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				sample, err := l.GetSample(i)
				if err != nil {
					errChan <- essentials.AddCtx("fetch batch", err)
					return
				}
				ins[i] = sample.Input
				labels[i] = sample.Label
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	return &Batch{
		Inputs: anydiff.NewConst(ins[0].Creator().Concat(ins...)),
		Labels: labels,
		Num:    l.Len(),
	}, nil
}

// TotalCost computes the total cost for the *Batch.
func (t *Trainer) TotalCost(batch soundsgd.Batch) anydiff.Res {
	b := batch.(*Batch)
	outRes := t.Net.Apply(b.Inputs, b.Num)
	cost := t.Cost.Cost(b.Labels, outRes)
	total := anydiff.Sum(cost)
	if t.Average {
		divisor := 1 / float64(cost.Output().Len())
		return anydiff.Scale(total, total.Output().Creator().MakeNumeric(divisor))
	}
	return total
}

// Gradient computes the gradient of the batch's cost with
// respect to t.Params, starting from a zero gradient.
// It also sets t.LastCost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b soundsgd.Batch) anydiff.Grad {
	grad := anydiff.Grad{}
	for _, p := range t.Params {
		grad[p] = p.Vector.Creator().MakeVector(p.Vector.Len())
	}

	cost := t.TotalCost(b)
	t.LastCost = soundnet.Float64(anyvec.Sum(cost.Output()))

	upstream := cost.Output().Creator().MakeVector(1)
	upstream.AddScalar(upstream.Creator().MakeNumeric(1))
	cost.Propagate(upstream, grad)

	return grad
}
