// Package soundnet provides the building blocks for
// classifying raw audio waveforms with neural networks.
//
// Convolutional layers live in the soundconv sub-package,
// the UrbanSound8K-style dataset in soundset, optimizers
// in soundsgd, batching and evaluation in soundff, and the
// epoch loop in soundtrain.
package soundnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// NumClasses is the number of sound classes the
// classifier distinguishes between.
const NumClasses = 10

// A Parameterizer is anything with learnable variables.
//
// The parameters of a Parameterizer must be in the same
// order every time Parameters() is called.
type Parameterizer interface {
	Parameters() []*anydiff.Var
}

// A Layer is a composable computation unit for use in a
// neural network.
//
// A Layer's Apply method is inherently batched.
// The input's length must be divisible by the batch size,
// since the batch size indicates how many equally-long
// vectors are packed into the input vector.
type Layer interface {
	Apply(in anydiff.Res, batchSize int) anydiff.Res
}

// A Net evaluates a list of layers, one after another.
//
// It is the single routine used to run a fixed stack of
// stages, such as the one built by soundconv.NewClassifier.
type Net []Layer

// Apply applies the network to a batch.
// If the network contains no layers, the input is
// returned as output.
func (n Net) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	for _, l := range n {
		in = l.Apply(in, batchSize)
	}
	return in
}

// Parameters returns the parameters of the network.
//
// Every layer which implements Parameterizer will have
// its parameters added to the slice.
// Parameters are ordered from the first layer onwards.
func (n Net) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range n {
		if p, ok := x.(Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SetMode switches every layer that implements
// ModeSetter into the given mode.
func (n Net) SetMode(m Mode) {
	for _, x := range n {
		if s, ok := x.(ModeSetter); ok {
			s.SetMode(m)
		}
	}
}

// Predictions returns the index of the largest component
// of each of the n rows packed into out.
func Predictions(out anyvec.Vector, n int) []int {
	if n == 0 {
		return nil
	}
	if out.Len()%n != 0 {
		panic("batch size must divide output length")
	}
	cols := out.Len() / n
	res := make([]int, n)
	for i := range res {
		res[i] = anyvec.MaxIndex(out.Slice(i*cols, (i+1)*cols))
	}
	return res
}

// Float64 converts a numeric from an anyvec.Creator into
// a float64.
// Unknown numeric types yield 0.
func Float64(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
