package soundnet

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Dense maps pooled channel features to class scores.
//
// Given a batch of rows x, it computes x*W^T + b.
type Dense struct {
	In  int
	Out int

	// Weights is stored row-major with one row of In
	// entries per output.
	Weights *anydiff.Var
	Biases  *anydiff.Var
}

// NewDense creates a Dense layer whose weights and biases
// are drawn uniformly from [-1/sqrt(in), 1/sqrt(in)).
func NewDense(c anyvec.Creator, in, out int) *Dense {
	d := NewDenseZero(c, in, out)
	bound := 1 / math.Sqrt(float64(in))
	for _, v := range d.Parameters() {
		uniformFill(v.Vector, bound)
	}
	return d
}

// NewDenseZero creates a Dense layer with all parameters
// set to zero.
func NewDenseZero(c anyvec.Creator, in, out int) *Dense {
	return &Dense{
		In:      in,
		Out:     out,
		Weights: anydiff.NewVar(c.MakeVector(in * out)),
		Biases:  anydiff.NewVar(c.MakeVector(out)),
	}
}

// Apply projects n packed input rows.
func (d *Dense) Apply(in anydiff.Res, n int) anydiff.Res {
	if got := in.Output().Len(); got != n*d.In {
		panic(fmt.Sprintf("dense input: expected %d values, got %d", n*d.In, got))
	}
	product := anydiff.MatMul(false, true,
		&anydiff.Matrix{Data: in, Rows: n, Cols: d.In},
		&anydiff.Matrix{Data: d.Weights, Rows: d.Out, Cols: d.In})
	return anydiff.AddRepeated(product.Data, d.Biases)
}

// Parameters returns the weights followed by the biases.
func (d *Dense) Parameters() []*anydiff.Var {
	return []*anydiff.Var{d.Weights, d.Biases}
}

func uniformFill(v anyvec.Vector, bound float64) {
	c := v.Creator()
	anyvec.Rand(v, anyvec.Uniform, nil)
	v.Scale(c.MakeNumeric(2 * bound))
	v.AddScalar(c.MakeNumeric(-bound))
}
