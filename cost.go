package soundnet

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Cost measures how wrong a batch of network outputs is,
// given the true class of every sample.
//
// The actual outputs are packed row after row, one row per
// label, and the result has one cost per row.
type Cost interface {
	Cost(labels []int, actual anydiff.Res) anydiff.Res
}

// NLL is the negative log-likelihood cost.
//
// The actual outputs must be log-probabilities, such as
// those produced by LogSoftmax.
// The cost of a row is the negated log-probability it
// assigns to its label.
type NLL struct{}

// Cost picks out the labeled entry of every row and
// negates it.
// It panics if a label is not a valid column index.
func (NLL) Cost(labels []int, actual anydiff.Res) anydiff.Res {
	c := actual.Output().Creator()
	if len(labels) == 0 {
		if actual.Output().Len() != 0 {
			panic("no labels for a non-empty output")
		}
		return anydiff.NewConst(c.MakeVector(0))
	}
	if actual.Output().Len()%len(labels) != 0 {
		panic("label count must divide output length")
	}
	cols := actual.Output().Len() / len(labels)
	table := make([]int, len(labels))
	for i, label := range labels {
		if label < 0 || label >= cols {
			panic(fmt.Sprintf("label %d out of range [0, %d)", label, cols))
		}
		table[i] = i*cols + label
	}

	gather := c.MakeMapper(actual.Output().Len(), table)
	out := c.MakeVector(len(labels))
	gather.Map(actual.Output(), out)
	out.Scale(c.MakeNumeric(-1))
	return &nllRes{In: actual, Gather: gather, OutVec: out}
}

type nllRes struct {
	In     anydiff.Res
	Gather anyvec.Mapper
	OutVec anyvec.Vector
}

func (n *nllRes) Output() anyvec.Vector {
	return n.OutVec
}

func (n *nllRes) Vars() anydiff.VarSet {
	return n.In.Vars()
}

func (n *nllRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	u.Scale(u.Creator().MakeNumeric(-1))
	downstream := u.Creator().MakeVector(n.Gather.InSize())
	n.Gather.MapTranspose(u, downstream)
	n.In.Propagate(downstream, g)
}
