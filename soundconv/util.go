package soundconv

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// negMeanRows computes the negative of the mean of the
// rows in a row-major matrix.
//
// For a depth-minor batch of tensors with cols channels,
// this is the negated per-channel mean.
func negMeanRows(in anydiff.Res, cols int) anydiff.Res {
	if in.Output().Len()%cols != 0 {
		panic("column count must divide input size")
	}
	rows := in.Output().Len() / cols
	scaler := in.Output().Creator().MakeNumeric(-1 / float64(rows))
	out := anyvec.SumRows(in.Output().Copy(), cols)
	out.Scale(scaler)
	return &meanRowsRes{
		In:     in,
		Scaler: scaler,
		Out:    out,
	}
}

type meanRowsRes struct {
	In     anydiff.Res
	Scaler anyvec.Numeric
	Out    anyvec.Vector
}

func (m *meanRowsRes) Output() anyvec.Vector {
	return m.Out
}

func (m *meanRowsRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *meanRowsRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	u.Scale(m.Scaler)
	downstream := u.Creator().MakeVector(m.In.Output().Len())
	anyvec.AddRepeated(downstream, u)
	m.In.Propagate(downstream, g)
}

// meanSquareRows is like negMeanRows, but it squares the
// entries and does not negate the result.
func meanSquareRows(in anydiff.Res, cols int) anydiff.Res {
	if in.Output().Len()%cols != 0 {
		panic("column count must divide input size")
	}
	rows := in.Output().Len() / cols
	c := in.Output().Creator()
	squares := in.Output().Copy()
	squares.Mul(in.Output())
	out := anyvec.SumRows(squares, cols)
	out.Scale(c.MakeNumeric(1 / float64(rows)))
	return &meanSquareRes{
		In:     in,
		Scaler: c.MakeNumeric(2 / float64(rows)),
		Out:    out,
	}
}

type meanSquareRes struct {
	In     anydiff.Res
	Scaler anyvec.Numeric
	Out    anyvec.Vector
}

func (m *meanSquareRes) Output() anyvec.Vector {
	return m.Out
}

func (m *meanSquareRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *meanSquareRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	u.Scale(m.Scaler)
	downstream := u.Creator().MakeVector(m.In.Output().Len())
	anyvec.AddRepeated(downstream, u)
	downstream.Mul(m.In.Output())
	m.In.Propagate(downstream, g)
}

// batchMap applies a mapper to every packed input in a
// batch and concatenates the results.
func batchMap(m anyvec.Mapper, in anyvec.Vector) anyvec.Vector {
	n := in.Len() / m.InSize()
	outs := make([]anyvec.Vector, n)
	for i := range outs {
		outs[i] = in.Creator().MakeVector(m.OutSize())
		m.Map(in.Slice(i*m.InSize(), (i+1)*m.InSize()), outs[i])
	}
	return in.Creator().Concat(outs...)
}

// batchMapTranspose is like batchMap, but it uses the
// transpose of the mapper.
func batchMapTranspose(m anyvec.Mapper, in anyvec.Vector) anyvec.Vector {
	n := in.Len() / m.OutSize()
	outs := make([]anyvec.Vector, n)
	for i := range outs {
		outs[i] = in.Creator().MakeVector(m.InSize())
		m.MapTranspose(in.Slice(i*m.OutSize(), (i+1)*m.OutSize()), outs[i])
	}
	return in.Creator().Concat(outs...)
}
