package soundconv

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// MeanPool averages each channel over the entire temporal
// dimension, producing a tensor of width 1.
type MeanPool struct {
	InputWidth int
	InputDepth int

	mapperLock sync.Mutex
	mapper     anyvec.Mapper
}

// OutputWidth always returns 1.
func (m *MeanPool) OutputWidth() int {
	return 1
}

// OutputDepth returns the depth of the output tensor.
func (m *MeanPool) OutputDepth() int {
	return m.InputDepth
}

// Apply applies the pooling layer.
func (m *MeanPool) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	mapper := m.getMapper(in.Output().Creator())
	if in.Output().Len() != batchSize*mapper.OutSize() {
		panic("incorrect input size")
	}
	out := batchMapTranspose(mapper, in.Output())
	scaler := out.Creator().MakeNumeric(1 / float64(m.InputWidth))
	out.Scale(scaler)
	return &meanPoolRes{
		In:     in,
		Mapper: mapper,
		Scaler: scaler,
		OutVec: out,
	}
}

// getMapper creates a mapper from the pooled channels to
// every time step of the input.
func (m *MeanPool) getMapper(c anyvec.Creator) anyvec.Mapper {
	m.mapperLock.Lock()
	defer m.mapperLock.Unlock()
	if m.mapper != nil && m.mapper.Creator() == c {
		return m.mapper
	}
	table := make([]int, m.InputWidth*m.InputDepth)
	for i := range table {
		table[i] = i % m.InputDepth
	}
	m.mapper = c.MakeMapper(m.InputDepth, table)
	return m.mapper
}

type meanPoolRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	Scaler anyvec.Numeric
	OutVec anyvec.Vector
}

func (m *meanPoolRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *meanPoolRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *meanPoolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	// Scaling u first is more efficient.
	u.Scale(m.Scaler)

	m.In.Propagate(batchMap(m.Mapper, u), g)
}
