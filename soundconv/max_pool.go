package soundconv

import (
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// MaxPool is a 1-D max-pooling layer whose stride equals
// its span.
//
// If the span doesn't divide the input width, the time
// steps in the incomplete trailing window are ignored.
type MaxPool struct {
	Span int

	InputWidth int
	InputDepth int

	im2colLock sync.Mutex
	im2col     anyvec.Mapper
}

// OutputWidth returns the width of the output tensor.
func (m *MaxPool) OutputWidth() int {
	return m.InputWidth / m.Span
}

// OutputDepth returns the depth of the output tensor.
func (m *MaxPool) OutputDepth() int {
	return m.InputDepth
}

// Apply applies the layer to a batch of input tensors.
func (m *MaxPool) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	im2col := m.getIm2Col(in.Output().Creator())

	imgSize := m.InputWidth * m.InputDepth
	if in.Output().Len() != batchSize*imgSize {
		panic("incorrect input size")
	}

	im2ColTemp := in.Output().Creator().MakeVector(im2col.OutSize())

	maxResults := make([]anyvec.Vector, batchSize)
	maxMaps := make([]anyvec.Mapper, batchSize)
	for i := 0; i < batchSize; i++ {
		im2col.Map(in.Output().Slice(imgSize*i, imgSize*(i+1)), im2ColTemp)
		mapping := anyvec.MapMax(im2ColTemp, m.Span)
		output := in.Output().Creator().MakeVector(mapping.OutSize())
		mapping.Map(im2ColTemp, output)
		maxMaps[i] = mapping
		maxResults[i] = output
	}

	return &maxPoolRes{
		Im2Col: im2col,
		In:     in,
		OutVec: in.Output().Creator().Concat(maxResults...),
		Maps:   maxMaps,
	}
}

// getIm2Col creates a mapper which groups the values of
// each (window, channel) pair together.
func (m *MaxPool) getIm2Col(cr anyvec.Creator) anyvec.Mapper {
	m.im2colLock.Lock()
	defer m.im2colLock.Unlock()
	if m.im2col != nil && m.im2col.Creator() == cr {
		return m.im2col
	}

	var mapping []int
	for x := 0; x+m.Span <= m.InputWidth; x += m.Span {
		for z := 0; z < m.InputDepth; z++ {
			for subX := 0; subX < m.Span; subX++ {
				mapping = append(mapping, (x+subX)*m.InputDepth+z)
			}
		}
	}
	m.im2col = cr.MakeMapper(m.InputWidth*m.InputDepth, mapping)
	return m.im2col
}

type maxPoolRes struct {
	Im2Col anyvec.Mapper
	In     anydiff.Res
	OutVec anyvec.Vector
	Maps   []anyvec.Mapper
}

func (m *maxPoolRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *maxPoolRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *maxPoolRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	outSize := u.Len() / len(m.Maps)
	upPieces := make([]anyvec.Vector, len(m.Maps))
	for i, mapper := range m.Maps {
		permed := u.Creator().MakeVector(mapper.InSize())
		mapper.MapTranspose(u.Slice(outSize*i, outSize*(i+1)), permed)
		upPieces[i] = u.Creator().MakeVector(m.Im2Col.InSize())
		m.Im2Col.MapTranspose(permed, upPieces[i])
	}
	m.In.Propagate(u.Creator().Concat(upPieces...), g)
}
