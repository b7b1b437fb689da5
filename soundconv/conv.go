// Package soundconv provides 1-D convolutional layers for
// networks that operate directly on audio waveforms.
//
// All tensors are row-major depth-minor: a tensor of width
// W and depth D stores the D channel values of time step 0,
// then those of time step 1, and so on.
package soundconv

import (
	"math"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Conv is a 1-D convolutional layer without padding.
type Conv struct {
	FilterCount int
	FilterWidth int
	Stride      int

	InputWidth int
	InputDepth int

	// Filters stores FilterCount filters, each of which is
	// FilterWidth*InputDepth values, time-major and
	// depth-minor.
	Filters *anydiff.Var
	Biases  *anydiff.Var

	// Parallel, if set, spreads the per-sample convolutions
	// of a batch across GOMAXPROCS goroutines.
	Parallel bool

	im2rowLock sync.Mutex
	im2row     *Im2Row
}

// NewConv creates a randomly initialized Conv.
func NewConv(c anyvec.Creator, inWidth, inDepth, filterWidth, filterCount,
	stride int) *Conv {
	res := &Conv{
		FilterCount: filterCount,
		FilterWidth: filterWidth,
		Stride:      stride,
		InputWidth:  inWidth,
		InputDepth:  inDepth,
	}
	res.InitRand(c)
	return res
}

// InitRand randomizes the filters and zeros the biases.
func (c *Conv) InitRand(cr anyvec.Creator) {
	c.InitZero(cr)

	normalizer := 1 / math.Sqrt(float64(c.FilterWidth*c.InputDepth))
	anyvec.Rand(c.Filters.Vector, anyvec.Normal, nil)
	c.Filters.Vector.Scale(cr.MakeNumeric(normalizer))
}

// InitZero initializes the layer to zero.
func (c *Conv) InitZero(cr anyvec.Creator) {
	filterSize := c.FilterWidth * c.InputDepth
	c.Filters = anydiff.NewVar(cr.MakeVector(filterSize * c.FilterCount))
	c.Biases = anydiff.NewVar(cr.MakeVector(c.FilterCount))
}

// OutputWidth returns the width of the output tensor.
func (c *Conv) OutputWidth() int {
	if c.InputWidth < c.FilterWidth {
		return 0
	}
	return 1 + (c.InputWidth-c.FilterWidth)/c.Stride
}

// OutputDepth returns the depth of the output tensor.
func (c *Conv) OutputDepth() int {
	return c.FilterCount
}

// Apply applies the layer to a batch of input tensors.
//
// The layer must have been initialized, and its fields
// should not be modified after the first call.
func (c *Conv) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	if c.Filters == nil || c.Biases == nil {
		panic("uninitialized Conv")
	}
	cr := in.Output().Creator()
	if c.OutputWidth() == 0 {
		return anydiff.NewConst(cr.MakeVector(0))
	}
	if in.Output().Len() != batchSize*c.InputWidth*c.InputDepth {
		panic("incorrect input size")
	}

	filterMatrix := c.filterMatrix()
	outSize := c.OutputWidth() * c.OutputDepth()

	products := make([]anyvec.Vector, batchSize)
	c.mapper()(in.Output(), func(i int, imgMatrix *anyvec.Matrix) {
		prodMat := &anyvec.Matrix{
			Data: cr.MakeVector(outSize),
			Rows: c.OutputWidth(),
			Cols: c.OutputDepth(),
		}
		prodMat.Product(false, true, cr.MakeNumeric(1), imgMatrix, filterMatrix,
			cr.MakeNumeric(0))
		products[i] = prodMat.Data
	})

	outData := cr.Concat(products...)
	anyvec.AddRepeated(outData, c.Biases.Vector)

	ourVars := anydiff.VarSet{}
	ourVars.Add(c.Filters)
	ourVars.Add(c.Biases)

	return &convRes{
		Layer:  c,
		N:      batchSize,
		In:     in,
		OutVec: outData,
		V:      anydiff.MergeVarSets(in.Vars(), ourVars),
	}
}

// Parameters returns the filters followed by the biases.
//
// If the layer is uninitialized, the result is nil.
func (c *Conv) Parameters() []*anydiff.Var {
	if c.Filters == nil || c.Biases == nil {
		return nil
	}
	return []*anydiff.Var{c.Filters, c.Biases}
}

func (c *Conv) filterMatrix() *anyvec.Matrix {
	return &anyvec.Matrix{
		Data: c.Filters.Vector,
		Rows: c.FilterCount,
		Cols: c.FilterWidth * c.InputDepth,
	}
}

func (c *Conv) getIm2Row() *Im2Row {
	c.im2rowLock.Lock()
	defer c.im2rowLock.Unlock()
	if c.im2row == nil {
		c.im2row = &Im2Row{
			WindowWidth: c.FilterWidth,
			Stride:      c.Stride,
			InputWidth:  c.InputWidth,
			InputDepth:  c.InputDepth,
		}
	}
	return c.im2row
}

func (c *Conv) mapper() func(anyvec.Vector, func(int, *anyvec.Matrix)) {
	if c.Parallel {
		return c.getIm2Row().MapParallel
	}
	return c.getIm2Row().MapAll
}

func (c *Conv) caller() func(anyvec.Creator, int, func(int, *anyvec.Matrix)) {
	if c.Parallel {
		return c.getIm2Row().CallParallel
	}
	return c.getIm2Row().CallAll
}

type convRes struct {
	Layer  *Conv
	N      int
	In     anydiff.Res
	OutVec anyvec.Vector
	V      anydiff.VarSet
}

func (c *convRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *convRes) Vars() anydiff.VarSet {
	return c.V
}

func (c *convRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	doIn := g.Intersects(c.In.Vars())

	outSize := u.Len() / c.N
	inSize := c.In.Output().Len() / c.N

	filterMat := c.Layer.filterMatrix()
	im2row := c.Layer.getIm2Row()

	one := u.Creator().MakeNumeric(1)
	zero := u.Creator().MakeNumeric(0)

	if biasGrad, ok := g[c.Layer.Biases]; ok {
		biasGrad.Add(anyvec.SumRows(u, c.Layer.FilterCount))
	}

	filterGrad, doFilters := g[c.Layer.Filters]

	inputUpstreams := make([]anyvec.Vector, c.N)
	var updateLock sync.Mutex
	loop := func(i int, imgMat *anyvec.Matrix) {
		uMat := &anyvec.Matrix{
			Data: u.Slice(outSize*i, outSize*(i+1)),
			Rows: c.Layer.OutputWidth(),
			Cols: c.Layer.OutputDepth(),
		}
		if doFilters {
			fgMat := *filterMat
			fgMat.Data = filterGrad.Creator().MakeVector(filterGrad.Len())
			fgMat.Product(true, false, one, uMat, imgMat, zero)
			updateLock.Lock()
			filterGrad.Add(fgMat.Data)
			updateLock.Unlock()
		}
		if doIn {
			imgMat.Product(false, false, one, uMat, filterMat, zero)
			inUp := u.Creator().MakeVector(inSize)
			im2row.Mapper(u.Creator()).MapTranspose(imgMat.Data, inUp)
			inputUpstreams[i] = inUp
		}
	}

	if doFilters {
		c.Layer.mapper()(c.In.Output(), loop)
	} else {
		c.Layer.caller()(u.Creator(), c.N, loop)
	}

	if doIn {
		c.In.Propagate(u.Creator().Concat(inputUpstreams...), g)
	}
}
