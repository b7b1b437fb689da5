package soundconv

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/unixpickle/anyvec"
)

// Im2Row maps (possibly overlapping) windows of a 1-D
// input tensor to rows in a matrix.
// The windows are defined by sliding a window of
// WindowWidth time steps along the input with a stride of
// Stride.
//
// The i-th row holds the WindowWidth*InputDepth values of
// the i-th window, time-major and depth-minor, so that a
// row can be dotted with a flattened Conv filter.
//
// You should not modify an Im2Row after using it for any
// mapping operation.
type Im2Row struct {
	WindowWidth int
	Stride      int

	InputWidth int
	InputDepth int

	mapperLock sync.Mutex
	mapper     anyvec.Mapper
}

// InputSize returns the total number of components in
// each input tensor.
func (m *Im2Row) InputSize() int {
	return m.InputWidth * m.InputDepth
}

// NumX returns the number of window positions.
// This is also the width of the output of a Conv with the
// same parameters.
func (m *Im2Row) NumX() int {
	if m.InputWidth < m.WindowWidth {
		return 0
	}
	return 1 + (m.InputWidth-m.WindowWidth)/m.Stride
}

// MakeOut allocates a row matrix for the output of Map.
func (m *Im2Row) MakeOut(c anyvec.Creator) *anyvec.Matrix {
	rows := m.NumX()
	cols := m.WindowWidth * m.InputDepth
	return &anyvec.Matrix{Data: c.MakeVector(rows * cols), Rows: rows, Cols: cols}
}

// MapAll maps each packed input tensor to a row matrix and
// calls f with it, in order.
//
// The matrix is reused between calls, so f should not keep
// a reference to it.
func (m *Im2Row) MapAll(in anyvec.Vector, f func(idx int, m *anyvec.Matrix)) {
	m.mapImpl(in, f, false)
}

// MapParallel is like MapAll, except that f may be called
// concurrently and out of order.
func (m *Im2Row) MapParallel(in anyvec.Vector, f func(idx int, m *anyvec.Matrix)) {
	m.mapImpl(in, f, true)
}

func (m *Im2Row) mapImpl(in anyvec.Vector, f func(idx int, m *anyvec.Matrix),
	parallel bool) {
	inSize := m.InputSize()
	if in.Len()%inSize != 0 {
		panic(fmt.Sprintf("input length %d not divisible by %d", in.Len(), inSize))
	}

	mapper := m.Mapper(in.Creator())
	mapAndCall := func(i int, mat *anyvec.Matrix) {
		mapper.Map(in.Slice(inSize*i, inSize*(i+1)), mat.Data)
		f(i, mat)
	}

	n := in.Len() / inSize
	if parallel {
		m.CallParallel(in.Creator(), n, mapAndCall)
	} else {
		m.CallAll(in.Creator(), n, mapAndCall)
	}
}

// CallAll is like MapAll, except it doesn't perform the
// mapping itself.
// The matrix passed to f may contain arbitrary junk.
func (m *Im2Row) CallAll(c anyvec.Creator, n int, f func(int, *anyvec.Matrix)) {
	mat := m.MakeOut(c)
	for i := 0; i < n; i++ {
		f(i, mat)
	}
}

// CallParallel is like MapParallel, except it doesn't
// perform the mapping itself.
func (m *Im2Row) CallParallel(c anyvec.Creator, n int, f func(int, *anyvec.Matrix)) {
	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	numGos := runtime.GOMAXPROCS(0)
	if numGos > n {
		numGos = n
	}

	var wg sync.WaitGroup
	for i := 0; i < numGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mat := m.MakeOut(c)
			for i := range jobs {
				f(i, mat)
			}
		}()
	}
	wg.Wait()
}

// Mapper returns a mapper from an input tensor to the
// data of a row matrix.
func (m *Im2Row) Mapper(c anyvec.Creator) anyvec.Mapper {
	m.mapperLock.Lock()
	defer m.mapperLock.Unlock()
	if m.mapper != nil && m.mapper.Creator() == c {
		return m.mapper
	}

	mapping := make([]int, 0, m.NumX()*m.WindowWidth*m.InputDepth)
	for x := 0; x+m.WindowWidth <= m.InputWidth; x += m.Stride {
		for subX := 0; subX < m.WindowWidth; subX++ {
			offset := (x + subX) * m.InputDepth
			for z := 0; z < m.InputDepth; z++ {
				mapping = append(mapping, offset+z)
			}
		}
	}
	m.mapper = c.MakeMapper(m.InputSize(), mapping)

	return m.mapper
}
