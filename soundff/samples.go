package soundff

import (
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/soundnet/soundsgd"
)

// A Sample pairs an input waveform with its class label.
type Sample struct {
	Input anyvec.Vector
	Label int
}

// A SampleList is a soundsgd.SampleList whose entries can
// be loaded as labeled samples.
type SampleList interface {
	soundsgd.SampleList

	GetSample(idx int) (*Sample, error)
}

// MemoryList is a SampleList held entirely in memory.
type MemoryList []*Sample

// Len returns the number of samples.
func (m MemoryList) Len() int {
	return len(m)
}

// Swap exchanges two samples in place.
func (m MemoryList) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Slice returns a copy of the samples in [i, j), so that
// shuffling the result leaves m untouched.
func (m MemoryList) Slice(i, j int) soundsgd.SampleList {
	res := make(MemoryList, j-i)
	copy(res, m[i:j])
	return res
}

// GetSample returns the sample at idx.
func (m MemoryList) GetSample(idx int) (*Sample, error) {
	return m[idx], nil
}
