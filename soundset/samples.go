package soundset

import (
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/soundnet/soundff"
	"github.com/unixpickle/soundnet/soundsgd"
)

// Samples is a soundff.SampleList view of a Dataset.
//
// Inputs are the formatted waveforms, labeled with each
// clip's class ID.
// Shuffling a Samples only reorders its Indices, never the
// underlying Dataset.
type Samples struct {
	Dataset *Dataset
	Indices []int
	Creator anyvec.Creator
}

// NewSamples creates a Samples covering every clip of d,
// in order.
func NewSamples(c anyvec.Creator, d *Dataset) *Samples {
	indices := make([]int, d.Len())
	for i := range indices {
		indices[i] = i
	}
	return &Samples{Dataset: d, Indices: indices, Creator: c}
}

// Len returns the number of samples.
func (s *Samples) Len() int {
	return len(s.Indices)
}

// Swap swaps two samples.
func (s *Samples) Swap(i, j int) {
	s.Indices[i], s.Indices[j] = s.Indices[j], s.Indices[i]
}

// Slice copies a range of the samples.
func (s *Samples) Slice(i, j int) soundsgd.SampleList {
	return &Samples{
		Dataset: s.Dataset,
		Indices: append([]int{}, s.Indices[i:j]...),
		Creator: s.Creator,
	}
}

// GetSample loads the sample at the given index.
func (s *Samples) GetSample(idx int) (*soundff.Sample, error) {
	sample, err := s.Dataset.Sample(s.Indices[idx])
	if err != nil {
		return nil, err
	}
	waveform := make([]float64, len(sample.Waveform))
	for i, x := range sample.Waveform {
		waveform[i] = float64(x)
	}
	return &soundff.Sample{
		Input: s.Creator.MakeVectorData(s.Creator.MakeNumericList(waveform)),
		Label: sample.Label,
	}, nil
}
