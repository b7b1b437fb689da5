package soundset

import (
	"fmt"
	"path/filepath"

	"github.com/unixpickle/essentials"
)

// A Sample is a formatted waveform and its class label.
type Sample struct {
	Waveform []float32
	Label    int
}

// An Option configures a Dataset.
type Option func(d *Dataset)

// WithFormatter sets the Formatter used to produce
// waveforms.
func WithFormatter(f Formatter) Option {
	return func(d *Dataset) {
		d.formatter = f
	}
}

// WithRegistry sets the decoders used to read files.
func WithRegistry(r *Registry) Option {
	return func(d *Dataset) {
		d.registry = r
	}
}

// A Dataset provides random access to the clips of a set
// of folds.
//
// Clips are loaded from disk every time they are accessed.
// A Dataset never changes after it is created, so it is
// safe to read samples from multiple goroutines.
type Dataset struct {
	dir       string
	records   []Record
	formatter Formatter
	registry  *Registry
}

// NewDataset creates a Dataset with the records of meta
// whose fold is in folds, in metadata order.
//
// Audio files are expected at dir/fold<N>/<file name>.
//
// NewDataset panics if the configured Formatter is
// invalid.
func NewDataset(meta *Metadata, dir string, folds []int, opts ...Option) *Dataset {
	keep := map[int]bool{}
	for _, f := range folds {
		keep[f] = true
	}
	res := &Dataset{
		dir:       dir,
		formatter: DefaultFormatter(),
	}
	for _, r := range meta.Records {
		if keep[r.Fold] {
			res.records = append(res.records, r)
		}
	}
	for _, opt := range opts {
		opt(res)
	}
	if err := res.formatter.Validate(); err != nil {
		panic(err)
	}
	if res.registry == nil {
		res.registry = DefaultRegistry()
	}
	return res
}

// Len returns the number of clips.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Record returns the metadata of the i-th clip.
func (d *Dataset) Record(i int) Record {
	return d.records[i]
}

// Path returns the audio file path of the i-th clip.
func (d *Dataset) Path(i int) string {
	r := d.records[i]
	return filepath.Join(d.dir, fmt.Sprintf("fold%d", r.Fold), r.FileName)
}

// WaveformLength returns the length of every waveform the
// Dataset produces.
func (d *Dataset) WaveformLength() int {
	return d.formatter.OutputLength()
}

// Sample loads and formats the i-th clip.
func (d *Dataset) Sample(i int) (*Sample, error) {
	buf, err := d.registry.DecodeFile(d.Path(i))
	if err != nil {
		return nil, essentials.AddCtx(fmt.Sprintf("load sample %d", i), err)
	}
	return &Sample{
		Waveform: d.formatter.FormatBuffer(buf),
		Label:    d.records[i].Label,
	}, nil
}
