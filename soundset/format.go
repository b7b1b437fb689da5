package soundset

import (
	"fmt"

	"github.com/go-audio/audio"
)

// Default formatting parameters.
// At the assumed 44.1kHz source rate, taking every fifth
// sample of a 160000 sample prefix yields 32000 samples at
// roughly 8.8kHz.
const (
	DefaultPrefixLength = 160000
	DefaultStride       = 5
)

// A Formatter turns decoded audio into fixed-length mono
// waveforms.
//
// Audio is mixed down to one channel, cut or zero-padded
// to PrefixLength samples, and decimated by keeping every
// Stride-th sample.
// The source sample rate is not checked.
type Formatter struct {
	PrefixLength int
	Stride       int
}

// DefaultFormatter returns the Formatter used for the
// classifier's inputs.
func DefaultFormatter() Formatter {
	return Formatter{PrefixLength: DefaultPrefixLength, Stride: DefaultStride}
}

// Validate checks that f can format audio.
func (f Formatter) Validate() error {
	if f.Stride <= 0 {
		return fmt.Errorf("invalid formatter: stride must be positive, got %d", f.Stride)
	}
	if f.PrefixLength < 0 {
		return fmt.Errorf("invalid formatter: negative prefix length %d", f.PrefixLength)
	}
	return nil
}

// OutputLength returns the length of every waveform that
// f produces.
func (f Formatter) OutputLength() int {
	return (f.PrefixLength + f.Stride - 1) / f.Stride
}

// FormatBuffer mixes and formats a decoded buffer.
func (f Formatter) FormatBuffer(buf *audio.Float32Buffer) []float32 {
	return f.Format(Mono(buf))
}

// Format pads or truncates a mono waveform and decimates
// it.
func (f Formatter) Format(mono []float32) []float32 {
	res := make([]float32, f.OutputLength())
	for i := range res {
		idx := i * f.Stride
		if idx >= len(mono) {
			break
		}
		res[i] = mono[idx]
	}
	return res
}

// Mono averages the channels of each frame in a buffer.
//
// Single-channel data is returned as-is, and a trailing
// partial frame is dropped.
func Mono(buf *audio.Float32Buffer) []float32 {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	if channels == 1 {
		return buf.Data
	}
	res := make([]float32, len(buf.Data)/channels)
	scale := 1 / float32(channels)
	for i := range res {
		var sum float32
		for _, x := range buf.Data[i*channels : (i+1)*channels] {
			sum += x
		}
		res[i] = sum * scale
	}
	return res
}
