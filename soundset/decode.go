package soundset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/unixpickle/essentials"
)

// ErrInvalidFile is returned when a file is not a valid
// instance of the format its decoder handles.
var ErrInvalidFile = errors.New("invalid audio file")

// ErrUnsupportedFormat is returned for valid files whose
// sample encoding cannot be decoded.
var ErrUnsupportedFormat = errors.New("unsupported sample encoding")

// WAV format tags.
const (
	wavPCMFormat        = 1
	wavFloatFormat      = 3
	wavExtensibleFormat = 0xfffe
)

// A Decoder decodes an audio file into interleaved samples
// scaled to [-1, 1].
type Decoder interface {
	Decode(r io.ReadSeeker) (*audio.Float32Buffer, error)
}

// A Registry maps file extensions to Decoders.
// It is safe for concurrent use.
type Registry struct {
	lock     sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: map[string]Decoder{}}
}

// DefaultRegistry creates a Registry with decoders for
// WAV, AIFF, MP3, and Ogg Vorbis files.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", WAVDecoder{})
	r.Register(".aif", AIFFDecoder{})
	r.Register(".aiff", AIFFDecoder{})
	r.Register(".mp3", MP3Decoder{})
	r.Register(".ogg", VorbisDecoder{})
	return r
}

// Register associates a decoder with a file extension,
// such as ".wav".
// Extensions are case-insensitive.
func (r *Registry) Register(ext string, d Decoder) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.decoders[strings.ToLower(ext)] = d
}

// Get returns the decoder for a file extension.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	d, ok := r.decoders[strings.ToLower(ext)]
	return d, ok
}

// DecodeFile decodes the file at path using the decoder
// registered for its extension.
func (r *Registry) DecodeFile(path string) (buf *audio.Float32Buffer, err error) {
	defer essentials.AddCtxTo("decode "+path, &err)
	d, ok := r.Get(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("no decoder for extension %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return d.Decode(f)
}

// WAVDecoder decodes PCM and 32-bit float WAV files,
// including WAVE_FORMAT_EXTENSIBLE files whose sub-format
// is one of those two.
type WAVDecoder struct{}

// Decode decodes the entire file.
func (WAVDecoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	tag, err := wavFormatTag(r)
	if err != nil {
		return nil, err
	}
	if tag != wavPCMFormat && tag != wavFloatFormat {
		return nil, fmt.Errorf("%w: WAV format tag %#x", ErrUnsupportedFormat, tag)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	if tag == wavFloatFormat && d.BitDepth != 32 {
		return nil, fmt.Errorf("%w: %d-bit float WAV", ErrUnsupportedFormat, d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if tag == wavFloatFormat {
		return floatBitsBuffer(buf), nil
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	// 8-bit WAV samples are unsigned.
	return normalizeInts(buf, bitDepth, bitDepth == 8), nil
}

// AIFFDecoder decodes AIFF files.
type AIFFDecoder struct{}

// Decode decodes the entire file.
func (AIFFDecoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	d := aiff.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	return normalizeInts(buf, bitDepth, false), nil
}

// MP3Decoder decodes MP3 files.
// The output is always 16-bit stereo.
type MP3Decoder struct{}

// Decode decodes the entire file.
func (MP3Decoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	data := make([]float32, len(raw)/2)
	for i := range data {
		data[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: dec.SampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}, nil
}

// VorbisDecoder decodes Ogg Vorbis files.
type VorbisDecoder struct{}

// Decode decodes the entire file.
func (VorbisDecoder) Decode(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 32,
	}, nil
}

// wavFormatTag reads the sample encoding from the fmt
// chunk of a WAV file, resolving extensible files to
// their sub-format.
func wavFormatTag(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil || p.Format != riff.WavFormatID {
		return 0, ErrInvalidFile
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, ErrInvalidFile
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}
		data := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch, data); err != nil || len(data) < 16 {
			return 0, ErrInvalidFile
		}
		tag := binary.LittleEndian.Uint16(data)
		if tag == wavExtensibleFormat {
			// The sub-format GUID starts with the tag it stands
			// for, 24 bytes into the chunk.
			if len(data) < 26 {
				return 0, ErrInvalidFile
			}
			tag = binary.LittleEndian.Uint16(data[24:])
		}
		return tag, nil
	}
}

func normalizeInts(buf *audio.IntBuffer, bitDepth int, unsigned bool) *audio.Float32Buffer {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)))
	data := make([]float32, len(buf.Data))
	for i, x := range buf.Data {
		if unsigned {
			x -= int(scale)
		}
		data[i] = float32(x) / scale
	}
	return &audio.Float32Buffer{
		Format:         buf.Format,
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

func floatBitsBuffer(buf *audio.IntBuffer) *audio.Float32Buffer {
	data := make([]float32, len(buf.Data))
	for i, x := range buf.Data {
		data[i] = math.Float32frombits(uint32(x))
	}
	return &audio.Float32Buffer{
		Format:         buf.Format,
		Data:           data,
		SourceBitDepth: 32,
	}
}
