// Package raw decodes headerless PCM sample data. Since any byte
// sequence is valid raw PCM, this decoder accepts every non-empty
// source and must never take part in format auto detection.
package raw

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

type sampleReader func(b []byte) float32

// Decoder implements audio.Decoder for raw PCM.
type Decoder struct {
	options Options
	read    sampleReader
	width   int
	src     io.ReadSeeker
	frames  int64
	buf     []byte
	open    bool
}

// New returns an empty Decoder. By default the data is expected to be
// 44.1kHz signed 16 bit little endian stereo.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		options: Options{
			Rate:     44100,
			Channels: 2,
			Format:   audio.FormatS16LSB,
		},
	}
	for _, opt := range opts {
		opt(&d.options)
	}
	return d
}

// Factory returns a constructor suitable for an audio.Registry.
func Factory(opts ...Option) audio.NewDecoderFunc {
	return func() audio.Decoder {
		return New(opts...)
	}
}

func (d *Decoder) Open(src io.ReadSeeker) error {
	d.open = false
	if src == nil {
		return audio.ErrNoData
	}
	if d.options.Rate <= 0 || d.options.Channels <= 0 {
		return fmt.Errorf("raw: %w: %dHz, %d channels", audio.ErrInvalidSpec, d.options.Rate, d.options.Channels)
	}
	read, err := readerFor(d.options.Format)
	if err != nil {
		return err
	}

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("raw: %w: %v", audio.ErrNotSeekable, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("raw: %w: %v", audio.ErrNotSeekable, err)
	}

	d.width = d.options.Format.Width()
	d.frames = size / int64(d.width*d.options.Channels)
	if d.frames == 0 {
		return fmt.Errorf("raw: %w", audio.ErrNoData)
	}

	d.read = read
	d.src = src
	d.open = true
	return nil
}

func (d *Decoder) IsOpen() bool  { return d.open }
func (d *Decoder) Channels() int { return d.options.Channels }
func (d *Decoder) Rate() int     { return d.options.Rate }

func (d *Decoder) Duration() time.Duration {
	if !d.open {
		return 0
	}
	return audio.FramesToDuration(d.frames, d.options.Rate)
}

func (d *Decoder) Decode(buf []float32) (int, bool) {
	if !d.open {
		return 0, false
	}
	frameBytes := d.width * d.options.Channels
	want := (len(buf) / d.options.Channels) * frameBytes
	if want == 0 {
		return 0, false
	}
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	d.buf = d.buf[:want]

	n, err := io.ReadFull(d.src, d.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		log.Debug().Err(err).Msg("raw: read failed")
	}
	n -= n % frameBytes

	samples := n / d.width
	for i := 0; i < samples; i++ {
		buf[i] = d.read(d.buf[i*d.width:])
	}
	return samples, false
}

func (d *Decoder) Rewind() error {
	return d.SeekToTime(0)
}

func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	frame := min(audio.DurationToFrames(pos, d.options.Rate), d.frames)
	offset := frame * int64(d.width*d.options.Channels)
	if _, err := d.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("raw: %w: %v", audio.ErrNotSeekable, err)
	}
	return nil
}

func (d *Decoder) Close() error {
	d.open = false
	d.src = nil
	return nil
}

func readerFor(f audio.SampleFormat) (sampleReader, error) {
	switch f {
	case audio.FormatU8:
		return func(b []byte) float32 { return float32(int(b[0])-128) / 128 }, nil
	case audio.FormatS8:
		return func(b []byte) float32 { return float32(int8(b[0])) / 128 }, nil
	case audio.FormatU16LSB:
		return func(b []byte) float32 { return float32(int(binary.LittleEndian.Uint16(b))-32768) / 32768 }, nil
	case audio.FormatU16MSB:
		return func(b []byte) float32 { return float32(int(binary.BigEndian.Uint16(b))-32768) / 32768 }, nil
	case audio.FormatS16LSB:
		return func(b []byte) float32 { return float32(int16(binary.LittleEndian.Uint16(b))) / 32768 }, nil
	case audio.FormatS16MSB:
		return func(b []byte) float32 { return float32(int16(binary.BigEndian.Uint16(b))) / 32768 }, nil
	case audio.FormatS24LSB:
		return func(b []byte) float32 {
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			return float32(v) / (1 << 23)
		}, nil
	case audio.FormatS32LSB:
		return func(b []byte) float32 { return float32(float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31)) }, nil
	case audio.FormatS32MSB:
		return func(b []byte) float32 { return float32(float64(int32(binary.BigEndian.Uint32(b))) / (1 << 31)) }, nil
	case audio.FormatF32LSB:
		return func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }, nil
	case audio.FormatF32MSB:
		return func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) }, nil
	}
	return nil, fmt.Errorf("raw: %w: sample format %s", audio.ErrUnsupported, f)
}
