// Package aiff decodes AIFF files with github.com/go-audio/aiff.
package aiff

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/decoders/internal/pcm"
)

const scanFrames = 8192

// Decoder implements audio.Decoder for uncompressed AIFF files. The
// duration is measured once at Open by decoding the whole file.
type Decoder struct {
	src      io.ReadSeeker
	dec      *aiff.Decoder
	ibuf     *goaudio.IntBuffer
	channels int
	rate     int
	bitDepth int
	frames   int64
	pos      int64
	open     bool
}

// New returns an empty Decoder.
func New() audio.Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(src io.ReadSeeker) error {
	d.open = false
	if src == nil {
		return audio.ErrNoData
	}

	dec, err := newDecoder(src)
	if err != nil {
		return err
	}
	format := dec.Format()
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("aiff: %w: %d bit", audio.ErrUnsupported, dec.BitDepth)
	}

	d.src = src
	d.dec = dec
	d.channels = format.NumChannels
	d.rate = format.SampleRate
	d.bitDepth = int(dec.BitDepth)
	d.ibuf = &goaudio.IntBuffer{
		Format:         format,
		SourceBitDepth: d.bitDepth,
	}

	// measure, then start over
	d.pos = 0
	for d.read(scanFrames) > 0 {
	}
	if d.pos == 0 {
		return fmt.Errorf("aiff: %w", audio.ErrNoData)
	}
	d.frames = d.pos
	if err := d.restart(); err != nil {
		return err
	}

	d.open = true
	return nil
}

func newDecoder(src io.ReadSeeker) (*aiff.Decoder, error) {
	dec := aiff.NewDecoder(src)
	if !dec.IsValidFile() {
		return nil, errors.New("aiff: not a valid AIFF file")
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("aiff: invalid format")
	}
	return dec, nil
}

func (d *Decoder) IsOpen() bool  { return d.open }
func (d *Decoder) Channels() int { return d.channels }
func (d *Decoder) Rate() int     { return d.rate }

func (d *Decoder) Duration() time.Duration {
	if !d.open {
		return 0
	}
	return audio.FramesToDuration(d.frames, d.rate)
}

func (d *Decoder) Decode(buf []float32) (int, bool) {
	if !d.open {
		return 0, false
	}
	n := d.read(len(buf) / d.channels)
	if n == 0 {
		return 0, false
	}
	pcm.IntsToFloat32(buf, d.ibuf.Data[:n], d.bitDepth)
	return n, false
}

func (d *Decoder) read(frames int) int {
	want := frames * d.channels
	if want <= 0 {
		return 0
	}
	if cap(d.ibuf.Data) < want {
		d.ibuf.Data = make([]int, want)
	}
	d.ibuf.Data = d.ibuf.Data[:want]

	n, err := d.dec.PCMBuffer(d.ibuf)
	if err != nil && n == 0 {
		log.Debug().Err(err).Msg("aiff: decode failed")
		return 0
	}
	n -= n % d.channels
	d.pos += int64(n / d.channels)
	return n
}

func (d *Decoder) Rewind() error {
	if !d.open {
		return audio.ErrNotOpen
	}
	return d.restart()
}

func (d *Decoder) restart() error {
	if _, err := d.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("aiff: %w: %v", audio.ErrNotSeekable, err)
	}
	dec, err := newDecoder(d.src)
	if err != nil {
		return err
	}
	d.dec = dec
	d.pos = 0
	return nil
}

// SeekToTime restarts the decoder and skips to pos.
func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	target := min(audio.DurationToFrames(pos, d.rate), d.frames)
	prev := d.pos

	if err := d.skipTo(target); err != nil {
		if rerr := d.skipTo(prev); rerr != nil {
			log.Debug().Err(rerr).Msg("aiff: unable to restore position")
		}
		return err
	}
	return nil
}

func (d *Decoder) skipTo(target int64) error {
	if target < d.pos {
		if err := d.restart(); err != nil {
			return err
		}
	}
	for d.pos < target {
		if d.read(int(min(target-d.pos, scanFrames))) == 0 {
			return fmt.Errorf("aiff: seek: %w", audio.ErrNoData)
		}
	}
	return nil
}

func (d *Decoder) Close() error {
	d.open = false
	d.dec = nil
	d.src = nil
	return nil
}
