// Package mp3 decodes MPEG-1/2 Layer III files with
// github.com/hajimehoshi/go-mp3.
package mp3

import (
	"fmt"
	"io"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// go-mp3 always delivers 16 bit little endian stereo
const (
	channels      = 2
	bytesPerFrame = 4
)

// Decoder implements audio.Decoder for mp3 files.
type Decoder struct {
	dec    *gomp3.Decoder
	buf    []byte
	rate   int
	frames int64
	open   bool
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

	dec, err := gomp3.NewDecoder(src)
	if err != nil {
		return fmt.Errorf("mp3: %v", err)
	}
	if dec.SampleRate() <= 0 {
		return fmt.Errorf("mp3: invalid sample rate %d", dec.SampleRate())
	}

	d.dec = dec
	d.rate = dec.SampleRate()
	d.frames = 0
	if l := dec.Length(); l > 0 {
		d.frames = l / bytesPerFrame
	}
	d.open = true
	return nil
}

func (d *Decoder) IsOpen() bool  { return d.open }
func (d *Decoder) Channels() int { return channels }
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
	want := (len(buf) / channels) * bytesPerFrame
	if want == 0 {
		return 0, false
	}
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	d.buf = d.buf[:want]

	n, err := io.ReadFull(d.dec, d.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			log.Debug().Err(err).Msg("mp3: decode failed")
		}
		return 0, false
	}

	samples := (n / bytesPerFrame) * channels
	for i := 0; i < samples; i++ {
		v := int16(uint16(d.buf[2*i]) | uint16(d.buf[2*i+1])<<8)
		buf[i] = float32(v) / 32768
	}
	return samples, false
}

func (d *Decoder) Rewind() error {
	if !d.open {
		return audio.ErrNotOpen
	}
	if _, err := d.dec.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("mp3: %w: %v", audio.ErrNotSeekable, err)
	}
	return nil
}

func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	frame := audio.DurationToFrames(pos, d.rate)
	if d.frames > 0 {
		frame = min(frame, d.frames)
	}
	if _, err := d.dec.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("mp3: %w: %v", audio.ErrNotSeekable, err)
	}
	return nil
}

func (d *Decoder) Close() error {
	d.open = false
	d.dec = nil
	return nil
}
