// Package vorbis decodes Ogg Vorbis files with
// github.com/jfreymuth/oggvorbis.
package vorbis

import (
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// Decoder implements audio.Decoder for Ogg Vorbis files.
type Decoder struct {
	r    *oggvorbis.Reader
	open bool
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

	r, err := oggvorbis.NewReader(src)
	if err != nil {
		return fmt.Errorf("vorbis: %v", err)
	}
	if r.Channels() <= 0 || r.SampleRate() <= 0 {
		return fmt.Errorf("vorbis: invalid format %d channels, %dHz", r.Channels(), r.SampleRate())
	}

	d.r = r
	d.open = true
	return nil
}

func (d *Decoder) IsOpen() bool { return d.open }

func (d *Decoder) Channels() int {
	if d.r == nil {
		return 0
	}
	return d.r.Channels()
}

func (d *Decoder) Rate() int {
	if d.r == nil {
		return 0
	}
	return d.r.SampleRate()
}

// Duration is 0 for sources where the reader can not determine the
// length.
func (d *Decoder) Duration() time.Duration {
	if !d.open {
		return 0
	}
	return audio.FramesToDuration(d.r.Length(), d.r.SampleRate())
}

// Decode fills whole frames. The reader hands out at most one Vorbis
// packet per Read, so it is called until buf is full.
func (d *Decoder) Decode(buf []float32) (int, bool) {
	if !d.open {
		return 0, false
	}
	ch := d.r.Channels()
	buf = buf[:len(buf)-len(buf)%ch]

	total := 0
	for total < len(buf) {
		n, err := d.r.Read(buf[total:])
		total += n
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("vorbis: decode failed")
			}
			break
		}
		if n == 0 {
			break
		}
	}
	return total, false
}

func (d *Decoder) Rewind() error {
	return d.SeekToTime(0)
}

func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	frame := audio.DurationToFrames(pos, d.r.SampleRate())
	if l := d.r.Length(); l > 0 {
		frame = min(frame, l)
	}
	if err := d.r.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis: %w: %v", audio.ErrNotSeekable, err)
	}
	return nil
}

func (d *Decoder) Close() error {
	d.open = false
	return nil
}
