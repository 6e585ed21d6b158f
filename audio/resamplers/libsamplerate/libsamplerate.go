// Package libsamplerate provides an audio.Converter backed by the
// libsamplerate C library through github.com/dh1tw/gosamplerate.
package libsamplerate

import (
	"fmt"

	"github.com/dh1tw/gosamplerate"
	"github.com/rs/zerolog/log"
)

// Converter wraps a libsamplerate converter. libsamplerate returns all
// the output of a Process call at once; whatever does not fit into the
// caller's buffer is spilled and delivered first on the next call.
type Converter struct {
	options  Options
	src      gosamplerate.Src
	valid    bool
	channels int
	ratio    float64
	spill    []float32
}

// New returns an unconfigured Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		options: Options{
			ConverterType: gosamplerate.SRC_SINC_FASTEST,
			BufferLen:     65536,
		},
	}
	for _, opt := range opts {
		opt(&c.options)
	}
	return c
}

func (c *Converter) Configure(srcRate, dstRate, channels int) error {
	if srcRate <= 0 || dstRate <= 0 || channels <= 0 {
		return fmt.Errorf("libsamplerate: invalid conversion %dHz -> %dHz, %d channels", srcRate, dstRate, channels)
	}

	if !c.valid || channels != c.channels {
		c.release()
		src, err := gosamplerate.New(c.options.ConverterType, channels, c.options.BufferLen)
		if err != nil {
			return fmt.Errorf("libsamplerate: %v", err)
		}
		c.src = src
		c.valid = true
	} else {
		c.src.Reset()
	}

	c.channels = channels
	c.ratio = float64(dstRate) / float64(srcRate)
	c.spill = c.spill[:0]
	return nil
}

func (c *Converter) Resample(dst, src []float32) (int, int) {
	ch := c.channels
	if !c.valid || ch == 0 {
		return 0, 0
	}

	produced := copy(dst, c.spill)
	c.spill = c.spill[:copy(c.spill, c.spill[produced:])]
	if len(c.spill) > 0 || produced == len(dst) {
		return produced, 0
	}

	// never hand libsamplerate more than its output buffer can take
	free := (len(dst) - produced) / ch
	limit := int(float64(c.options.BufferLen/ch)/c.ratio) - 1
	frames := min(len(src)/ch, int(float64(free)/c.ratio)+1, limit)
	if frames <= 0 {
		return produced, 0
	}

	out, err := c.src.Process(src[:frames*ch], c.ratio, false)
	if err != nil {
		log.Debug().Err(err).Msg("libsamplerate: dropping input")
		return produced, frames * ch
	}

	n := copy(dst[produced:], out)
	produced += n
	c.spill = append(c.spill, out[n:]...)
	return produced, frames * ch
}

func (c *Converter) Discard() {
	if c.valid {
		c.src.Reset()
	}
	c.spill = c.spill[:0]
}

func (c *Converter) Close() error {
	c.release()
	return nil
}

func (c *Converter) release() {
	if !c.valid {
		return
	}
	gosamplerate.Delete(c.src)
	c.valid = false
}
