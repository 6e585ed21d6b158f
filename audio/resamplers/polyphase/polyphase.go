// Package polyphase provides an audio.Converter backed by the pure Go
// polyphase filter engine of github.com/tphakala/go-audio-resampler.
package polyphase

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	resampler "github.com/tphakala/go-audio-resampler"
)

// Converter runs one mono filter engine per channel. Output which does
// not fit into the caller's buffer is kept and delivered first on the
// next call.
type Converter struct {
	options  Options
	channels int
	ratio    float64
	engines  []*resampler.SimpleResamplerFloat32
	planar   [][]float32
	outs     [][]float32
	spill    []float32
}

// New returns an unconfigured Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		options: Options{
			Quality: resampler.QualityMedium,
		},
	}
	for _, opt := range opts {
		opt(&c.options)
	}
	return c
}

func (c *Converter) Configure(srcRate, dstRate, channels int) error {
	if channels <= 0 {
		return fmt.Errorf("polyphase: invalid channel count %d", channels)
	}

	engines := make([]*resampler.SimpleResamplerFloat32, channels)
	for i := range engines {
		e, err := resampler.NewEngineFloat32(float64(srcRate), float64(dstRate), c.options.Quality)
		if err != nil {
			return fmt.Errorf("polyphase: %w", err)
		}
		engines[i] = e
	}

	c.engines = engines
	c.channels = channels
	c.ratio = float64(dstRate) / float64(srcRate)
	c.planar = make([][]float32, channels)
	c.outs = make([][]float32, channels)
	c.spill = c.spill[:0]
	return nil
}

func (c *Converter) Resample(dst, src []float32) (int, int) {
	ch := c.channels
	if ch == 0 {
		return 0, 0
	}

	produced := copy(dst, c.spill)
	c.spill = c.spill[:copy(c.spill, c.spill[produced:])]
	if len(c.spill) > 0 || produced == len(dst) {
		return produced, 0
	}

	// feed only about as many frames as the free space can take
	free := (len(dst) - produced) / ch
	frames := min(len(src)/ch, int(math.Ceil(float64(free)/c.ratio))+1)
	if frames <= 0 {
		return produced, 0
	}

	for k := 0; k < ch; k++ {
		if cap(c.planar[k]) < frames {
			c.planar[k] = make([]float32, frames)
		}
		p := c.planar[k][:frames]
		for f := range p {
			p[f] = src[f*ch+k]
		}
		out, err := c.engines[k].Process(p)
		if err != nil {
			log.Debug().Err(err).Msg("polyphase: dropping input")
			return produced, frames * ch
		}
		c.outs[k] = out
	}

	n := len(c.outs[0])
	for k := 1; k < ch; k++ {
		n = min(n, len(c.outs[k]))
	}

	for f := 0; f < n; f++ {
		for k := 0; k < ch; k++ {
			v := c.outs[k][f]
			if produced < len(dst) {
				dst[produced] = v
				produced++
			} else {
				c.spill = append(c.spill, v)
			}
		}
	}
	return produced, frames * ch
}

func (c *Converter) Discard() {
	for _, e := range c.engines {
		e.Reset()
	}
	c.spill = c.spill[:0]
}

func (c *Converter) Close() error {
	c.engines = nil
	return nil
}
