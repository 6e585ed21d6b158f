// Package cubic implements a pure Go sample rate converter based on
// Catmull-Rom cubic interpolation. It has no external dependencies and
// is the fallback when no library based converter is available.
package cubic

import (
	"fmt"
)

// number of frames kept from the previous call
const histFrames = 3

// Converter is an audio.Converter which interpolates between source
// frames with a Catmull-Rom spline.
type Converter struct {
	channels int
	step     float64 // source frames per output frame
	pos      float64 // read position; frames [0,histFrames) are history
	hist     []float32
	tmp      []float32
	primed   bool
}

// New returns an unconfigured Converter.
func New() *Converter {
	return &Converter{}
}

func (c *Converter) Configure(srcRate, dstRate, channels int) error {
	if srcRate <= 0 || dstRate <= 0 || channels <= 0 {
		return fmt.Errorf("cubic: invalid conversion %dHz -> %dHz, %d channels", srcRate, dstRate, channels)
	}
	c.channels = channels
	c.step = float64(srcRate) / float64(dstRate)
	c.hist = make([]float32, histFrames*channels)
	c.tmp = make([]float32, histFrames*channels)
	c.Discard()
	return nil
}

func (c *Converter) Discard() {
	c.pos = histFrames
	c.primed = false
	clear(c.hist)
}

func (c *Converter) Close() error {
	return nil
}

// Resample interpolates the output frames which can be computed from
// the history and src. Source frames which are still needed as the
// left neighbour of the next output frame are reported as unconsumed.
func (c *Converter) Resample(dst, src []float32) (int, int) {
	ch := c.channels
	if ch == 0 {
		return 0, 0
	}
	srcFrames := len(src) / ch
	if srcFrames == 0 {
		return 0, 0
	}

	if !c.primed {
		for k := 0; k < histFrames; k++ {
			copy(c.hist[k*ch:(k+1)*ch], src[:ch])
		}
		c.primed = true
	}

	total := histFrames + srcFrames
	dstFrames := len(dst) / ch
	produced := 0

	for produced < dstFrames {
		i := int(c.pos)
		if i+2 >= total {
			break
		}
		x := float32(c.pos - float64(i))
		for k := 0; k < ch; k++ {
			dst[produced*ch+k] = Interpolate(
				c.frame(src, i-1, k),
				c.frame(src, i, k),
				c.frame(src, i+1, k),
				c.frame(src, i+2, k),
				x,
			)
		}
		produced++
		c.pos += c.step
	}

	consumed := min(srcFrames, int(c.pos)-1)
	if consumed < 0 {
		consumed = 0
	}
	for k := 0; k < histFrames; k++ {
		for j := 0; j < ch; j++ {
			c.tmp[k*ch+j] = c.frame(src, consumed+k, j)
		}
	}
	copy(c.hist, c.tmp)
	c.pos -= float64(consumed)

	return produced * ch, consumed * ch
}

// frame returns channel ch of frame idx of the history followed by src.
func (c *Converter) frame(src []float32, idx, ch int) float32 {
	if idx < histFrames {
		return c.hist[idx*c.channels+ch]
	}
	return src[(idx-histFrames)*c.channels+ch]
}

// Interpolate returns the Catmull-Rom interpolation between y1 and y2
// at x in [0, 1), using y0 and y3 as outer control points.
func Interpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
