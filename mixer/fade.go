package mixer

import (
	"time"

	"github.com/chewxy/math32"
)

// fade describes a running volume envelope. The envelope is evaluated
// once per device callback.
type fade struct {
	active bool
	in     bool
	start  time.Time
	length time.Duration
	// what happens when a fade-out reaches zero
	stopAfter bool
}

// progress returns the elapsed fraction of the fade, clamped to [0,1].
func (f *fade) progress(now time.Time) float32 {
	if f.length <= 0 {
		return 1
	}
	t := float32(now.Sub(f.start)) / float32(f.length)
	return clamp(t, 0, 1)
}

// fadeVolume returns the internal volume at progress t. Fade-ins follow
// t^3, fade-outs (1-t)^3.
func fadeVolume(t float32, in bool) float32 {
	t = clamp(t, 0, 1)
	if in {
		return t * t * t
	}
	u := 1 - t
	return u * u * u
}

// panGains splits gain across the two output channels. Positive
// positions attenuate the left channel, negative ones the right.
func panGains(gain, pos float32) (left, right float32) {
	pos = clamp(pos, -1, 1)
	left = gain * (1 - math32.Max(pos, 0))
	right = gain * (1 + math32.Min(pos, 0))
	return left, right
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
