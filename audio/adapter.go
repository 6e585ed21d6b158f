package audio

import (
	"io"
	"time"
)

// ChannelAdapter wraps a Decoder and converts its native channel layout
// into the channel count of the pipeline. Mono is duplicated into both
// channels of a stereo target; stereo is averaged into a mono target.
// When the channel counts match, Decode is passed straight through.
//
// ChannelAdapter is itself a Decoder which reports the target channel
// count and the native sample rate.
type ChannelAdapter struct {
	dec      Decoder
	channels int
	scratch  []float32
}

// NewChannelAdapter returns a ChannelAdapter which delivers the samples
// of dec with the given number of channels (1 or 2).
func NewChannelAdapter(dec Decoder, channels int) *ChannelAdapter {
	return &ChannelAdapter{
		dec:      dec,
		channels: ClampChannels(channels),
	}
}

// Decoder returns the wrapped decoder.
func (a *ChannelAdapter) Decoder() Decoder {
	return a.dec
}

// Decode fills buf with samples in the target channel layout. Decode
// delegates to the wrapped decoder and therefore reports callAgain the
// same way.
func (a *ChannelAdapter) Decode(buf []float32) (int, bool) {
	if !a.dec.IsOpen() {
		return 0, false
	}
	srcCh := a.dec.Channels()
	dstCh := a.channels

	switch {
	case srcCh == dstCh:
		return a.dec.Decode(buf)

	case srcCh == 1 && dstCh == 2:
		// decode into the front half and expand from the back so that
		// no sample is overwritten before it has been copied
		n, again := a.dec.Decode(buf[:len(buf)/2])
		for i := n - 1; i >= 0; i-- {
			v := buf[i]
			buf[2*i+1] = v
			buf[2*i] = v
		}
		return n * 2, again
	}

	if srcCh < 1 {
		return 0, false
	}

	frames := len(buf) / dstCh
	src := a.grow(frames * srcCh)
	n, again := a.dec.Decode(src)
	n -= n % srcCh
	src = src[:n]

	switch {
	case srcCh == 2 && dstCh == 1:
		for i := 0; i < n/2; i++ {
			buf[i] = src[2*i]*0.5 + src[2*i+1]*0.5
		}
		return n / 2, again

	case dstCh == 1:
		// more than two native channels into mono: plain average
		gain := 1 / float32(srcCh)
		for f := 0; f < n/srcCh; f++ {
			var sum float32
			for c := 0; c < srcCh; c++ {
				sum += src[f*srcCh+c]
			}
			buf[f] = sum * gain
		}
		return n / srcCh, again

	default:
		// more than two native channels into stereo: front left/right
		for f := 0; f < n/srcCh; f++ {
			buf[2*f] = src[f*srcCh]
			buf[2*f+1] = src[f*srcCh+1]
		}
		return (n / srcCh) * 2, again
	}
}

// grow returns the scratch buffer resliced to exactly n samples. It is
// reallocated only when its capacity is too small.
func (a *ChannelAdapter) grow(n int) []float32 {
	if cap(a.scratch) < n {
		a.scratch = make([]float32, n)
	}
	a.scratch = a.scratch[:n]
	return a.scratch
}

func (a *ChannelAdapter) Open(src io.ReadSeeker) error       { return a.dec.Open(src) }
func (a *ChannelAdapter) IsOpen() bool                       { return a.dec.IsOpen() }
func (a *ChannelAdapter) Channels() int                      { return a.channels }
func (a *ChannelAdapter) Rate() int                          { return a.dec.Rate() }
func (a *ChannelAdapter) Rewind() error                      { return a.dec.Rewind() }
func (a *ChannelAdapter) SeekToTime(pos time.Duration) error { return a.dec.SeekToTime(pos) }
func (a *ChannelAdapter) Duration() time.Duration            { return a.dec.Duration() }
func (a *ChannelAdapter) Close() error                       { return a.dec.Close() }
