package audio

import (
	"io"
	"time"
)

// Decoder is the interface which is implemented by every audio format
// adapter. A Decoder is constructed empty and bound to its byte source
// with Open. Channels and Rate report the native format of the decoded
// data and are only valid after a successful Open.
type Decoder interface {
	// Open binds the decoder to src. A failed Open leaves the decoder
	// closed.
	Open(src io.ReadSeeker) error
	IsOpen() bool
	Channels() int
	Rate() int
	// Decode writes up to len(buf) interleaved samples into buf and
	// returns the number of samples written. 0 means the decoder is
	// exhausted (or failed). callAgain reports that the native format
	// changed; callers must re-query Channels and Rate before asking
	// for more data.
	Decode(buf []float32) (n int, callAgain bool)
	Rewind() error
	// SeekToTime moves the decode position. On failure the position is
	// left unchanged.
	SeekToTime(pos time.Duration) error
	// Duration returns 0 if the duration can not be determined.
	Duration() time.Duration
	Close() error
}

// Processor is implemented by audio nodes which transform the samples
// of a Stream before they are mixed. dst and src always have the same
// length, which may be zero. A Processor shared between several streams
// must not keep per-stream state.
type Processor interface {
	Process(dst, src []float32)
}

// ProcessorFunc is an adapter to use an ordinary function as a Processor.
type ProcessorFunc func(dst, src []float32)

// Process calls f(dst, src).
func (f ProcessorFunc) Process(dst, src []float32) {
	f(dst, src)
}

// Filler is implemented by the mixer and called by an output device
// from its real-time callback. Fill renders into a buffer in the
// negotiated sample format; FillFloat32 renders native float32 samples.
type Filler interface {
	Fill(out []byte)
	FillFloat32(out []float32)
}

// FramesToDuration converts a number of frames at the given rate into
// a time.Duration.
func FramesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 || frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// DurationToFrames converts a time.Duration into a number of frames at
// the given rate.
func DurationToFrames(d time.Duration, rate int) int64 {
	if rate <= 0 || d <= 0 {
		return 0
	}
	return int64(d) * int64(rate) / int64(time.Second)
}
