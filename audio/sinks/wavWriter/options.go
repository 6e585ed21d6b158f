package wavWriter

import "time"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for a wav writer.
type Options struct {
	BitDepth int
	Interval time.Duration
}

// BitDepth is a functional option to set the resolution of the recorded
// samples. Supported are 16, 24 and 32 bit. Default is 16 bit.
func BitDepth(b int) Option {
	return func(args *Options) {
		args.BitDepth = b
	}
}

// Interval is a functional option to override the callback period. By
// default the writer runs in real time, one buffer per FrameSize frames.
// Fades are timed on the wall clock, so a shorter interval speeds up
// the recording but compresses all fades.
func Interval(d time.Duration) Option {
	return func(args *Options) {
		args.Interval = d
	}
}
