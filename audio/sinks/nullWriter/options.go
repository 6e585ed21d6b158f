package nullWriter

import "time"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for a null writer.
type Options struct {
	Interval time.Duration
	Tap      func(buf []byte)
}

// Interval is a functional option to override the callback period. By
// default the writer runs in real time, one buffer per FrameSize frames.
func Interval(d time.Duration) Option {
	return func(args *Options) {
		args.Interval = d
	}
}

// Tap is a functional option to register a function which receives every
// rendered buffer. The buffer is reused after tap returns.
func Tap(tap func(buf []byte)) Option {
	return func(args *Options) {
		args.Tap = tap
	}
}
