package libsamplerate

import "github.com/dh1tw/gosamplerate"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for the libsamplerate converter.
type Options struct {
	ConverterType int
	BufferLen     int
}

// ConverterType is a functional option to select the libsamplerate
// algorithm. By default gosamplerate.SRC_SINC_FASTEST is used.
func ConverterType(t int) Option {
	return func(args *Options) {
		args.ConverterType = t
	}
}

// BufferLen is a functional option to set the size (in samples) of the
// libsamplerate output buffer.
func BufferLen(n int) Option {
	return func(args *Options) {
		args.BufferLen = n
	}
}

// ParseQuality maps a quality name onto a libsamplerate converter type.
func ParseQuality(name string) (int, bool) {
	switch name {
	case "best", "veryhigh":
		return gosamplerate.SRC_SINC_BEST_QUALITY, true
	case "medium", "high":
		return gosamplerate.SRC_SINC_MEDIUM_QUALITY, true
	case "fastest", "low":
		return gosamplerate.SRC_SINC_FASTEST, true
	case "linear":
		return gosamplerate.SRC_LINEAR, true
	case "zoh", "quick":
		return gosamplerate.SRC_ZERO_ORDER_HOLD, true
	}
	return gosamplerate.SRC_SINC_FASTEST, false
}
