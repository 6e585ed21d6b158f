package raw

import "github.com/dh1tw/streamMixer/audio"

// Option is the type for a function option
type Option func(*Options)

// Options describe the layout of the headerless sample data.
type Options struct {
	Rate     int
	Channels int
	Format   audio.SampleFormat
}

// Rate is a functional option to set the sample rate of the data.
func Rate(r int) Option {
	return func(args *Options) {
		args.Rate = r
	}
}

// Channels is a functional option to set the number of interleaved
// channels.
func Channels(ch int) Option {
	return func(args *Options) {
		args.Channels = ch
	}
}

// Format is a functional option to set the sample format.
func Format(f audio.SampleFormat) Option {
	return func(args *Options) {
		args.Format = f
	}
}
