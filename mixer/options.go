package mixer

import (
	"time"

	"github.com/dh1tw/streamMixer/events"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the optional collaborators of a Mixer.
type Options struct {
	Clock   func() time.Time
	Metrics *Metrics
	Events  *events.Bus
}

// Clock is a functional option to replace the wall clock which drives
// the fade envelopes.
func Clock(now func() time.Time) Option {
	return func(args *Options) {
		args.Clock = now
	}
}

// WithMetrics is a functional option to record the mixer's activity.
func WithMetrics(m *Metrics) Option {
	return func(args *Options) {
		args.Metrics = m
	}
}

// EventBus is a functional option to publish stream lifecycle events.
func EventBus(b *events.Bus) Option {
	return func(args *Options) {
		args.Events = b
	}
}
