package webserver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dh1tw/streamMixer/events"
	"github.com/dh1tw/streamMixer/mixer"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters of the status webserver.
type Options struct {
	Address     string
	Mixer       *mixer.Mixer
	Events      *events.Bus
	Gatherer    prometheus.Gatherer
	HistorySize int
}

// Address is a functional option to set the listen address, e.g.
// "127.0.0.1:9090".
func Address(addr string) Option {
	return func(args *Options) {
		args.Address = addr
	}
}

// Mixer is a functional option to set the mixer whose state is served.
func Mixer(m *mixer.Mixer) Option {
	return func(args *Options) {
		args.Mixer = m
	}
}

// Events is a functional option to set the event bus which feeds the
// event history and the websocket clients.
func Events(bus *events.Bus) Option {
	return func(args *Options) {
		args.Events = bus
	}
}

// Gatherer is a functional option to set the prometheus registry exposed
// on /metrics. Without a Gatherer the route is not registered.
func Gatherer(g prometheus.Gatherer) Option {
	return func(args *Options) {
		args.Gatherer = g
	}
}

// HistorySize is a functional option to set how many recent events are
// kept for /api/v1.0/events.
func HistorySize(n int) Option {
	return func(args *Options) {
		args.HistorySize = n
	}
}
