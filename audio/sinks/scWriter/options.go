package scWriter

import "time"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a sound card writer.
type Options struct {
	HostAPI    string
	DeviceName string
	Latency    time.Duration
}

// HostAPI is a functional option to enforce the usage of a particular
// audio host API
func HostAPI(hostAPI string) Option {
	return func(args *Options) {
		args.HostAPI = hostAPI
	}
}

// DeviceName is a functional option to specify the name of the
// Audio device
func DeviceName(name string) Option {
	return func(args *Options) {
		args.DeviceName = name
	}
}

// Latency is a functional option to set the latency of the audio device.
// A latency of 0 selects the device's default low output latency.
func Latency(t time.Duration) Option {
	return func(args *Options) {
		args.Latency = t
	}
}
