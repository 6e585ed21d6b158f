package malgoWriter

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a malgo writer.
type Options struct {
	Backend    string
	DeviceName string
}

// Backend is a functional option to select the miniaudio backend, e.g.
// "alsa", "pulseaudio", "wasapi" or "coreaudio". "default" picks one for
// the current platform.
func Backend(name string) Option {
	return func(args *Options) {
		args.Backend = name
	}
}

// DeviceName is a functional option to select the playback device by
// name, decoded ID or a part of its name.
func DeviceName(name string) Option {
	return func(args *Options) {
		args.DeviceName = name
	}
}
