// Package decoders assembles the registry of all supported sound file
// formats.
package decoders

import (
	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/decoders/aiff"
	"github.com/dh1tw/streamMixer/audio/decoders/flac"
	"github.com/dh1tw/streamMixer/audio/decoders/midi"
	"github.com/dh1tw/streamMixer/audio/decoders/mp3"
	"github.com/dh1tw/streamMixer/audio/decoders/raw"
	"github.com/dh1tw/streamMixer/audio/decoders/vorbis"
	"github.com/dh1tw/streamMixer/audio/decoders/wav"
)

// Option is the type for a function option
type Option func(*Options)

// Options configure the default registry.
type Options struct {
	SoundFont *midi.SoundFont
	MidiRate  int
	Raw       []raw.Option
}

// SoundFont enables MIDI playback with the given instrument bank.
func SoundFont(sf *midi.SoundFont) Option {
	return func(args *Options) {
		args.SoundFont = sf
	}
}

// MidiRate sets the rate at which MIDI files are synthesized.
func MidiRate(rate int) Option {
	return func(args *Options) {
		args.MidiRate = rate
	}
}

// Raw sets the layout assumed by the raw PCM decoder.
func Raw(opts ...raw.Option) Option {
	return func(args *Options) {
		args.Raw = opts
	}
}

// NewRegistry returns a registry with every supported decoder. Formats
// with a reliable signature are probed first; mp3 comes last among the
// auto detected formats since its frame sync scan accepts a lot. The
// MIDI decoder is only probed when a SoundFont is configured and raw
// PCM has to be requested by name.
func NewRegistry(opts ...Option) *audio.Registry {
	o := Options{
		MidiRate: midi.DefaultRate,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := audio.NewRegistry()
	r.Register("vorbis", vorbis.New, true)
	r.Register("flac", flac.New, true)
	r.Register("wav", wav.New, true)
	r.Register("aiff", aiff.New, true)
	r.Register("mp3", mp3.New, true)
	r.Register("midi", midi.Factory(o.SoundFont, o.MidiRate), o.SoundFont != nil)
	r.Register("raw", raw.Factory(o.Raw...), false)
	return r
}
