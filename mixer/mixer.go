// Package mixer mixes any number of audio streams into the buffer of an
// output device. The device drives the Mixer from its own real-time
// callback through the audio.Filler interface.
package mixer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/events"
)

// Device is an audio output. Open negotiates the output format, which
// may differ from the requested one, and registers the Filler which the
// device calls from its callback once it has been started.
type Device interface {
	Open(want audio.Spec, f audio.Filler) (audio.Spec, error)
	Start() error
	Close() error
}

// Mixer sums all active streams into the device buffer. A single mutex
// guards the registry of active streams and the control state of every
// stream. The device callback only holds it for short critical
// sections and never while decoding.
type Mixer struct {
	mu      sync.Mutex
	options Options
	dev     Device
	spec    audio.Spec
	convert audio.SampleConverter
	width   int
	streams []*Stream

	// only touched by the device callback
	snap      []*Stream
	mixBuf    []float32
	streamBuf []float32
	procBuf   []float32
}

// New returns a Mixer which is not attached to a device yet.
func New(opts ...Option) *Mixer {
	m := &Mixer{
		options: Options{
			Clock: time.Now,
		},
	}
	for _, opt := range opts {
		opt(&m.options)
	}
	if m.options.Clock == nil {
		m.options.Clock = time.Now
	}
	return m
}

// Start opens and starts dev. The channel count is clamped to mono or
// stereo before the device is asked for the format.
func (m *Mixer) Start(dev Device, want audio.Spec) error {
	m.mu.Lock()
	started := m.dev != nil
	m.mu.Unlock()
	if started {
		return errors.New("mixer: already started")
	}

	want.Channels = audio.ClampChannels(want.Channels)
	if err := want.Validate(); err != nil {
		audio.SetLastError(err)
		return err
	}

	spec, err := dev.Open(want, m)
	if err != nil {
		err = fmt.Errorf("mixer: opening device: %w", err)
		audio.SetLastError(err)
		return err
	}

	conv, err := audio.ConverterFor(spec.Format)
	if err == nil {
		err = spec.Validate()
	}
	if err != nil {
		dev.Close()
		err = fmt.Errorf("mixer: device negotiated unusable format %s: %w", spec, err)
		audio.SetLastError(err)
		return err
	}

	m.mu.Lock()
	m.dev = dev
	m.spec = spec
	m.convert = conv
	m.width = spec.Format.Width()
	m.mu.Unlock()

	if err := dev.Start(); err != nil {
		dev.Close()
		m.mu.Lock()
		m.dev = nil
		m.spec = audio.Spec{}
		m.mu.Unlock()
		err = fmt.Errorf("mixer: starting device: %w", err)
		audio.SetLastError(err)
		return err
	}

	log.Info().Str("spec", spec.String()).Msg("mixer started")
	return nil
}

// Close stops all streams without fading and closes the device. It is
// safe to call Close more than once.
func (m *Mixer) Close() error {
	m.mu.Lock()
	dev := m.dev
	stopped := make([]*Stream, len(m.streams))
	copy(stopped, m.streams)
	for _, s := range stopped {
		s.stopLocked()
	}
	m.dev = nil
	m.mu.Unlock()

	for _, s := range stopped {
		s.rewind()
	}

	if dev == nil {
		return nil
	}
	err := dev.Close()

	m.mu.Lock()
	m.spec = audio.Spec{}
	m.mu.Unlock()

	log.Info().Msg("mixer closed")
	return err
}

// Spec returns the negotiated output format. It is the zero Spec while
// the Mixer is not started.
func (m *Mixer) Spec() audio.Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spec
}

// Streams returns the streams which are currently registered for
// playback, including paused ones.
func (m *Mixer) Streams() []*Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	streams := make([]*Stream, len(m.streams))
	copy(streams, m.streams)
	return streams
}

// StopAll stops every registered stream.
func (m *Mixer) StopAll(fadeTime time.Duration) {
	for _, s := range m.Streams() {
		s.Stop(fadeTime)
	}
}

// Fill renders len(out) bytes in the negotiated sample format.
func (m *Mixer) Fill(out []byte) {
	if m.width == 0 {
		clear(out)
		return
	}
	n := len(out) / m.width
	m.mixBuf = resize(m.mixBuf, n)
	m.render(m.mixBuf)
	m.convert(out, m.mixBuf)
	clear(out[n*m.width:])
}

// FillFloat32 renders directly into a float32 device buffer. The result
// is clipped to [-1, 1].
func (m *Mixer) FillFloat32(out []float32) {
	m.render(out)
	for i, v := range out {
		out[i] = clamp(v, -1, 1)
	}
}

func (m *Mixer) render(dst []float32) {
	start := time.Now()
	n := len(dst)
	m.streamBuf = resize(m.streamBuf, n)
	m.procBuf = resize(m.procBuf, n)
	clear(dst)

	m.mu.Lock()
	m.snap = append(m.snap[:0], m.streams...)
	channels := m.spec.Channels
	m.mu.Unlock()

	now := m.options.Clock()
	for _, s := range m.snap {
		s.mix(dst, m.streamBuf, m.procBuf, channels, now)
	}

	active := len(m.snap)
	clear(m.snap)
	m.snap = m.snap[:0]
	m.options.Metrics.callback(time.Since(start), active)
}

// resize reslices buf to n samples and only allocates when the capacity
// is too small.
func resize(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

// register and unregister must be called with m.mu held.
func (m *Mixer) register(s *Stream) {
	for _, r := range m.streams {
		if r == s {
			return
		}
	}
	m.streams = append(m.streams, s)
}

func (m *Mixer) unregister(s *Stream) {
	for i, r := range m.streams {
		if r == s {
			copy(m.streams[i:], m.streams[i+1:])
			m.streams[len(m.streams)-1] = nil
			m.streams = m.streams[:len(m.streams)-1]
			return
		}
	}
}

func (m *Mixer) publish(typ string, s *Stream) {
	m.options.Events.Publish(events.Event{
		Type:   typ,
		Stream: s.name,
		Time:   m.options.Clock(),
	})
}
