package mixer

import (
	"errors"
	"io"
	"sync"

	"github.com/dh1tw/streamMixer/audio"
)

// The process wide mixer. Most programs have exactly one output device
// and use Init, Default and Quit instead of managing a Mixer themselves.
var (
	sessionMu sync.Mutex
	session   *Mixer
)

// Init creates the process wide Mixer and starts it on dev. On failure
// nothing is initialized and the reason is also available through
// audio.LastError.
func Init(dev Device, want audio.Spec, opts ...Option) error {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	if session != nil {
		return errors.New("mixer: already initialized")
	}

	m := New(opts...)
	if err := m.Start(dev, want); err != nil {
		return err
	}
	session = m
	return nil
}

// Quit stops all streams and closes the device of the process wide
// Mixer. It is safe to call Quit several times, or without Init. Go has
// no exit hooks, so programs should defer Quit after a successful Init.
func Quit() {
	sessionMu.Lock()
	m := session
	session = nil
	sessionMu.Unlock()

	if m != nil {
		m.Close()
	}
}

// Default returns the process wide Mixer, or nil if Init has not been
// called.
func Default() *Mixer {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return session
}

// NewStream creates a Stream on the process wide Mixer. It fails with
// audio.ErrNotInitialized before Init.
func NewStream(name string, dec audio.Decoder, res *audio.Resampler, src io.ReadSeeker) (*Stream, error) {
	m := Default()
	if m == nil {
		return nil, audio.ErrNotInitialized
	}
	return m.NewStream(name, dec, res, src), nil
}
