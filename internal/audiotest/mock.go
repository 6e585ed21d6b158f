// Package audiotest contains test doubles for the audio pipeline. It
// does not import the audio package so that the audio package's own
// tests can use it.
package audiotest

import (
	"errors"
	"io"
	"math"
	"sync"
	"time"
)

var (
	ErrOpen     = errors.New("mock: open failed")
	ErrNotOpen  = errors.New("mock: decoder not open")
	ErrSeekable = errors.New("mock: not seekable")
)

// MockDecoder generates samples from a waveform function. It implements
// the audio.Decoder interface.
type MockDecoder struct {
	rate     int
	channels int
	frames   int // total frames per pass
	waveform func(frame, channel int) float32

	pos      int // frames generated so far
	open     bool
	openErr  error
	seekable bool
	maxRead  int // max samples per Decode call, 0 = unlimited

	// format switch after switchAt frames
	switchAt       int
	switchRate     int
	switchChannels int
	switched       bool

	DecodeCalls int
	Rewinds     int
	Closed      bool
}

// NewMockDecoder returns a decoder producing frames frames of waveform.
func NewMockDecoder(rate, channels, frames int, waveform func(frame, channel int) float32) *MockDecoder {
	return &MockDecoder{
		rate:     rate,
		channels: channels,
		frames:   frames,
		waveform: waveform,
		seekable: true,
		switchAt: -1,
	}
}

// NewConstantDecoder returns a decoder which emits value on all channels.
func NewConstantDecoder(rate, channels, frames int, value float32) *MockDecoder {
	return NewMockDecoder(rate, channels, frames, func(int, int) float32 { return value })
}

// NewRampDecoder returns a decoder emitting frame*channels+channel, which
// makes every sample unique.
func NewRampDecoder(rate, channels, frames int) *MockDecoder {
	return NewMockDecoder(rate, channels, frames, func(f, c int) float32 {
		return float32(f*channels + c)
	})
}

// NewSineDecoder returns a decoder emitting a sine wave on all channels.
func NewSineDecoder(rate, channels, frames int, freq float64) *MockDecoder {
	return NewMockDecoder(rate, channels, frames, func(f, c int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(f) / float64(rate)))
	})
}

// FailOpen makes Open return err.
func (m *MockDecoder) FailOpen(err error) *MockDecoder {
	m.openErr = err
	return m
}

// NotSeekable makes SeekToTime fail.
func (m *MockDecoder) NotSeekable() *MockDecoder {
	m.seekable = false
	return m
}

// LimitRead caps the number of samples returned by a single Decode call.
func (m *MockDecoder) LimitRead(n int) *MockDecoder {
	m.maxRead = n
	return m
}

// SwitchFormat makes the decoder change to rate/channels after frame
// frames have been produced. The Decode call hitting the boundary
// reports callAgain.
func (m *MockDecoder) SwitchFormat(frame, rate, channels int) *MockDecoder {
	m.switchAt = frame
	m.switchRate = rate
	m.switchChannels = channels
	return m
}

// Position returns the number of frames produced since the last rewind.
func (m *MockDecoder) Position() int { return m.pos }

func (m *MockDecoder) Open(src io.ReadSeeker) error {
	if m.openErr != nil {
		return m.openErr
	}
	m.open = true
	return nil
}

func (m *MockDecoder) IsOpen() bool  { return m.open }
func (m *MockDecoder) Channels() int { return m.channels }
func (m *MockDecoder) Rate() int     { return m.rate }

func (m *MockDecoder) Decode(buf []float32) (int, bool) {
	m.DecodeCalls++
	if !m.open || m.pos >= m.frames {
		return 0, false
	}

	ch := m.channels
	n := len(buf)
	if m.maxRead > 0 && n > m.maxRead {
		n = m.maxRead
	}
	frames := n / ch
	if frames > m.frames-m.pos {
		frames = m.frames - m.pos
	}

	again := false
	if !m.switched && m.switchAt >= 0 && m.pos+frames >= m.switchAt {
		frames = m.switchAt - m.pos
		again = true
	}

	for f := 0; f < frames; f++ {
		for c := 0; c < ch; c++ {
			buf[f*ch+c] = m.waveform(m.pos+f, c)
		}
	}
	m.pos += frames

	if again {
		m.switched = true
		m.rate = m.switchRate
		m.channels = m.switchChannels
	}
	return frames * ch, again
}

func (m *MockDecoder) Rewind() error {
	if !m.open {
		return ErrNotOpen
	}
	m.Rewinds++
	m.pos = 0
	return nil
}

func (m *MockDecoder) SeekToTime(pos time.Duration) error {
	if !m.open {
		return ErrNotOpen
	}
	if !m.seekable {
		return ErrSeekable
	}
	frame := int(int64(pos) * int64(m.rate) / int64(time.Second))
	if frame > m.frames {
		frame = m.frames
	}
	m.pos = frame
	return nil
}

func (m *MockDecoder) Duration() time.Duration {
	return time.Duration(m.frames) * time.Second / time.Duration(m.rate)
}

func (m *MockDecoder) Close() error {
	m.Closed = true
	m.open = false
	return nil
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock starting at an arbitrary fixed time.
func NewClock() *Clock {
	return &Clock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
