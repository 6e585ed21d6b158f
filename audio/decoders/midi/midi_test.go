package midi

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh1tw/streamMixer/audio"
)

// rampStreamer renders frame i as (i, -i) on both channels.
type rampStreamer struct {
	pos, len int
	closed   bool
	seekErr  error
}

func (r *rampStreamer) Stream(samples [][2]float64) (int, bool) {
	if r.pos >= r.len {
		return 0, false
	}
	n := min(len(samples), r.len-r.pos)
	for i := range samples[:n] {
		samples[i] = [2]float64{float64(r.pos + i), -float64(r.pos + i)}
	}
	r.pos += n
	return n, true
}

func (r *rampStreamer) Err() error    { return nil }
func (r *rampStreamer) Len() int      { return r.len }
func (r *rampStreamer) Position() int { return r.pos }

func (r *rampStreamer) Seek(p int) error {
	if r.seekErr != nil {
		return r.seekErr
	}
	r.pos = p
	return nil
}

type closingStreamer struct {
	rampStreamer
}

func (c *closingStreamer) Close() error {
	c.closed = true
	return nil
}

func TestOpenWithoutSoundFont(t *testing.T) {
	d := New(nil, 0)
	assert.ErrorIs(t, d.Open(bytes.NewReader([]byte("MThd"))), audio.ErrNoSoundFont)
	assert.False(t, d.IsOpen())
	assert.Equal(t, DefaultRate, d.Rate())
}

func TestDecode(t *testing.T) {
	d := New(nil, 1000)
	d.attach(&rampStreamer{len: 5})

	assert.Equal(t, 2, d.Channels())
	assert.Equal(t, 5*time.Millisecond, d.Duration())

	buf := make([]float32, 6)
	n, callAgain := d.Decode(buf)
	require.Equal(t, 6, n)
	assert.False(t, callAgain)
	assert.Equal(t, []float32{0, 0, 1, -1, 2, -2}, buf)

	n, _ = d.Decode(buf)
	require.Equal(t, 4, n)
	assert.Equal(t, []float32{3, -3, 4, -4}, buf[:n])

	n, _ = d.Decode(buf)
	assert.Zero(t, n, "exhausted")
}

func TestSeek(t *testing.T) {
	s := &rampStreamer{len: 100}
	d := New(nil, 1000)
	d.attach(s)

	require.NoError(t, d.SeekToTime(10*time.Millisecond))
	assert.Equal(t, 10, s.Position())

	require.NoError(t, d.SeekToTime(time.Second))
	assert.Equal(t, 100, s.Position(), "seeking past the end clamps")

	require.NoError(t, d.Rewind())
	assert.Zero(t, s.Position())

	s.seekErr = errors.New("broken")
	assert.ErrorIs(t, d.SeekToTime(0), audio.ErrNotSeekable)
}

func TestClose(t *testing.T) {
	d := New(nil, 1000)
	d.attach(&rampStreamer{len: 1})
	require.NoError(t, d.Close())
	assert.False(t, d.IsOpen())
	assert.ErrorIs(t, d.SeekToTime(0), audio.ErrNotOpen)

	c := &closingStreamer{rampStreamer{len: 1}}
	d.attach(c)
	require.NoError(t, d.Close())
	assert.True(t, c.closed)
	assert.NoError(t, d.Close(), "closing twice is a no-op")
}
