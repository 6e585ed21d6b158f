package nullWriter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dh1tw/streamMixer/audio"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingFiller struct {
	mu    sync.Mutex
	calls int
	size  int
}

func (c *countingFiller) Fill(out []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.size = len(out)
	for i := range out {
		out[i] = 1
	}
}

func (c *countingFiller) FillFloat32(out []float32) {}

func (c *countingFiller) get() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.size
}

func TestNullWriterDrivesFiller(t *testing.T) {
	spec := audio.Spec{Rate: 48000, Format: audio.FormatS16LSB, Channels: 2, FrameSize: 480}
	tapped := make(chan int, 100)
	w := NewNullWriter(Interval(time.Millisecond), Tap(func(buf []byte) {
		select {
		case tapped <- len(buf):
		default:
		}
	}))

	f := &countingFiller{}
	got, err := w.Open(spec, f)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start(), "starting twice is a no-op")

	select {
	case n := <-tapped:
		assert.Equal(t, 480*2*2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no buffer rendered")
	}

	require.NoError(t, w.Close())
	calls, size := f.get()
	assert.Positive(t, calls)
	assert.Equal(t, 1920, size)
	assert.GreaterOrEqual(t, w.Buffers(), uint64(calls))

	// no more callbacks after Close
	time.Sleep(5 * time.Millisecond)
	after, _ := f.get()
	assert.Equal(t, calls, after)

	assert.NoError(t, w.Close())
}

func TestNullWriterErrors(t *testing.T) {
	w := NewNullWriter()
	assert.Error(t, w.Start(), "not open")

	_, err := w.Open(audio.Spec{Rate: 44100, Channels: 2, FrameSize: 0, Format: audio.FormatS16LSB}, &countingFiller{})
	assert.ErrorIs(t, err, audio.ErrInvalidSpec)

	spec := audio.Spec{Rate: 44100, Format: audio.FormatU8, Channels: 1, FrameSize: 64}
	_, err = w.Open(spec, &countingFiller{})
	require.NoError(t, err)
	_, err = w.Open(spec, &countingFiller{})
	assert.Error(t, err, "already open")
	assert.NoError(t, w.Close())
}
