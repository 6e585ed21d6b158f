package vox

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dh1tw/streamMixer/internal/audiotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func constant(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestRMS(t *testing.T) {
	assert.InDelta(t, 0.5, rms(constant(64, 0.5)), 1e-6)
	assert.InDelta(t, 0.5, rms([]float32{0.5, -0.5}), 1e-6)
	assert.InDelta(t, 0, rms(constant(8, 0)), 1e-6)
}

func TestPassThrough(t *testing.T) {
	v := New()
	src := []float32{0.1, -0.2, 0.3}
	dst := make([]float32, 3)
	v.Process(dst, src)
	assert.Equal(t, src, dst)

	// in place
	v.Process(src, src)
	assert.Equal(t, []float32{0.1, -0.2, 0.3}, src)
}

func TestStateChanges(t *testing.T) {
	clock := audiotest.NewClock()
	states := make(chan bool, 4)
	v := New(
		Threshold(0.2),
		HoldTime(100*time.Millisecond),
		Clock(clock.Now),
		StateChanged(func(on bool) { states <- on }),
	)
	defer v.Close()

	loud := constant(32, 0.5)
	quiet := constant(32, 0.01)
	buf := make([]float32, 32)

	v.Process(buf, loud)
	require.True(t, v.Active())
	assert.True(t, <-states)

	// still within the hold time
	clock.Advance(50 * time.Millisecond)
	v.Process(buf, quiet)
	assert.True(t, v.Active())

	clock.Advance(60 * time.Millisecond)
	v.Process(buf, quiet)
	assert.False(t, v.Active())
	assert.False(t, <-states)

	// no further notifications while silent
	v.Process(buf, quiet)
	assert.Empty(t, states)
}

func TestDisabled(t *testing.T) {
	v := New(Enabled(false))
	v.Process(make([]float32, 4), constant(4, 1))
	assert.False(t, v.Active())

	v.Enable(true)
	v.Process(make([]float32, 4), constant(4, 1))
	assert.True(t, v.Active())

	v.Enable(false)
	assert.False(t, v.Active())
}

func TestEmptyBuffer(t *testing.T) {
	v := New()
	v.Process(nil, nil)
	assert.False(t, v.Active())
}

func TestStateChangesDoNotAllocate(t *testing.T) {
	clock := audiotest.NewClock()
	var changes atomic.Int32
	v := New(
		Threshold(0.2),
		HoldTime(10*time.Millisecond),
		Clock(clock.Now),
		StateChanged(func(bool) { changes.Add(1) }),
	)
	defer v.Close()

	loud := constant(32, 0.5)
	quiet := constant(32, 0.01)
	buf := make([]float32, 32)

	allocs := testing.AllocsPerRun(100, func() {
		v.Process(buf, loud)
		clock.Advance(20 * time.Millisecond)
		v.Process(buf, quiet)
	})
	assert.Zero(t, allocs)

	// every toggle is either delivered or counted as dropped
	require.Eventually(t, func() bool {
		return int(changes.Load())+v.Dropped() == 2*101
	}, time.Second, time.Millisecond)
}

func TestCloseWithoutCallback(t *testing.T) {
	v := New()
	assert.NoError(t, v.Close())
	v.Process(make([]float32, 4), constant(4, 1))
	assert.True(t, v.Active())
}
