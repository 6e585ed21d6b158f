package audio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh1tw/streamMixer/internal/audiotest"
)

// repeatConverter upsamples by an integer factor by repeating frames.
// It only consumes whole frames whose output fits into dst.
type repeatConverter struct {
	factor     int
	channels   int
	configured [][3]int
	discards   int
	closed     bool
}

func (c *repeatConverter) Configure(srcRate, dstRate, channels int) error {
	if dstRate%srcRate != 0 {
		return fmt.Errorf("unsupported ratio %d/%d", dstRate, srcRate)
	}
	c.factor = dstRate / srcRate
	c.channels = channels
	c.configured = append(c.configured, [3]int{srcRate, dstRate, channels})
	return nil
}

func (c *repeatConverter) Resample(dst, src []float32) (int, int) {
	frames := min(len(src)/c.channels, len(dst)/(c.channels*c.factor))
	o := 0
	for f := 0; f < frames; f++ {
		for r := 0; r < c.factor; r++ {
			for ch := 0; ch < c.channels; ch++ {
				dst[o] = src[f*c.channels+ch]
				o++
			}
		}
	}
	return o, frames * c.channels
}

func (c *repeatConverter) Discard()     { c.discards++ }
func (c *repeatConverter) Close() error { c.closed = true; return nil }

func drainResampler(r *Resampler, chunk int) []float32 {
	var out []float32
	buf := make([]float32, chunk)
	for {
		n := r.Resample(buf)
		if n > len(buf) {
			panic("resampler returned more samples than requested")
		}
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func TestResamplerIdentityRoundTrip(t *testing.T) {
	tests := []struct {
		channels  int
		chunkSize int
		request   int
	}{
		{1, 256, 256},
		{1, 256, 100},
		{1, 64, 1000},
		{2, 512, 1024},
		{2, 512, 30},
		{2, 17, 34},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%dch_chunk%d_req%d", tc.channels, tc.chunkSize, tc.request), func(t *testing.T) {
			const frames = 5000
			dec := openMock(t, audiotest.NewRampDecoder(44100, tc.channels, frames))

			r := NewResampler(nil)
			require.NoError(t, r.SetSpec(44100, tc.channels, tc.chunkSize))
			require.NoError(t, r.SetDecoder(dec))

			out := drainResampler(r, tc.request)
			require.Len(t, out, frames*tc.channels)
			for i, v := range out {
				if v != float32(i) {
					t.Fatalf("sample %d: got %v", i, v)
				}
			}
		})
	}
}

func TestResamplerBufferSizes(t *testing.T) {
	tests := []struct {
		src, dst, channels, chunk int
		wantIn                    int
	}{
		{44100, 44100, 2, 512, 1024},
		{22050, 44100, 2, 512, 512},
		{48000, 44100, 2, 512, 1116},
		{8000, 48000, 1, 100, 17},
	}
	for _, tc := range tests {
		dec := openMock(t, audiotest.NewRampDecoder(tc.src, tc.channels, 10))
		r := NewResampler(&repeatConverter{})
		require.NoError(t, r.SetDecoder(dec))
		err := r.SetSpec(tc.dst, tc.channels, tc.chunk)
		if tc.dst%tc.src != 0 && tc.src != tc.dst {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.channels*tc.chunk, len(r.outBuf))
		assert.Equal(t, tc.wantIn, len(r.inBuf))
		assert.Zero(t, len(r.inBuf)%tc.channels)
	}
}

func TestResamplerUpsample(t *testing.T) {
	conv := &repeatConverter{}
	dec := openMock(t, audiotest.NewRampDecoder(22050, 1, 1000))
	r := NewResampler(conv)
	require.NoError(t, r.SetSpec(44100, 1, 128))
	require.NoError(t, r.SetDecoder(dec))

	out := drainResampler(r, 300)
	require.Len(t, out, 2000)
	for i, v := range out {
		require.Equal(t, float32(i/2), v)
	}
	require.NotEmpty(t, conv.configured)
	assert.Equal(t, [3]int{22050, 44100, 1}, conv.configured[len(conv.configured)-1])
}

func TestResamplerSpecChange(t *testing.T) {
	conv := &repeatConverter{}
	const frames = 1000
	const switchAt = 300
	dec := openMock(t, audiotest.NewRampDecoder(44100, 2, frames).SwitchFormat(switchAt, 22050, 2))

	r := NewResampler(conv)
	require.NoError(t, r.SetSpec(44100, 2, 256))
	require.NoError(t, r.SetDecoder(dec))

	out := drainResampler(r, 512)
	require.Len(t, out, switchAt*2+(frames-switchAt)*2*2)

	for i := 0; i < switchAt*2; i++ {
		require.Equal(t, float32(i), out[i], "old format sample %d", i)
	}
	// new format: every frame repeated twice
	for f := 0; f < frames-switchAt; f++ {
		base := switchAt*2 + f*4
		want := float32((switchAt + f) * 2)
		require.Equal(t, want, out[base])
		require.Equal(t, want+1, out[base+1])
		require.Equal(t, want, out[base+2])
		require.Equal(t, want+1, out[base+3])
	}
	require.Len(t, conv.configured, 1)
	assert.Equal(t, [3]int{22050, 44100, 2}, conv.configured[0])
}

func TestResamplerPendingSpecChange(t *testing.T) {
	conv := &repeatConverter{}
	dec := openMock(t, audiotest.NewRampDecoder(44100, 2, 1000).SwitchFormat(300, 22050, 2))

	r := NewResampler(conv)
	require.NoError(t, r.SetSpec(44100, 2, 256))
	require.NoError(t, r.SetDecoder(dec))

	// 512 samples of the first chunk, then 78 of the 88 samples left
	// before the format switch
	first := make([]float32, 590)
	n := r.Resample(first)
	require.Equal(t, 590, n)
	require.True(t, r.pendingSpecChange)
	assert.Empty(t, conv.configured)

	second := make([]float32, 30)
	n = r.Resample(second)
	require.Equal(t, 30, n)
	assert.False(t, r.pendingSpecChange)

	// the remaining old format samples come first
	for i := 0; i < 10; i++ {
		assert.Equal(t, float32(590+i), second[i])
	}
	// followed by the repeated frames of the new format
	assert.Equal(t, float32(600), second[10])
	assert.Equal(t, float32(601), second[11])
	assert.Equal(t, float32(600), second[12])
	assert.Equal(t, float32(601), second[13])
	require.Len(t, conv.configured, 1)
}

func TestResamplerDiscardPendingSamples(t *testing.T) {
	conv := &repeatConverter{}
	dec := openMock(t, audiotest.NewRampDecoder(22050, 1, 1000))
	r := NewResampler(conv)
	require.NoError(t, r.SetSpec(44100, 1, 128))
	require.NoError(t, r.SetDecoder(dec))

	buf := make([]float32, 10)
	require.Equal(t, 10, r.Resample(buf))
	require.True(t, r.buffered())

	r.DiscardPendingSamples()
	assert.False(t, r.buffered())
	assert.Equal(t, 1, conv.discards)

	require.NoError(t, dec.SeekToTime(0))
	require.Equal(t, 10, r.Resample(buf))
	assert.Equal(t, float32(0), buf[0], "no stale samples after a discard")
}

func TestResamplerRateClamp(t *testing.T) {
	conv := &repeatConverter{}
	dec := openMock(t, audiotest.NewRampDecoder(10, 1, 100))
	r := NewResampler(conv)
	require.NoError(t, r.SetDecoder(dec))
	require.NoError(t, r.SetSpec(2000, 1, 64))

	assert.Equal(t, MinRate, r.SourceRate())
	require.Len(t, conv.configured, 1)
	assert.Equal(t, [3]int{MinRate, 2000, 1}, conv.configured[0])
}

func TestResamplerInvalidSpec(t *testing.T) {
	r := NewResampler(nil)
	assert.ErrorIs(t, r.SetSpec(0, 2, 512), ErrInvalidSpec)
	assert.ErrorIs(t, r.SetSpec(44100, 3, 512), ErrInvalidSpec)
	assert.ErrorIs(t, r.SetSpec(44100, 2, 0), ErrInvalidSpec)
}

func TestResamplerMissingConverter(t *testing.T) {
	dec := openMock(t, audiotest.NewRampDecoder(22050, 1, 100))
	r := NewResampler(nil)
	require.NoError(t, r.SetSpec(44100, 1, 64))
	assert.ErrorIs(t, r.SetDecoder(dec), ErrUnsupported)
}

func TestResamplerWithoutDecoder(t *testing.T) {
	r := NewResampler(nil)
	require.NoError(t, r.SetSpec(44100, 2, 64))
	assert.Zero(t, r.Resample(make([]float32, 128)))
}

func TestResamplerChannelAdaptation(t *testing.T) {
	dec := openMock(t, audiotest.NewRampDecoder(44100, 1, 64))
	r := NewResampler(nil)
	require.NoError(t, r.SetSpec(44100, 2, 32))
	require.NoError(t, r.SetDecoder(dec))

	out := drainResampler(r, 50)
	require.Len(t, out, 128)
	for i := 0; i < len(out); i += 2 {
		assert.Equal(t, out[i], out[i+1])
		assert.Equal(t, float32(i/2), out[i])
	}
}

func TestResamplerClose(t *testing.T) {
	conv := &repeatConverter{}
	r := NewResampler(conv)
	require.NoError(t, r.Close())
	assert.True(t, conv.closed)
}

func TestResamplerNoAllocs(t *testing.T) {
	dec := openMock(t, audiotest.NewConstantDecoder(44100, 2, 1<<30, 0.5))
	r := NewResampler(nil)
	require.NoError(t, r.SetSpec(44100, 2, 512))
	require.NoError(t, r.SetDecoder(dec))
	buf := make([]float32, 1024)
	r.Resample(buf)

	allocs := testing.AllocsPerRun(100, func() {
		r.Resample(buf)
	})
	assert.Zero(t, allocs)
}
