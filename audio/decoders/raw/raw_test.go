package raw

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh1tw/streamMixer/audio"
)

func s16(values ...int16) []byte {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestDecode(t *testing.T) {
	d := New(Rate(8000), Channels(2))
	require.NoError(t, d.Open(bytes.NewReader(s16(0, 16384, -16384, -32768, 32767, 0))))
	assert.True(t, d.IsOpen())
	assert.Equal(t, 2, d.Channels())
	assert.Equal(t, 8000, d.Rate())

	buf := make([]float32, 10)
	n, callAgain := d.Decode(buf)
	assert.False(t, callAgain)
	require.Equal(t, 6, n)
	assert.Equal(t, []float32{0, 0.5, -0.5, -1, 32767.0 / 32768, 0}, buf[:n])

	n, _ = d.Decode(buf)
	assert.Zero(t, n)
}

func TestDecodeWholeFrames(t *testing.T) {
	// a trailing partial frame is dropped
	d := New(Rate(8000), Channels(2))
	require.NoError(t, d.Open(bytes.NewReader(s16(1, 2, 3))))

	buf := make([]float32, 8)
	n, _ := d.Decode(buf)
	assert.Equal(t, 2, n)
}

func TestFormats(t *testing.T) {
	tests := []struct {
		format audio.SampleFormat
		data   []byte
		want   []float32
	}{
		{audio.FormatU8, []byte{128, 0, 192}, []float32{0, -1, 0.5}},
		{audio.FormatS8, []byte{0, 0x80, 64}, []float32{0, -1, 0.5}},
		{audio.FormatS16MSB, []byte{0x40, 0x00}, []float32{0.5}},
		{audio.FormatU16LSB, []byte{0x00, 0x80}, []float32{0}},
		{audio.FormatS24LSB, []byte{0x00, 0x00, 0xc0}, []float32{-0.5}},
		{audio.FormatS32MSB, []byte{0x40, 0, 0, 0}, []float32{0.5}},
		{audio.FormatF32LSB, []byte{0, 0, 0x80, 0x3e}, []float32{0.25}},
	}
	for _, tc := range tests {
		t.Run(tc.format.String(), func(t *testing.T) {
			d := New(Rate(8000), Channels(1), Format(tc.format))
			require.NoError(t, d.Open(bytes.NewReader(tc.data)))
			buf := make([]float32, 8)
			n, _ := d.Decode(buf)
			assert.Equal(t, tc.want, buf[:n])
		})
	}
}

func TestOpenErrors(t *testing.T) {
	assert.ErrorIs(t, New().Open(bytes.NewReader(nil)), audio.ErrNoData)
	assert.ErrorIs(t, New().Open(nil), audio.ErrNoData)
	assert.ErrorIs(t, New(Channels(0)).Open(bytes.NewReader([]byte{1, 2})), audio.ErrInvalidSpec)
	assert.ErrorIs(t, New(Format(audio.FormatUnknown)).Open(bytes.NewReader([]byte{1, 2})), audio.ErrUnsupported)
}

func TestSeekAndDuration(t *testing.T) {
	values := make([]int16, 1000)
	for i := range values {
		values[i] = int16(i)
	}
	d := New(Rate(1000), Channels(1))
	require.NoError(t, d.Open(bytes.NewReader(s16(values...))))
	assert.Equal(t, time.Second, d.Duration())

	require.NoError(t, d.SeekToTime(250*time.Millisecond))
	buf := make([]float32, 1)
	n, _ := d.Decode(buf)
	require.Equal(t, 1, n)
	assert.Equal(t, float32(250)/32768, buf[0])

	require.NoError(t, d.Rewind())
	d.Decode(buf)
	assert.Zero(t, buf[0])

	// past the end the decoder is exhausted
	require.NoError(t, d.SeekToTime(5*time.Second))
	n, _ = d.Decode(buf)
	assert.Zero(t, n)
}

func TestClosed(t *testing.T) {
	d := New()
	n, _ := d.Decode(make([]float32, 4))
	assert.Zero(t, n)
	assert.ErrorIs(t, d.Rewind(), audio.ErrNotOpen)
	assert.Zero(t, d.Duration())
}
