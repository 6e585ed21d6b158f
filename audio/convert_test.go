package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverterFor(t *testing.T) {
	tests := []struct {
		format SampleFormat
		in     []float32
		want   []byte
	}{
		{FormatU8, []float32{0, 1, -1, 2, -2}, []byte{128, 255, 0, 255, 0}},
		{FormatS8, []float32{0, 1, -1, 0.5}, []byte{0, 127, 0x80, 64}},
		{FormatS16LSB, []float32{0, 1, -1, 0.5}, []byte{0, 0, 0xff, 0x7f, 0x00, 0x80, 0x00, 0x40}},
		{FormatS16MSB, []float32{1, -1}, []byte{0x7f, 0xff, 0x80, 0x00}},
		{FormatS16LSB, []float32{3.5, -7}, []byte{0xff, 0x7f, 0x00, 0x80}},
		{FormatU16LSB, []float32{0, -1, 1}, []byte{0x00, 0x80, 0x00, 0x00, 0xff, 0xff}},
		{FormatU16MSB, []float32{0}, []byte{0x80, 0x00}},
		{FormatS24LSB, []float32{1, -1, 0}, []byte{0xff, 0xff, 0x7f, 0x00, 0x00, 0x80, 0, 0, 0}},
		{FormatS32LSB, []float32{1, -1}, []byte{0xff, 0xff, 0xff, 0x7f, 0x00, 0x00, 0x00, 0x80}},
		{FormatS32MSB, []float32{1}, []byte{0x7f, 0xff, 0xff, 0xff}},
	}

	for _, tc := range tests {
		t.Run(tc.format.String(), func(t *testing.T) {
			conv, err := ConverterFor(tc.format)
			require.NoError(t, err)
			dst := make([]byte, len(tc.in)*tc.format.Width())
			conv(dst, tc.in)
			assert.Equal(t, tc.want, dst)
		})
	}
}

func TestConverterFloat(t *testing.T) {
	in := []float32{0.25, -1.5, 3}

	le, err := ConverterFor(FormatF32LSB)
	require.NoError(t, err)
	be, err := ConverterFor(FormatF32MSB)
	require.NoError(t, err)

	dstLE := make([]byte, 12)
	dstBE := make([]byte, 12)
	le(dstLE, in)
	be(dstBE, in)

	for i, v := range in {
		// float output is never clipped
		assert.Equal(t, v, math.Float32frombits(binary.LittleEndian.Uint32(dstLE[i*4:])))
		assert.Equal(t, v, math.Float32frombits(binary.BigEndian.Uint32(dstBE[i*4:])))
	}
}

func TestConverterForUnknown(t *testing.T) {
	_, err := ConverterFor(FormatUnknown)
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestParseSampleFormat(t *testing.T) {
	f, err := ParseSampleFormat("S16BE")
	require.NoError(t, err)
	assert.Equal(t, FormatS16MSB, f)

	f, err = ParseSampleFormat("f32")
	require.NoError(t, err)
	assert.True(t, f == FormatF32LSB || f == FormatF32MSB)

	_, err = ParseSampleFormat("s12")
	assert.Error(t, err)
}

func TestSpecValidate(t *testing.T) {
	assert.NoError(t, Spec{Rate: 44100, Format: FormatS16LSB, Channels: 2, FrameSize: 512}.Validate())
	assert.ErrorIs(t, Spec{Rate: 44100, Format: FormatS16LSB, Channels: 6, FrameSize: 512}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{Rate: 44100, Channels: 2, FrameSize: 512}.Validate(), ErrInvalidSpec)
	assert.Equal(t, 2, ClampChannels(8))
	assert.Equal(t, 1, ClampChannels(0))
}
