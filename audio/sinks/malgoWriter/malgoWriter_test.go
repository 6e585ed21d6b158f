package malgoWriter

import (
	"encoding/hex"
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh1tw/streamMixer/audio"
)

func nativeFormats(t *testing.T) (s16, s32, f32 audio.SampleFormat) {
	t.Helper()
	var err error
	s16, err = audio.ParseSampleFormat("s16")
	require.NoError(t, err)
	s32, err = audio.ParseSampleFormat("s32")
	require.NoError(t, err)
	f32, err = audio.ParseSampleFormat("f32")
	require.NoError(t, err)
	return s16, s32, f32
}

func TestFormatMapping(t *testing.T) {
	s16, s32, f32 := nativeFormats(t)

	tests := []struct {
		malgo malgo.FormatType
		audio audio.SampleFormat
	}{
		{malgo.FormatU8, audio.FormatU8},
		{malgo.FormatS16, s16},
		{malgo.FormatS32, s32},
		{malgo.FormatF32, f32},
	}
	for _, tc := range tests {
		t.Run(tc.audio.String(), func(t *testing.T) {
			got, ok := fromMalgoFormat(tc.malgo)
			require.True(t, ok)
			assert.Equal(t, tc.audio, got)

			back, ok := toMalgoFormat(tc.audio)
			require.True(t, ok)
			assert.Equal(t, tc.malgo, back)
		})
	}

	_, ok := fromMalgoFormat(malgo.FormatUnknown)
	assert.False(t, ok)
	_, ok = toMalgoFormat(audio.FormatU16LSB)
	assert.False(t, ok, "miniaudio has no unsigned 16 bit format")
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("PulseAudio")
	require.NoError(t, err)
	assert.Equal(t, malgo.BackendPulseaudio, b)

	b, err = ParseBackend("null")
	require.NoError(t, err)
	assert.Equal(t, malgo.BackendNull, b)

	_, err = ParseBackend("sndio2")
	assert.Error(t, err)
}

func TestDecodeID(t *testing.T) {
	assert.Equal(t, "hw:1,0", decodeID(hex.EncodeToString([]byte("hw:1,0\x00\x00"))))
	assert.Equal(t, "not hex", decodeID("not hex"))
}

func TestSelectDeviceEmpty(t *testing.T) {
	_, err := SelectDevice(nil, "default")
	assert.Error(t, err)
	_, err = SelectDevice(nil, "USB")
	assert.Error(t, err)
}

func TestCloseUnopened(t *testing.T) {
	w := NewMalgoWriter(Backend("null"), DeviceName("x"))
	assert.Equal(t, "null", w.options.Backend)
	assert.NoError(t, w.Close())
	assert.Error(t, w.Start())
}
