package wav

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh1tw/streamMixer/audio"
)

// writeWav creates a 16 bit PCM file with frames frames whose left
// channel counts up and right channel counts down.
func writeWav(t *testing.T, rate, channels, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := i
			if c == 1 {
				v = -i
			}
			data[i*channels+c] = v
		}
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func openFile(t *testing.T, path string) *Decoder {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	d := New().(*Decoder)
	require.NoError(t, d.Open(f))
	return d
}

func TestOpen(t *testing.T) {
	d := openFile(t, writeWav(t, 8000, 2, 4000))
	assert.True(t, d.IsOpen())
	assert.Equal(t, 2, d.Channels())
	assert.Equal(t, 8000, d.Rate())
	assert.Equal(t, 500*time.Millisecond, d.Duration())
}

func TestDecode(t *testing.T) {
	d := openFile(t, writeWav(t, 8000, 2, 100))

	var out []float32
	buf := make([]float32, 33)
	for {
		n, callAgain := d.Decode(buf)
		assert.False(t, callAgain)
		assert.Zero(t, n%2)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}

	require.Len(t, out, 200)
	for i := 0; i < 100; i++ {
		assert.Equal(t, float32(i)/32768, out[2*i])
		assert.Equal(t, float32(-i)/32768, out[2*i+1])
	}
}

func TestSeek(t *testing.T) {
	d := openFile(t, writeWav(t, 1000, 1, 1000))
	buf := make([]float32, 1)

	require.NoError(t, d.SeekToTime(600*time.Millisecond))
	n, _ := d.Decode(buf)
	require.Equal(t, 1, n)
	assert.Equal(t, float32(600)/32768, buf[0])

	// backwards
	require.NoError(t, d.SeekToTime(100*time.Millisecond))
	d.Decode(buf)
	assert.Equal(t, float32(100)/32768, buf[0])

	require.NoError(t, d.Rewind())
	d.Decode(buf)
	assert.Zero(t, buf[0])
}

func TestOpenInvalid(t *testing.T) {
	d := New()
	assert.Error(t, d.Open(bytes.NewReader([]byte("definitely not a riff file"))))
	assert.False(t, d.IsOpen())
	assert.ErrorIs(t, d.Open(nil), audio.ErrNoData)
}
