package flac

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dh1tw/streamMixer/audio"
)

func TestOpenInvalid(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.Open(nil), audio.ErrNoData)
	assert.Error(t, d.Open(bytes.NewReader([]byte("RIFF....WAVE"))))
	assert.False(t, d.IsOpen())
}

func TestSeekUnknownLength(t *testing.T) {
	// STREAMINFO with a total sample count of 0
	d := &Decoder{channels: 2, rate: 44100, open: true}

	err := d.SeekToTime(time.Second)
	assert.ErrorIs(t, err, audio.ErrNotSeekable)
	assert.Zero(t, d.Duration())
}

func TestSeekClosed(t *testing.T) {
	assert.ErrorIs(t, New().SeekToTime(0), audio.ErrNotOpen)
}
