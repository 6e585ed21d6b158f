// Package wav decodes RIFF/WAVE files with github.com/go-audio/wav.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/decoders/internal/pcm"
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// Decoder implements audio.Decoder for PCM and IEEE float WAV files
// with 8, 16, 24 or 32 bits per sample.
type Decoder struct {
	src      io.ReadSeeker
	dec      *wav.Decoder
	ibuf     *goaudio.IntBuffer
	channels int
	rate     int
	bitDepth int
	float    bool
	frames   int64
	pos      int64
	open     bool
}

// New returns an empty Decoder.
func New() audio.Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(src io.ReadSeeker) error {
	d.open = false
	if src == nil {
		return audio.ErrNoData
	}

	dec := wav.NewDecoder(src)
	if !dec.IsValidFile() {
		return errors.New("wav: not a valid WAVE file")
	}
	dec.ReadInfo()

	switch {
	case dec.NumChans == 0:
		return errors.New("wav: no channels")
	case dec.SampleRate == 0:
		return errors.New("wav: invalid sample rate")
	}

	switch dec.WavAudioFormat {
	case formatPCM:
		switch dec.BitDepth {
		case 8, 16, 24, 32:
		default:
			return fmt.Errorf("wav: %w: %d bit PCM", audio.ErrUnsupported, dec.BitDepth)
		}
	case formatFloat:
		if dec.BitDepth != 32 {
			return fmt.Errorf("wav: %w: %d bit float", audio.ErrUnsupported, dec.BitDepth)
		}
	default:
		return fmt.Errorf("wav: %w: audio format %d", audio.ErrUnsupported, dec.WavAudioFormat)
	}

	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("wav: %v", err)
	}

	d.src = src
	d.dec = dec
	d.channels = int(dec.NumChans)
	d.rate = int(dec.SampleRate)
	d.bitDepth = int(dec.BitDepth)
	d.float = dec.WavAudioFormat == formatFloat
	d.frames = dec.PCMLen() / int64(d.bitDepth/8*d.channels)
	d.pos = 0
	d.ibuf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: d.channels, SampleRate: d.rate},
		SourceBitDepth: d.bitDepth,
	}
	d.open = true
	return nil
}

func (d *Decoder) IsOpen() bool  { return d.open }
func (d *Decoder) Channels() int { return d.channels }
func (d *Decoder) Rate() int     { return d.rate }

func (d *Decoder) Duration() time.Duration {
	if !d.open {
		return 0
	}
	return audio.FramesToDuration(d.frames, d.rate)
}

func (d *Decoder) Decode(buf []float32) (int, bool) {
	if !d.open {
		return 0, false
	}
	n := d.read(len(buf) / d.channels)
	if n == 0 {
		return 0, false
	}

	data := d.ibuf.Data[:n]
	switch {
	case d.float:
		for i, v := range data {
			buf[i] = math.Float32frombits(uint32(int32(v)))
		}
	case d.bitDepth == 8:
		pcm.UnsignedToFloat32(buf, data)
	default:
		pcm.IntsToFloat32(buf, data, d.bitDepth)
	}
	return n, false
}

// read decodes up to frames frames into the integer buffer and returns
// the number of samples available.
func (d *Decoder) read(frames int) int {
	want := frames * d.channels
	if want <= 0 {
		return 0
	}
	if cap(d.ibuf.Data) < want {
		d.ibuf.Data = make([]int, want)
	}
	d.ibuf.Data = d.ibuf.Data[:want]

	n, err := d.dec.PCMBuffer(d.ibuf)
	if err != nil && n == 0 {
		log.Debug().Err(err).Msg("wav: decode failed")
		return 0
	}
	n -= n % d.channels
	d.pos += int64(n / d.channels)
	return n
}

func (d *Decoder) Rewind() error {
	if !d.open {
		return audio.ErrNotOpen
	}
	return d.restart()
}

// restart re-reads the header and positions the decoder at the first
// sample.
func (d *Decoder) restart() error {
	if _, err := d.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav: %w: %v", audio.ErrNotSeekable, err)
	}
	dec := wav.NewDecoder(d.src)
	if !dec.IsValidFile() {
		return errors.New("wav: source changed")
	}
	dec.ReadInfo()
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("wav: %v", err)
	}
	d.dec = dec
	d.pos = 0
	return nil
}

// SeekToTime moves to pos by restarting and skipping frames. Positions
// past the end leave the decoder exhausted.
func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	target := min(audio.DurationToFrames(pos, d.rate), d.frames)
	prev := d.pos

	if err := d.skipTo(target); err != nil {
		if rerr := d.skipTo(prev); rerr != nil {
			log.Debug().Err(rerr).Msg("wav: unable to restore position")
		}
		return err
	}
	return nil
}

func (d *Decoder) skipTo(target int64) error {
	if target < d.pos {
		if err := d.restart(); err != nil {
			return err
		}
	}
	for d.pos < target {
		chunk := int(min(target-d.pos, 4096))
		if d.read(chunk) == 0 {
			return fmt.Errorf("wav: seek: %w", audio.ErrNoData)
		}
	}
	return nil
}

func (d *Decoder) Close() error {
	d.open = false
	d.dec = nil
	d.src = nil
	return nil
}
