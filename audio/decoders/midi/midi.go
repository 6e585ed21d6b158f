// Package midi renders Standard MIDI Files through a SoundFont
// synthesizer provided by github.com/gopxl/beep/v2/midi.
package midi

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/midi"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// DefaultRate is the synthesis rate used when none is configured.
const DefaultRate = 44100

// SoundFont is a parsed SoundFont 2 instrument bank.
type SoundFont = midi.SoundFont

// LoadSoundFont reads a SoundFont 2 file.
func LoadSoundFont(filename string) (*SoundFont, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sf, err := midi.NewSoundFont(f)
	if err != nil {
		return nil, fmt.Errorf("soundfont %s: %v", filename, err)
	}
	return sf, nil
}

// Decoder implements audio.Decoder for MIDI files. The synthesizer
// always renders stereo.
type Decoder struct {
	sf       *SoundFont
	rate     int
	streamer beep.StreamSeeker
	frames   [][2]float64
	open     bool
}

// New returns an empty Decoder which synthesizes with sf at rate Hz.
// Without a SoundFont every Open fails with audio.ErrNoSoundFont.
func New(sf *SoundFont, rate int) *Decoder {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Decoder{sf: sf, rate: rate}
}

// Factory returns a constructor suitable for an audio.Registry.
func Factory(sf *SoundFont, rate int) audio.NewDecoderFunc {
	return func() audio.Decoder {
		return New(sf, rate)
	}
}

func (d *Decoder) Open(src io.ReadSeeker) error {
	d.open = false
	if d.sf == nil {
		return audio.ErrNoSoundFont
	}
	if src == nil {
		return audio.ErrNoData
	}

	// the source belongs to the caller
	s, _, err := midi.Decode(io.NopCloser(src), d.sf, beep.SampleRate(d.rate))
	if err != nil {
		return fmt.Errorf("midi: %v", err)
	}

	d.attach(s)
	return nil
}

func (d *Decoder) attach(s beep.StreamSeeker) {
	d.streamer = s
	d.open = true
}

func (d *Decoder) IsOpen() bool  { return d.open }
func (d *Decoder) Channels() int { return 2 }
func (d *Decoder) Rate() int     { return d.rate }

func (d *Decoder) Duration() time.Duration {
	if !d.open {
		return 0
	}
	return audio.FramesToDuration(int64(d.streamer.Len()), d.rate)
}

func (d *Decoder) Decode(buf []float32) (int, bool) {
	if !d.open {
		return 0, false
	}
	want := len(buf) / 2
	if want == 0 {
		return 0, false
	}
	if cap(d.frames) < want {
		d.frames = make([][2]float64, want)
	}
	d.frames = d.frames[:want]

	n, ok := d.streamer.Stream(d.frames)
	if !ok || n == 0 {
		if err := d.streamer.Err(); err != nil {
			log.Debug().Err(err).Msg("midi: synthesis failed")
		}
		return 0, false
	}
	for i, f := range d.frames[:n] {
		buf[2*i] = float32(f[0])
		buf[2*i+1] = float32(f[1])
	}
	return 2 * n, false
}

func (d *Decoder) Rewind() error {
	return d.SeekToTime(0)
}

func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	frame := min(int(audio.DurationToFrames(pos, d.rate)), d.streamer.Len())
	if err := d.streamer.Seek(frame); err != nil {
		return fmt.Errorf("midi: %w: %v", audio.ErrNotSeekable, err)
	}
	return nil
}

func (d *Decoder) Close() error {
	if !d.open {
		return nil
	}
	d.open = false
	// the synthesizer holds no resources, but close it if it ever does
	if c, ok := d.streamer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
