// Package flac decodes FLAC files with github.com/mewkiz/flac.
package flac

import (
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/audio/decoders/internal/pcm"
)

// Decoder implements audio.Decoder for native FLAC streams.
type Decoder struct {
	stream   *flac.Stream
	channels int
	rate     int
	frames   int64

	// samples of the last parsed FLAC frame not handed out yet
	pending []float32
	off     int
	open    bool
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

	stream, err := flac.NewSeek(src)
	if err != nil {
		return fmt.Errorf("flac: %v", err)
	}
	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 {
		return fmt.Errorf("flac: invalid format %d channels, %dHz", info.NChannels, info.SampleRate)
	}

	d.stream = stream
	d.channels = int(info.NChannels)
	d.rate = int(info.SampleRate)
	d.frames = int64(info.NSamples)
	d.pending = d.pending[:0]
	d.off = 0
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
	buf = buf[:len(buf)-len(buf)%d.channels]

	total := 0
	for total < len(buf) {
		if d.off == len(d.pending) && !d.next() {
			break
		}
		n := copy(buf[total:], d.pending[d.off:])
		d.off += n
		total += n
	}
	return total, false
}

// next parses the following FLAC frame into pending.
func (d *Decoder) next() bool {
	frame, err := d.stream.ParseNext()
	if err != nil {
		if err != io.EOF {
			log.Debug().Err(err).Msg("flac: decode failed")
		}
		return false
	}
	if len(frame.Subframes) != d.channels {
		log.Debug().Int("subframes", len(frame.Subframes)).Msg("flac: channel count changed")
		return false
	}

	n := len(frame.Subframes[0].Samples)
	size := n * d.channels
	if cap(d.pending) < size {
		d.pending = make([]float32, size)
	}
	d.pending = d.pending[:size]
	d.off = 0

	div := pcm.Scale(int(frame.BitsPerSample))
	for ch, sub := range frame.Subframes {
		for i, v := range sub.Samples[:n] {
			d.pending[i*d.channels+ch] = float32(v) / div
		}
	}
	return true
}

func (d *Decoder) Rewind() error {
	return d.SeekToTime(0)
}

// SeekToTime seeks to the FLAC frame holding pos and drops the samples
// in front of it.
func (d *Decoder) SeekToTime(pos time.Duration) error {
	if !d.open {
		return audio.ErrNotOpen
	}
	target := audio.DurationToFrames(pos, d.rate)
	if d.frames == 0 && target > 0 {
		// the stream does not tell its length, only rewinding is reliable
		return fmt.Errorf("flac: %w: unknown stream length", audio.ErrNotSeekable)
	}
	if d.frames > 0 && target >= d.frames {
		// park after the last sample
		target = d.frames
	}

	start, err := d.stream.Seek(uint64(min(target, max(d.frames-1, 0))))
	if err != nil {
		return fmt.Errorf("flac: %w: %v", audio.ErrNotSeekable, err)
	}

	d.pending = d.pending[:0]
	d.off = 0
	if skip := (target - int64(start)) * int64(d.channels); skip > 0 {
		if !d.next() {
			return nil
		}
		d.off = int(min(skip, int64(len(d.pending))))
	}
	return nil
}

// Close releases the stream. The source stays open; it belongs to the
// caller.
func (d *Decoder) Close() error {
	d.open = false
	d.stream = nil
	return nil
}
