// Package wavWriter provides an output device which records the mix into
// a wav file instead of playing it.
package wavWriter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	ga "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// WavWriter implements the mixer's Device interface. It pulls buffers
// from the Filler on its own goroutine and encodes them as PCM into a
// wav file.
type WavWriter struct {
	sync.Mutex
	path    string
	options Options
	spec    audio.Spec
	filler  audio.Filler
	file    *os.File
	encoder *wav.Encoder
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	err     error
}

// NewWavWriter returns a WavWriter which records into the file at path.
// The file is created when the writer is opened.
func NewWavWriter(path string, opts ...Option) *WavWriter {
	w := &WavWriter{
		path: path,
		options: Options{
			BitDepth: 16,
		},
	}

	for _, o := range opts {
		o(&w.options)
	}

	switch w.options.BitDepth {
	case 16, 24, 32:
	default:
		w.options.BitDepth = 16
	}

	return w
}

// Open creates the file. Rate and channel count of want are used for
// the recording; the mix is always rendered as float32.
func (w *WavWriter) Open(want audio.Spec, f audio.Filler) (audio.Spec, error) {
	w.Lock()
	defer w.Unlock()

	if w.filler != nil {
		return audio.Spec{}, errors.New("wav writer already open")
	}
	if err := want.Validate(); err != nil {
		return audio.Spec{}, err
	}

	format, err := audio.ParseSampleFormat("f32")
	if err != nil {
		return audio.Spec{}, err
	}

	file, err := os.Create(w.path)
	if err != nil {
		return audio.Spec{}, fmt.Errorf("wav writer: %w", err)
	}

	w.spec = want
	w.spec.Format = format
	w.file = file
	w.encoder = wav.NewEncoder(file, want.Rate, w.options.BitDepth, want.Channels, 1)
	w.filler = f
	w.err = nil

	log.Debug().Str("file", w.path).Int("bitdepth", w.options.BitDepth).Msg("wav writer opened")
	return w.spec, nil
}

// Start launches the recording goroutine.
func (w *WavWriter) Start() error {
	w.Lock()
	defer w.Unlock()

	if w.filler == nil {
		return errors.New("wav writer not open")
	}
	if w.cancel != nil {
		return nil
	}

	interval := w.options.Interval
	if interval <= 0 {
		interval = audio.FramesToDuration(int64(w.spec.FrameSize), w.spec.Rate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx, interval)
	return nil
}

func (w *WavWriter) run(ctx context.Context, interval time.Duration) {
	defer w.wg.Done()

	buf := make([]float32, w.spec.FrameSize*w.spec.Channels)
	ib := &ga.IntBuffer{
		Format: &ga.Format{
			SampleRate:  w.spec.Rate,
			NumChannels: w.spec.Channels,
		},
		Data:           make([]int, len(buf)),
		SourceBitDepth: w.options.BitDepth,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.filler.FillFloat32(buf)
			toInt(ib.Data, buf, w.options.BitDepth)
			if err := w.encoder.Write(ib); err != nil {
				log.Error().Err(err).Str("file", w.path).Msg("stopped recording")
				w.Lock()
				w.err = err
				w.Unlock()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// toInt scales the samples of src in [-1, 1] to signed integers of the
// given bit depth.
func toInt(dst []int, src []float32, bitDepth int) {
	max := ga.IntMaxSignedValue(bitDepth)
	for i, v := range src {
		s := int(v * float32(max))
		if s > max {
			s = max
		} else if s < -max-1 {
			s = -max - 1
		}
		dst[i] = s
	}
}

// Close stops the recording, finalizes the wav header and closes the
// file. It returns the first write error, if any.
func (w *WavWriter) Close() error {
	w.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.Unlock()

	if cancel != nil {
		cancel()
		w.wg.Wait()
	}

	w.Lock()
	defer w.Unlock()

	if w.filler == nil {
		return nil
	}
	w.filler = nil

	err := w.err
	if encErr := w.encoder.Close(); encErr != nil && err == nil {
		err = encErr
	}
	if fErr := w.file.Close(); fErr != nil && err == nil {
		err = fErr
	}
	log.Debug().Str("file", w.path).Msg("wav writer closed")
	return err
}
