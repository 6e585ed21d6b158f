// Package nullWriter provides an output device without audio hardware.
// It drives the mixer from a ticker and discards the rendered samples,
// which is useful for headless runs and tests.
package nullWriter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
)

// NullWriter accepts any valid format and calls the Filler periodically
// from its own goroutine.
type NullWriter struct {
	sync.Mutex
	options Options
	spec    audio.Spec
	filler  audio.Filler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	buffers atomic.Uint64
}

func NewNullWriter(opts ...Option) *NullWriter {
	w := &NullWriter{}
	for _, option := range opts {
		option(&w.options)
	}
	return w
}

// Open accepts want unchanged.
func (w *NullWriter) Open(want audio.Spec, f audio.Filler) (audio.Spec, error) {
	w.Lock()
	defer w.Unlock()
	if w.filler != nil {
		return audio.Spec{}, errors.New("null writer already open")
	}
	if err := want.Validate(); err != nil {
		return audio.Spec{}, err
	}
	w.spec = want
	w.filler = f
	return want, nil
}

// Start launches the callback goroutine.
func (w *NullWriter) Start() error {
	w.Lock()
	defer w.Unlock()
	if w.filler == nil {
		return errors.New("null writer not open")
	}
	if w.cancel != nil {
		return nil
	}

	interval := w.options.Interval
	if interval <= 0 {
		interval = audio.FramesToDuration(int64(w.spec.FrameSize), w.spec.Rate)
	}
	buf := make([]byte, w.spec.FrameSize*w.spec.Channels*w.spec.Format.Width())

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx, interval, w.filler, buf)

	log.Debug().Dur("interval", interval).Msg("null writer started")
	return nil
}

func (w *NullWriter) run(ctx context.Context, interval time.Duration, f audio.Filler, buf []byte) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Fill(buf)
			w.buffers.Add(1)
			if w.options.Tap != nil {
				w.options.Tap(buf)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Buffers returns the number of buffers rendered so far.
func (w *NullWriter) Buffers() uint64 {
	return w.buffers.Load()
}

// Close stops the callback goroutine and waits for it to exit. Calling
// Close more than once is a no-op.
func (w *NullWriter) Close() error {
	w.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.filler = nil
	w.Unlock()

	if cancel != nil {
		cancel()
		w.wg.Wait()
	}
	return nil
}
