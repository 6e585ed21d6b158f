package mixer

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dh1tw/streamMixer/audio"
	"github.com/dh1tw/streamMixer/events"
)

// Stream is a playable unit made of a Decoder, the Resampler which
// adapts it to the output format and an ordered chain of Processors.
//
// Streams are opened lazily on the first Play. While playing they are
// registered with their Mixer. Finish and loop callbacks are executed
// on the device callback goroutine and must return quickly.
type Stream struct {
	m    *Mixer
	name string
	src  io.ReadSeeker
	dec  audio.Decoder
	res  *audio.Resampler

	// decMu serializes access to the decoder and the resampler between
	// the device callback and the API. It is never held while taking
	// m.mu.
	decMu     sync.Mutex
	open      bool
	wanted    int // iterations, 0 = loop forever
	completed int

	// guarded by m.mu
	playing  bool
	paused   bool
	muted    bool
	volume   float32
	fadeVol  float32
	pan      float32
	fade     fade
	procs    []audio.Processor
	onFinish func(*Stream)
	onLoop   func(*Stream)
	gen      uint64 // incremented on every start and stop
}

// NewStream creates a Stream which decodes src with dec. If dec is
// already open, src may be nil. res may be nil if the decoder's rate
// always matches the output rate.
func (m *Mixer) NewStream(name string, dec audio.Decoder, res *audio.Resampler, src io.ReadSeeker) *Stream {
	if res == nil {
		res = audio.NewResampler(nil)
	}
	return &Stream{
		m:       m,
		name:    name,
		src:     src,
		dec:     dec,
		res:     res,
		volume:  1,
		fadeVol: 1,
	}
}

// Name returns the name the Stream was created with.
func (s *Stream) Name() string {
	return s.name
}

// Open binds the decoder to its source and configures the resampler for
// the output format of the Mixer. Opening an open Stream is a no-op.
func (s *Stream) Open() error {
	spec := s.m.Spec()

	s.decMu.Lock()
	defer s.decMu.Unlock()

	if s.open {
		return nil
	}

	if err := s.openLocked(spec); err != nil {
		err = fmt.Errorf("stream %s: %w", s.name, err)
		audio.SetLastError(err)
		return err
	}
	s.open = true
	return nil
}

func (s *Stream) openLocked(spec audio.Spec) error {
	if spec.Rate == 0 {
		return audio.ErrNotInitialized
	}
	if !s.dec.IsOpen() {
		if err := s.dec.Open(s.src); err != nil {
			return err
		}
	}
	if err := s.res.SetSpec(spec.Rate, spec.Channels, spec.FrameSize); err != nil {
		return err
	}
	return s.res.SetDecoder(s.dec)
}

// Play starts playback. iterations is the number of times the stream is
// played; 0 loops forever. With fadeTime > 0 the volume ramps up from
// silence. Calling Play on a playing stream is a no-op.
func (s *Stream) Play(iterations int, fadeTime time.Duration) error {
	if iterations < 0 {
		return fmt.Errorf("stream %s: invalid number of iterations %d", s.name, iterations)
	}
	if s.IsPlaying() {
		return nil
	}
	if err := s.Open(); err != nil {
		return err
	}

	s.decMu.Lock()
	s.wanted = iterations
	s.completed = 0
	s.decMu.Unlock()

	m := s.m
	m.mu.Lock()
	if s.playing {
		m.mu.Unlock()
		return nil
	}
	s.playing = true
	s.paused = false
	s.gen++
	s.startFadeLocked(fadeTime, true)
	m.register(s)
	m.mu.Unlock()

	log.Debug().Str("stream", s.name).Int("iterations", iterations).Msg("playing")
	m.publish(events.StreamStarted, s)
	return nil
}

// Stop stops playback and rewinds the stream. With fadeTime > 0 the
// stream fades out first and is stopped when the fade has completed.
// Stopping a stream which is not playing is a no-op.
func (s *Stream) Stop(fadeTime time.Duration) {
	m := s.m
	m.mu.Lock()
	if !s.playing {
		m.mu.Unlock()
		return
	}
	if fadeTime > 0 && !s.paused {
		s.fade = fade{
			active:    true,
			start:     m.options.Clock(),
			length:    fadeTime,
			stopAfter: true,
		}
		m.mu.Unlock()
		return
	}
	s.stopLocked()
	m.mu.Unlock()

	s.rewind()
	log.Debug().Str("stream", s.name).Msg("stopped")
	m.publish(events.StreamStopped, s)
}

// stopLocked deregisters the stream. m.mu must be held.
func (s *Stream) stopLocked() {
	s.playing = false
	s.paused = false
	s.fade = fade{}
	s.fadeVol = 1
	s.gen++
	s.m.unregister(s)
}

func (s *Stream) rewind() {
	s.decMu.Lock()
	defer s.decMu.Unlock()
	if !s.open {
		return
	}
	if err := s.dec.Rewind(); err != nil {
		log.Debug().Str("stream", s.name).Err(err).Msg("rewind failed")
	}
	s.res.DiscardPendingSamples()
}

// Pause pauses playback, optionally after fading out. A paused stream
// stays registered but is skipped by the mixer.
func (s *Stream) Pause(fadeTime time.Duration) {
	m := s.m
	m.mu.Lock()
	if !s.playing || s.paused {
		m.mu.Unlock()
		return
	}
	if fadeTime > 0 {
		s.fade = fade{
			active: true,
			start:  m.options.Clock(),
			length: fadeTime,
		}
		m.mu.Unlock()
		return
	}
	s.paused = true
	s.fade = fade{}
	m.mu.Unlock()

	m.publish(events.StreamPaused, s)
}

// Resume continues a paused stream, optionally fading in. Resuming a
// stream which is still fading out towards a pause cancels the pause.
func (s *Stream) Resume(fadeTime time.Duration) {
	m := s.m
	m.mu.Lock()
	pausing := s.fade.active && !s.fade.in && !s.fade.stopAfter
	if !s.playing || (!s.paused && !pausing) {
		m.mu.Unlock()
		return
	}
	s.paused = false
	s.startFadeLocked(fadeTime, true)
	m.mu.Unlock()

	m.publish(events.StreamResumed, s)
}

func (s *Stream) startFadeLocked(fadeTime time.Duration, in bool) {
	if fadeTime <= 0 {
		s.fade = fade{}
		s.fadeVol = 1
		return
	}
	s.fade = fade{
		active: true,
		in:     in,
		start:  s.m.options.Clock(),
		length: fadeTime,
	}
	s.fadeVol = fadeVolume(0, in)
}

// Rewind moves the stream back to its beginning.
func (s *Stream) Rewind() error {
	s.decMu.Lock()
	defer s.decMu.Unlock()
	if !s.open {
		return nil
	}
	if err := s.dec.Rewind(); err != nil {
		return fmt.Errorf("stream %s: %w", s.name, err)
	}
	s.res.DiscardPendingSamples()
	return nil
}

// SeekToTime moves the stream to pos. On failure the position is left
// unchanged.
func (s *Stream) SeekToTime(pos time.Duration) error {
	if err := s.Open(); err != nil {
		return err
	}
	s.decMu.Lock()
	defer s.decMu.Unlock()
	if err := s.dec.SeekToTime(pos); err != nil {
		return fmt.Errorf("stream %s: %w", s.name, err)
	}
	s.res.DiscardPendingSamples()
	return nil
}

// Duration returns the length of one iteration, or 0 if it can not be
// determined. The stream is opened if necessary.
func (s *Stream) Duration() time.Duration {
	if err := s.Open(); err != nil {
		return 0
	}
	s.decMu.Lock()
	defer s.decMu.Unlock()
	return s.dec.Duration()
}

// SetVolume sets the user volume. Negative values are treated as 0.
func (s *Stream) SetVolume(v float32) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.volume = max(v, 0)
}

func (s *Stream) Volume() float32 {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.volume
}

// SetStereoPosition sets the stereo bias in [-1, 1]. Negative values
// attenuate the right channel, positive values the left one.
func (s *Stream) SetStereoPosition(pos float32) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.pan = clamp(pos, -1, 1)
}

func (s *Stream) StereoPosition() float32 {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.pan
}

func (s *Stream) Mute() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.muted = true
}

func (s *Stream) Unmute() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.muted = false
}

func (s *Stream) IsMuted() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.muted
}

// IsPlaying reports whether the stream has been started and not
// stopped. Paused streams are still playing.
func (s *Stream) IsPlaying() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.playing
}

func (s *Stream) IsPaused() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.paused
}

// AddProcessor appends p to the processor chain.
func (s *Stream) AddProcessor(p audio.Processor) {
	if p == nil {
		return
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	// the callback may still iterate over the old slice
	procs := make([]audio.Processor, len(s.procs), len(s.procs)+1)
	copy(procs, s.procs)
	s.procs = append(procs, p)
}

// RemoveProcessor removes every occurrence of p from the chain. Only
// processors with a comparable dynamic type (e.g. pointers) can be
// removed; a ProcessorFunc can only be dropped with ClearProcessors.
func (s *Stream) RemoveProcessor(p audio.Processor) {
	if p == nil || !reflect.TypeOf(p).Comparable() {
		return
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	procs := make([]audio.Processor, 0, len(s.procs))
	for _, q := range s.procs {
		if reflect.TypeOf(q).Comparable() && q == p {
			continue
		}
		procs = append(procs, q)
	}
	s.procs = procs
}

func (s *Stream) ClearProcessors() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.procs = nil
}

// SetFinishCallback sets a function which is called once when the
// stream has played all its iterations.
func (s *Stream) SetFinishCallback(f func(*Stream)) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.onFinish = f
}

func (s *Stream) UnsetFinishCallback() {
	s.SetFinishCallback(nil)
}

// SetLoopCallback sets a function which is called every time the
// stream wraps around to its beginning.
func (s *Stream) SetLoopCallback(f func(*Stream)) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.onLoop = f
}

func (s *Stream) UnsetLoopCallback() {
	s.SetLoopCallback(nil)
}

// Close stops the stream and closes its decoder and resampler. The
// source handed to NewStream is not closed.
func (s *Stream) Close() error {
	s.Stop(0)

	s.decMu.Lock()
	defer s.decMu.Unlock()
	if !s.open {
		if s.dec.IsOpen() {
			return s.dec.Close()
		}
		return nil
	}
	s.open = false
	return errors.Join(s.res.Close(), s.dec.Close())
}

// mix renders the next len(buf) samples of the stream and adds them to
// dst. It is called from the device callback.
func (s *Stream) mix(dst, buf, proc []float32, channels int, now time.Time) {
	m := s.m

	m.mu.Lock()
	if !s.playing || s.paused {
		m.mu.Unlock()
		return
	}
	gen := s.gen
	procs := s.procs
	m.mu.Unlock()

	s.decMu.Lock()
	n, loops, finished := s.pull(buf)
	s.decMu.Unlock()
	clear(buf[n:])

	out := buf
	for _, p := range procs {
		p.Process(proc, out)
		out, proc = proc, out
	}

	var fadeStopped, fadePaused bool

	m.mu.Lock()
	if s.gen != gen {
		// stopped or restarted while we were decoding
		m.mu.Unlock()
		return
	}
	if s.fade.active {
		t := s.fade.progress(now)
		s.fadeVol = fadeVolume(t, s.fade.in)
		if t >= 1 {
			switch {
			case s.fade.in:
				s.fade = fade{}
			case finished:
				// the natural end wins over a fade-out ending in the same buffer
			case s.fade.stopAfter:
				fadeStopped = true
			default:
				fadePaused = true
			}
		}
	}
	gain := s.volume * s.fadeVol
	muted := s.muted
	pan := s.pan
	onLoop, onFinish := s.onLoop, s.onFinish
	switch {
	case finished, fadeStopped:
		s.stopLocked()
	case fadePaused:
		s.paused = true
		s.fade = fade{}
	}
	m.mu.Unlock()

	if !muted && gain != 0 {
		accumulate(dst, out[:n], gain, pan, channels)
	}

	m.options.Metrics.loops(loops)
	for i := 0; i < loops; i++ {
		m.publish(events.StreamLooped, s)
		if onLoop != nil {
			onLoop(s)
		}
	}

	switch {
	case finished:
		log.Debug().Str("stream", s.name).Msg("finished")
		m.options.Metrics.finished()
		m.publish(events.StreamFinished, s)
		if onFinish != nil {
			onFinish(s)
		}
	case fadeStopped:
		s.rewind()
		m.publish(events.StreamStopped, s)
	case fadePaused:
		m.publish(events.StreamPaused, s)
	}
}

// pull fills buf from the resampler, wrapping around at the end of the
// data until buf is full or the last iteration has been played. It
// returns the number of samples written, the number of loop boundaries
// crossed and whether the stream has finished. s.decMu must be held.
func (s *Stream) pull(buf []float32) (n, loops int, finished bool) {
	justRewound := false
	for n < len(buf) {
		got := s.res.Resample(buf[n:])
		n += got
		if n == len(buf) {
			break
		}

		// end of data
		if got == 0 && justRewound {
			// nothing to play even from the start
			return n, loops - 1, true
		}
		if s.wanted > 0 {
			s.completed++
			if s.completed >= s.wanted {
				finished = true
			}
		}
		if err := s.dec.Rewind(); err != nil {
			log.Debug().Str("stream", s.name).Err(err).Msg("unable to loop")
			finished = true
		}
		if finished {
			s.res.DiscardPendingSamples()
			return n, loops, true
		}
		loops++
		justRewound = true
	}
	return n, loops, false
}

// accumulate adds src, scaled by gain and split by pan, to dst.
func accumulate(dst, src []float32, gain, pan float32, channels int) {
	if channels != 2 {
		for i, v := range src {
			dst[i] += v * gain
		}
		return
	}
	left, right := panGains(gain, pan)
	for i := 0; i+1 < len(src); i += 2 {
		dst[i] += src[i] * left
		dst[i+1] += src[i+1] * right
	}
}
