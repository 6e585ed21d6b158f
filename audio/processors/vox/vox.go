// Package vox contains a level detector which can be attached to a
// stream as an audio.Processor.
package vox

import (
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/rs/zerolog/log"
)

// Vox is an audio.Processor which passes the samples through unchanged
// and detects if the audio level raises above or falls below a defined
// threshold level. A Vox keeps state and therefore must only be added to
// a single stream.
type Vox struct {
	sync.Mutex
	enabled        bool
	active         bool
	lastActivation time.Time
	onStateChange  func(voxOn bool)
	threshold      float32
	holdTime       time.Duration
	now            func() time.Time

	// state changes are handed to a dispatcher goroutine
	changes   chan bool
	done      chan struct{}
	closeOnce sync.Once
	dropped   int
}

// New is the constructor method for a Vox Object. The StateChanged
// callback is executed when the RMS (root mean square) has risen above
// or fallen below the set threshold. By default the vox is enabled, the
// threshold is set to 0.1 and the hold time to 500ms.
func New(opts ...Option) *Vox {
	v := &Vox{
		enabled:   true,
		holdTime:  time.Millisecond * 500,
		threshold: 0.1,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.onStateChange != nil {
		v.changes = make(chan bool, 16)
		v.done = make(chan struct{})
		go v.dispatch(v.onStateChange)
	}

	return v
}

func (v *Vox) dispatch(cb func(bool)) {
	for {
		select {
		case on := <-v.changes:
			if on {
				log.Debug().Msg("activating vox")
			} else {
				log.Debug().Msg("deactivating vox")
			}
			cb(on)
		case <-v.done:
			return
		}
	}
}

// Close stops the goroutine which executes the StateChanged callback.
// Pending notifications are discarded.
func (v *Vox) Close() error {
	if v.done != nil {
		v.closeOnce.Do(func() { close(v.done) })
	}
	return nil
}

// Process copies src to dst and updates the vox state. The state
// change callback is executed on a dispatcher goroutine so that it can
// never stall the audio callback. Process does not allocate.
func (v *Vox) Process(dst, src []float32) {
	copy(dst, src)

	v.Lock()
	defer v.Unlock()

	if !v.enabled || len(src) == 0 {
		return
	}

	if rms(src) >= v.threshold {
		v.lastActivation = v.now()
		if !v.active {
			v.active = true
			v.notify(true)
		}
		return
	}

	if v.active && v.now().Sub(v.lastActivation) > v.holdTime {
		v.active = false
		v.notify(false)
	}
}

// notify must be called with the lock held.
func (v *Vox) notify(on bool) {
	if v.changes == nil {
		return
	}
	select {
	case v.changes <- on:
	default:
		// the callback is too slow
		v.dropped++
	}
}

// Dropped returns the number of state changes which could not be
// delivered to the StateChanged callback.
func (v *Vox) Dropped() int {
	v.Lock()
	defer v.Unlock()
	return v.dropped
}

// Active reports whether the level is currently above the threshold
// (or was within the hold time).
func (v *Vox) Active() bool {
	v.Lock()
	defer v.Unlock()
	return v.active
}

// SetThreshold sets the RMS level (0 ... 1) at which the vox triggers.
func (v *Vox) SetThreshold(t float32) {
	v.Lock()
	defer v.Unlock()
	v.threshold = t
}

// SetHoldTime sets how long the vox stays active after the level
// dropped below the threshold.
func (v *Vox) SetHoldTime(t time.Duration) {
	v.Lock()
	defer v.Unlock()
	v.holdTime = t
}

// Enable turns the detection on or off. Disabling the vox resets its
// state without a callback.
func (v *Vox) Enable(enabled bool) {
	v.Lock()
	defer v.Unlock()
	v.enabled = enabled
	if !enabled {
		v.active = false
	}
}

// calculate the root mean square over all (interleaved) samples
func rms(data []float32) float32 {
	var sum float32
	for _, el := range data {
		sum = sum + el*el
	}
	sum = sum / float32(len(data))
	return math32.Sqrt(sum)
}
