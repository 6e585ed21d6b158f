package events

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cskr/pubsub"
)

// Event types used as pubsub topics

// stream lifecycle, published by the mixer
const (
	StreamStarted  = "streamStarted"
	StreamLooped   = "streamLooped"
	StreamFinished = "streamFinished" // iteration limit reached
	StreamStopped  = "streamStopped"
	StreamPaused   = "streamPaused"
	StreamResumed  = "streamResumed"
)

// internal
const (
	OsExit      = "osExit"
	TogglePause = "togglePause"
	ToggleMute  = "toggleMute"
	VolumeUp    = "volumeUp"
	VolumeDown  = "volumeDown"
)

// All is the topic on which every event is published.
const All = "all"

// Event is the message delivered to subscribers.
type Event struct {
	Type   string    `json:"type"`
	Stream string    `json:"stream,omitempty"`
	Time   time.Time `json:"time"`
}

// Bus distributes events. Publish never blocks, which makes it safe to
// use from the real-time audio callback. Events are handed over to a
// forwarding goroutine through a buffered channel and dropped when the
// channel is full.
type Bus struct {
	in      chan Event
	ps      *pubsub.PubSub
	done    chan struct{}
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewBus starts a Bus which buffers up to capacity events, both on the
// ingress and on each subscriber channel.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	b := &Bus{
		in:   make(chan Event, capacity),
		ps:   pubsub.New(capacity),
		done: make(chan struct{}),
	}
	go b.forward()
	return b
}

func (b *Bus) forward() {
	defer close(b.done)
	for ev := range b.in {
		// a slow subscriber must not stall the others
		b.ps.TryPub(ev, ev.Type, All)
	}
}

// Publish queues ev. It returns false if the event had to be dropped.
func (b *Bus) Publish(ev Event) (ok bool) {
	if b == nil || b.closed.Load() {
		return false
	}
	defer func() {
		// Close raced with us
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case b.in <- ev:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of events lost because the bus was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Sub returns a channel receiving the events of the given types. Use
// All to receive everything.
func (b *Bus) Sub(types ...string) chan interface{} {
	return b.ps.Sub(types...)
}

// Unsub removes a subscription and closes ch.
func (b *Bus) Unsub(ch chan interface{}) {
	if b.closed.Load() {
		return
	}
	b.ps.Unsub(ch)
}

// Close stops the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.in)
		<-b.done
		b.ps.Shutdown()
	})
}

// WatchSystemEvents publishes an OsExit event when the process receives
// an interrupt. It returns when ctx is done or after the first signal.
func WatchSystemEvents(ctx context.Context, bus *Bus) {

	// Channel to handle OS signals
	osSignals := make(chan os.Signal, 1)

	//subscribe to os.Interrupt (CTRL-C signal)
	signal.Notify(osSignals, os.Interrupt)
	defer signal.Stop(osSignals)

	select {
	case osSignal := <-osSignals:
		if osSignal == os.Interrupt {
			bus.Publish(Event{Type: OsExit, Time: time.Now()})
		}
	case <-ctx.Done():
	}
}
