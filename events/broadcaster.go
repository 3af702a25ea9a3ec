// Package events is the post-commit event broadcaster: after a pipeline
// transaction commits, it fans out typed events to a per-user and per-BOOM
// subscriber registry. Delivery is best-effort — a slow or absent
// subscriber never blocks the publisher and never, under any
// circumstance, unwinds the already-committed mutation.
//
// Grounded on the teacher's analytics ingestion pipeline: a buffered
// channel accepts published events and a background goroutine drains it,
// fanning out to registered sinks — adapted here from an analytics-sink
// duty to a typed pub/sub duty.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Type is one of the event kinds names.
type Type string

const (
	TypeBalanceUpdate Type = "balance_update"
	TypeSocialValueUpdate Type = "social_value_update"
	TypeSocialEvent Type = "social_event"
	TypeUserNotification Type = "user_notification"
	TypeTreasuryUpdate Type = "treasury_update"
)

// Event is one typed, best-effort notification. Seq is a monotonic
// per-process counter, not a globally ordered sequence — post-commit
// events are not globally ordered.
type Event struct {
	Type Type
	UserID *int64
	BoomID *int64
	Payload any
	Seq int64
	At time.Time
}

const (
	globalBufferSize = 1024
	subscriberBufferSize = 32
)

// Broadcaster owns the global intake channel and the per-user/per-BOOM
// subscriber registries.
type Broadcaster struct {
	logger zerolog.Logger
	intake chan Event
	seq int64

	mu sync.RWMutex
	byUser map[int64][]chan Event
	byBoom map[int64][]chan Event

	stop chan struct{}
	done chan struct{}
}

// New creates a Broadcaster. Call Start to begin draining.
func New(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With().Str("component", "events").Logger(),
		intake: make(chan Event, globalBufferSize),
		byUser: make(map[int64][]chan Event),
		byBoom: make(map[int64][]chan Event),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the background drain goroutine. Safe to call once.
func (b *Broadcaster) Start() {
	go b.run()
}

// Stop signals the drain goroutine to exit and waits for it.
func (b *Broadcaster) Stop() {
	close(b.stop)
	<-b.done
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for {
		select {
		case evt := <-b.intake:
			b.dispatch(evt)
		case <-b.stop:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case evt := <-b.intake:
					b.dispatch(evt)
				default:
					return
				}
			}
		}
	}
}

func (b *Broadcaster) dispatch(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if evt.UserID != nil {
		for _, ch := range b.byUser[*evt.UserID] {
			nonBlockingSend(ch, evt)
		}
	}
	if evt.BoomID != nil {
		for _, ch := range b.byBoom[*evt.BoomID] {
			nonBlockingSend(ch, evt)
		}
	}
}

func nonBlockingSend(ch chan Event, evt Event) {
	select {
	case ch <- evt:
	default:
		// Subscriber too slow — drop rather than block the publisher.
	}
}

// Publish enqueues evt for async fan-out. Never blocks the caller's
// pipeline transaction: if the intake buffer is full, the event is logged
// and dropped rather than backing up the publisher.
func (b *Broadcaster) Publish(evt Event) {
	evt.Seq = atomic.AddInt64(&b.seq, 1)
	evt.At = time.Now().UTC()
	select {
	case b.intake <- evt:
	default:
		b.logger.Warn().Str("type", string(evt.Type)).Msg("event intake buffer full, dropping event")
	}
}

// SubscribeUser registers a per-user event stream. The returned cancel
// func must be called to deregister and release the channel.
func (b *Broadcaster) SubscribeUser(userID int64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)
	b.mu.Lock()
	b.byUser[userID] = append(b.byUser[userID], ch)
	b.mu.Unlock()
	return ch, func() { b.unsubscribeUser(userID, ch) }
}

func (b *Broadcaster) unsubscribeUser(userID int64, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.byUser[userID]
	for i, c := range subs {
		if c == ch {
			b.byUser[userID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscribeBoom registers a per-BOOM event stream.
func (b *Broadcaster) SubscribeBoom(boomID int64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)
	b.mu.Lock()
	b.byBoom[boomID] = append(b.byBoom[boomID], ch)
	b.mu.Unlock()
	return ch, func() { b.unsubscribeBoom(boomID, ch) }
}

func (b *Broadcaster) unsubscribeBoom(boomID int64, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.byBoom[boomID]
	for i, c := range subs {
		if c == ch {
			b.byBoom[boomID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}
