// Package eventbus is the append-only broadcast of human-readable event
// strings described in spec.md §4.5: publishers never block, slow
// subscribers fall behind and are dropped rather than allowed to stall
// the Ledger. The bounded-channel-per-subscriber shape is the same one
// the teacher repo uses for its own inbound queue
// (globals.go: immigrationQueue = make(chan HandshakeRequest, 50)), and
// the fan-out-to-many-receivers shape mirrors its heartbeat broadcast
// (consensus.go: broadcastHeartbeat).
package eventbus

import (
	"sync"

	"github.com/dustin/go-humanize"
)

// DefaultCapacity is the default per-subscriber channel capacity,
// matching the buffer size spec.md §4.5 illustrates ("e.g. 100 messages").
const DefaultCapacity = 100

// Bus is a multi-producer, multi-consumer, lossy broadcast of event
// strings. The zero value is not usable; build one with New.
type Bus struct {
	capacity int
	logf     func(format string, args ...any)

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	ch chan string
}

// New builds a Bus whose subscriber channels hold capacity messages
// before the subscriber is considered too slow and dropped. logf, if
// non-nil, receives one line per dropped subscriber (wired to
// cmd/fleetledgerd's infoLog).
func New(capacity int, logf func(format string, args ...any)) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Bus{capacity: capacity, logf: logf, subscribers: make(map[*subscriber]struct{})}
}

// Publish fans msg out to every current subscriber without blocking. A
// subscriber whose channel is full is dropped on the spot; it must
// Subscribe again to resume receiving events.
func (b *Bus) Publish(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subscribers {
		select {
		case s.ch <- msg:
		default:
			backlog := len(s.ch)
			delete(b.subscribers, s)
			close(s.ch)
			b.logf("eventbus: dropping slow subscriber (%s messages buffered)", humanize.Comma(int64(backlog)))
		}
	}
}

// Subscription is a live view onto the Bus. Messages published after
// Subscribe is called arrive on Events, in publication order, until
// Unsubscribe is called or the subscriber is dropped for falling behind
// (in which case Events is closed).
type Subscription struct {
	Events <-chan string
	bus    *Bus
	sub    *subscriber
}

// Subscribe registers a new subscriber. Subscribers only ever see events
// published after this call returns (spec.md P6).
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber{ch: make(chan string, b.capacity)}
	b.subscribers[s] = struct{}{}
	return &Subscription{Events: s.ch, bus: b, sub: s}
}

// Unsubscribe removes the subscription. Safe to call more than once, and
// safe to call after the subscriber was already dropped for lag.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subscribers[s.sub]; ok {
		delete(s.bus.subscribers, s.sub)
		close(s.sub.ch)
	}
}

// SubscriberCount reports the number of live subscribers, for health
// reporting.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
