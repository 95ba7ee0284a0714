package service

import (
	"sync"

	"github.com/joeblew999/qgeomap/internal/surface"
)

// Event resources.
const (
	ResourceEntries = "entries"
	ResourceSession = "session"
	ResourceMap     = "map"
)

// Event represents an entry mutation, a session transition or a map command.
type Event struct {
	Resource string // "entries", "session" or "map"
	Action   string // "created", "updated", "deleted", "started", "ended", or a map op
	ID       string // entry or surface object id
	// Command is set for map events.
	Command *surface.Command
}

// CommandEvent wraps a map command for the bus.
func CommandEvent(cmd surface.Command) Event {
	return Event{Resource: ResourceMap, Action: string(cmd.Op), ID: cmd.ID, Command: &cmd}
}

// EventBus is a simple fan-out pub/sub for change events.
//
// Map events are deltas, so a subscriber that misses one can no longer
// follow along. When a subscriber's buffer is full it is marked stale: it
// receives nothing more until it calls Resume, and its Resync channel fires
// so it can rebuild from a snapshot.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]*subscriber
}

type subscriber struct {
	stale  bool
	resync chan struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]*subscriber)}
}

// Publish sends an event to all subscribers without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, sub := range b.subs {
		if sub.stale {
			continue
		}
		select {
		case ch <- e:
		default:
			sub.stale = true
			select {
			case sub.resync <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = &subscriber{resync: make(chan struct{}, 1)}
	b.mu.Unlock()
	return ch
}

// Resync returns the channel that fires when ch overflowed. It is nil for
// an unknown subscription.
func (b *EventBus) Resync(ch chan Event) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[ch]; ok {
		return sub.resync
	}
	return nil
}

// Stale reports whether ch overflowed and has not resumed.
func (b *EventBus) Stale(ch chan Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[ch]
	return ok && sub.stale
}

// Resume discards what is queued on ch and starts delivering again. The
// caller must rebuild its state after Resume returns; events published from
// then on arrive in order.
func (b *EventBus) Resume(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[ch]
	if !ok {
		return
	}
	for len(ch) > 0 {
		<-ch
	}
	sub.stale = false
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
