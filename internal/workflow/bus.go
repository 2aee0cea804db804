package workflow

import (
	"context"
	"sync"
)

// Event is published after every controller transition.
type Event struct {
	// Phase is the phase being reported. It is Failed for a failed attempt,
	// in which case Snapshot.Phase is the phase rolled back to.
	Phase    Phase
	Snapshot Snapshot
}

// EventBus is a fan-out pub/sub for controller events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Await reads events from ch until one reports any of phases.
func Await(ctx context.Context, ch <-chan Event, phases ...Phase) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return Event{}, ErrClosed
			}
			for _, p := range phases {
				if ev.Phase == p {
					return ev, nil
				}
			}
		}
	}
}
