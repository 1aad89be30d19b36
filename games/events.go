package games

import (
	"encoding/json"
	"sync"
)

// Event types exchanged over a session's bus. Every event carries the
// identity of the player it originated from; subscribers never receive
// their own events back.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventCorrect      = "correct"
	EventIncorrect    = "incorrect"
	EventMessage      = "message"
	EventCall         = "call"
)

// Event is the single wire record for all bus traffic; Type selects the
// variant. Identities are serialized as strings since they exceed the
// integer range JavaScript can represent exactly.
type Event struct {
	Type     string          `json:"type"`
	Identity uint64          `json:"user_id,string"`
	Tries    int             `json:"tries,omitempty"`
	Content  string          `json:"content,omitempty"`
	Signal   json.RawMessage `json:"signal,omitempty"`
}

// VerifyIdentity checks a client-submitted event against the
// authenticated identity of the connection that submitted it. A mismatch
// is rejected with ErrWrongIdentity and must never reach the bus.
func VerifyIdentity(ev Event, identity uint64) error {
	if ev.Identity != identity {
		return ErrWrongIdentity
	}
	return nil
}

// backlog bounds how many undelivered events a subscriber may accumulate
// before it starts losing the oldest ones.
const backlog = 10

// Bus is a per-session broadcast channel. Publishing never blocks: a
// subscriber that has fallen behind loses its oldest pending event
// instead of stalling the publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{})}
}

// Subscriber is one attached viewer's cursor into the bus.
type Subscriber struct {
	bus      *Bus
	identity uint64
	ch       chan Event
}

func (b *Bus) Subscribe(identity uint64) *Subscriber {
	s := &Subscriber{
		bus:      b,
		identity: identity,
		ch:       make(chan Event, backlog),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s
}

// Publish delivers ev to every subscriber whose identity differs from the
// one carried by the event.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		if s.identity == ev.Identity {
			continue
		}
		s.queue(ev)
	}
}

// Events yields this subscriber's stream. The channel is closed by Close.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Deliver queues ev for this subscriber alone, bypassing the self-filter.
// Used to greet a freshly attached connection with state it missed.
func (s *Subscriber) Deliver(ev Event) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subs[s]; !ok {
		return
	}
	s.queue(ev)
}

// queue requires the bus lock, which also excludes Close, so sending on
// s.ch cannot race with it being closed.
func (s *Subscriber) queue(ev Event) {
	select {
	case s.ch <- ev:
	default:
		// Full backlog: shed the oldest pending event to make room.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// Close detaches the subscriber and closes its event channel. Safe to
// call more than once.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if _, ok := s.bus.subs[s]; ok {
		delete(s.bus.subs, s)
		close(s.ch)
	}
}
