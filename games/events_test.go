package games

import (
	"errors"
	"testing"
)

func TestVerifyIdentity(t *testing.T) {
	ev := Event{Type: EventMessage, Identity: 7, Content: "it's you"}

	if err := VerifyIdentity(ev, 7); err != nil {
		t.Fatalf("matching identity rejected: %v", err)
	}

	// A client event carrying someone else's identity must be refused.
	err := VerifyIdentity(ev, 8)
	if !errors.Is(err, ErrWrongIdentity) {
		t.Fatalf("expected ErrWrongIdentity, got %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("identity mismatch must be an invalid-input kind")
	}
}

func TestBusNoEcho(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(7)
	defer sub.Close()

	bus.Publish(Event{Type: EventIncorrect, Identity: 7})

	select {
	case ev := <-sub.Events():
		t.Fatalf("subscriber received its own event: %+v", ev)
	default:
	}

	bus.Publish(Event{Type: EventIncorrect, Identity: 8})

	select {
	case ev := <-sub.Events():
		if ev.Identity != 8 {
			t.Fatalf("expected identity 8, got %d", ev.Identity)
		}
	default:
		t.Fatal("subscriber missed another player's event")
	}
}

func TestBusDeliveryOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		bus.Publish(Event{Type: EventCorrect, Identity: 2, Tries: i})
	}

	for i := 1; i <= 5; i++ {
		ev := <-sub.Events()
		if ev.Tries != i {
			t.Fatalf("event %d arrived out of order: got tries=%d", i, ev.Tries)
		}
	}
}

func TestBusDropsOldestWhenBacklogFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer sub.Close()

	total := backlog + 3
	for i := 1; i <= total; i++ {
		bus.Publish(Event{Type: EventIncorrect, Identity: 2, Tries: i})
	}

	received := 0
	first := 0
	for {
		select {
		case ev := <-sub.Events():
			received++
			if first == 0 {
				first = ev.Tries
			}
			continue
		default:
		}
		break
	}

	if received != backlog {
		t.Fatalf("expected %d pending events, got %d", backlog, received)
	}
	if first != total-backlog+1 {
		t.Fatalf("expected oldest surviving event to be %d, got %d", total-backlog+1, first)
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer sub.Close()

	// A stalled subscriber must not stall publishers.
	for i := 0; i < 10*backlog; i++ {
		bus.Publish(Event{Type: EventIncorrect, Identity: 2})
	}
}

func TestSubscriberDeliverAndClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)

	// Deliver bypasses the self-filter; used for presence greetings.
	sub.Deliver(Event{Type: EventConnected, Identity: 1})

	ev := <-sub.Events()
	if ev.Type != EventConnected {
		t.Fatalf("expected connected event, got %q", ev.Type)
	}

	sub.Close()
	sub.Close() // safe to call twice

	if _, open := <-sub.Events(); open {
		t.Fatal("expected channel closed after Close")
	}

	// Publishing after close must not panic or deliver.
	bus.Publish(Event{Type: EventIncorrect, Identity: 2})
	sub.Deliver(Event{Type: EventConnected, Identity: 2})
}
