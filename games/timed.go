package games

import (
	"sync/atomic"
	"time"
)

// TimedResource wraps a value behind a handle that stops handing it out
// once a fixed TTL has elapsed. Expiry gates new acquisitions only;
// callers already holding the value keep using it. There is no timer
// goroutine; the deadline is checked on access and whoever touches an
// expired entry next is expected to evict it.
type TimedResource[T any] struct {
	value    atomic.Pointer[T]
	deadline time.Time
}

func NewTimedResource[T any](value *T, ttl time.Duration) *TimedResource[T] {
	t := &TimedResource[T]{deadline: time.Now().Add(ttl)}
	t.value.Store(value)
	return t
}

// Get returns the wrapped value, or nil permanently once the TTL has
// elapsed. Lock-free and never blocks.
func (t *TimedResource[T]) Get() *T {
	if time.Now().After(t.deadline) {
		t.value.Store(nil)
		return nil
	}
	return t.value.Load()
}

func (t *TimedResource[T]) Expired() bool {
	return time.Now().After(t.deadline)
}
