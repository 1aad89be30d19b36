package games

import (
	"testing"
	"time"
)

func TestRegistryCreateAndLookup(t *testing.T) {
	registry := NewRegistry()
	session := testSession()

	id := registry.NewID()
	if active := registry.Create(id, session, time.Hour); active != 1 {
		t.Fatalf("expected 1 active session, got %d", active)
	}

	got, ok := registry.Lookup(id)
	if !ok || got != session {
		t.Fatal("lookup did not return the stored session")
	}

	if _, ok := registry.Lookup(id + 1); ok {
		t.Fatal("lookup returned a session for an unknown id")
	}
}

func TestRegistryLookupAfterExpiry(t *testing.T) {
	registry := NewRegistry()

	id := registry.NewID()
	registry.Create(id, testSession(), 20*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	if _, ok := registry.Lookup(id); ok {
		t.Fatal("lookup returned an expired session")
	}
	// Expiry is permanent.
	if _, ok := registry.Lookup(id); ok {
		t.Fatal("expired session resurrected")
	}
}

func TestRegistryCreateEvictsPreviousGame(t *testing.T) {
	registry := NewRegistry()

	oldID := registry.NewID()
	registry.Create(oldID, NewSession(testSet(testRows*testCols), testCols,
		PlayerState{ID: 100, Character: 1},
		PlayerState{ID: 200, Character: 2},
	), time.Hour)

	// Identity 100 starts a new game; the previous one must die.
	newID := registry.NewID()
	active := registry.Create(newID, NewSession(testSet(testRows*testCols), testCols,
		PlayerState{ID: 100, Character: 3},
		PlayerState{ID: 300, Character: 4},
	), time.Hour)

	if active != 1 {
		t.Fatalf("expected 1 active session after eviction, got %d", active)
	}
	if _, ok := registry.Lookup(oldID); ok {
		t.Fatal("previous game still reachable after new create")
	}
	if _, ok := registry.Lookup(newID); !ok {
		t.Fatal("new game missing after create")
	}
}

func TestRegistryCreateKeepsUnrelatedGames(t *testing.T) {
	registry := NewRegistry()

	firstID := registry.NewID()
	registry.Create(firstID, NewSession(testSet(testRows*testCols), testCols,
		PlayerState{ID: 100, Character: 1},
		PlayerState{ID: 200, Character: 2},
	), time.Hour)

	secondID := registry.NewID()
	active := registry.Create(secondID, NewSession(testSet(testRows*testCols), testCols,
		PlayerState{ID: 300, Character: 3},
		PlayerState{ID: 400, Character: 4},
	), time.Hour)

	if active != 2 {
		t.Fatalf("expected 2 active sessions, got %d", active)
	}
	if _, ok := registry.Lookup(firstID); !ok {
		t.Fatal("unrelated game evicted")
	}
}

func TestRegistryLoadSet(t *testing.T) {
	registry := NewRegistry()

	set, err := registry.LoadSet(buildZip(t, pngEntries(4)), 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 4 {
		t.Fatalf("expected 4 characters, got %d", len(set))
	}
	if registry.CacheSize() == 0 {
		t.Fatal("expected nonzero cache size while set is live")
	}
	if registry.CacheLen() != 4 {
		t.Fatalf("expected 4 cache entries, got %d", registry.CacheLen())
	}
}
