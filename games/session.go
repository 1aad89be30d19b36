package games

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
	"sync"
)

// PlayerState tracks one of the two fixed roles in a session. Claimed
// records whether any request has presented this identity yet; Connected
// reflects live-connection presence and is independent of Claimed.
type PlayerState struct {
	ID             uint64
	Claimed        bool
	Character      int
	IncorrectCount int
	Solved         bool
	Connected      bool
}

// RandomID returns an unpredictable 64-bit identifier, used both for
// session ids and player identities. Guessing either grants control over
// someone else's game, so these must come from crypto/rand.
func RandomID() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return binary.BigEndian.Uint64(buf[:])
}

// NewPlayer returns an unclaimed player with a fresh identity and a
// randomly assigned secret character.
func NewPlayer(numChars int) PlayerState {
	return PlayerState{
		ID:        RandomID(),
		Character: mathrand.IntN(numChars),
	}
}

// Session is one live two-player game. All state is guarded by a single
// mutex per session, so contention stays within one game. Events are
// published while the lock is held, which keeps delivery in mutation
// order; publishing never blocks, so the critical section stays short.
type Session struct {
	mu   sync.Mutex
	set  CharacterSet
	cols int
	bus  *Bus
	p0   PlayerState
	p1   PlayerState
}

func NewSession(set CharacterSet, cols int, p0, p1 PlayerState) *Session {
	return &Session{
		set:  set,
		cols: cols,
		bus:  NewBus(),
		p0:   p0,
		p1:   p1,
	}
}

// Claim marks the role matching identity as claimed. Returns false if
// the identity matches neither role, in which case the caller must treat
// the requester as unauthenticated for this session. Idempotent.
func (s *Session) Claim(identity uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch identity {
	case s.p0.ID:
		s.p0.Claimed = true
	case s.p1.ID:
		s.p1.Claimed = true
	default:
		return false
	}

	return true
}

// Unclaimed returns the identity of the first role no request has
// claimed yet, or false once both are taken.
func (s *Session) Unclaimed() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.p0.Claimed {
		return s.p0.ID, true
	}
	if !s.p1.Claimed {
		return s.p1.ID, true
	}

	return 0, false
}

// References reports whether identity is one of this session's two
// players. The registry uses it to destroy a player's previous game when
// they start a new one.
func (s *Session) References(identity uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return identity == s.p0.ID || identity == s.p1.ID
}

// roles returns (requester, opponent) for identity, or nil if it matches
// neither player. Caller must hold s.mu.
func (s *Session) roles(identity uint64) (*PlayerState, *PlayerState) {
	switch identity {
	case s.p0.ID:
		return &s.p0, &s.p1
	case s.p1.ID:
		return &s.p1, &s.p0
	}
	return nil, nil
}

// Guess compares the cell at (row, col) against the opponent's secret
// character. A match marks the requester solved; a miss increments their
// incorrect count. Either way the outcome is published to the session
// bus. Guesses after solving are still accepted and republished.
func (s *Session) Guess(identity uint64, row, col int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, opponent := s.roles(identity)
	if player == nil {
		return false, ErrUnauthorized
	}

	// Bound row before multiplying; the product can overflow for
	// caller-supplied values.
	if row < 0 || row >= len(s.set)/s.cols || col < 0 || col >= s.cols {
		return false, ErrInvalidInput
	}

	correct := row*s.cols+col == opponent.Character
	if correct {
		player.Solved = true
		s.bus.Publish(Event{
			Type:     EventCorrect,
			Identity: identity,
			Tries:    player.IncorrectCount + 1,
		})
	} else {
		player.IncorrectCount++
		s.bus.Publish(Event{
			Type:     EventIncorrect,
			Identity: identity,
		})
	}

	return correct, nil
}

// SetConnected updates the matching role's presence flag and publishes a
// connected/disconnected event. The event goes out even for identities
// matching neither role, so observers can spot cross-talk. Returns the
// other player's identity when that player is currently connected, so
// the caller can greet the newly joined side with their presence.
func (s *Session) SetConnected(identity uint64, connected bool) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := EventDisconnected
	if connected {
		kind = EventConnected
	}

	player, other := s.roles(identity)
	if player != nil {
		player.Connected = connected
	}
	s.bus.Publish(Event{Type: kind, Identity: identity})

	if other != nil && other.Connected {
		return other.ID, true
	}
	return 0, false
}

// OwnCharacter returns the asset assigned to the requesting player.
func (s *Session) OwnCharacter(identity uint64) (*Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, _ := s.roles(identity)
	if player == nil {
		return nil, ErrUnauthorized
	}

	return s.set[player.Character], nil
}

// CellCharacter returns the asset shown at (row, col) on the board.
func (s *Session) CellCharacter(row, col int) (*Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row < 0 || row >= len(s.set)/s.cols || col < 0 || col >= s.cols {
		return nil, ErrInvalidInput
	}

	return s.set[row*s.cols+col], nil
}

// Subscribe attaches a new viewer to this session's event bus.
func (s *Session) Subscribe(identity uint64) *Subscriber {
	return s.bus.Subscribe(identity)
}

// Publish forwards a client-submitted event (chat, call signaling) to
// the session bus.
func (s *Session) Publish(ev Event) {
	s.bus.Publish(ev)
}
