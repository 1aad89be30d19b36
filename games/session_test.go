package games

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

const (
	testRows = 4
	testCols = 6
)

func testSet(n int) CharacterSet {
	set := make(CharacterSet, n)
	for i := range set {
		set[i] = &Character{
			mediaType: "image/png",
			data:      []byte(fmt.Sprintf("image-%d", i)),
		}
	}
	return set
}

func testSession() *Session {
	return NewSession(testSet(testRows*testCols), testCols,
		PlayerState{ID: 100, Character: 5},
		PlayerState{ID: 200, Character: 9},
	)
}

func TestClaim(t *testing.T) {
	session := testSession()

	if !session.Claim(100) {
		t.Fatal("claim with valid identity failed")
	}
	if !session.Claim(100) {
		t.Fatal("claim is not idempotent")
	}
	if session.Claim(42) {
		t.Fatal("claim accepted an unknown identity")
	}

	if id, ok := session.Unclaimed(); !ok || id != 200 {
		t.Fatalf("expected p1 (200) unclaimed, got %d, %t", id, ok)
	}

	session.Claim(200)
	if _, ok := session.Unclaimed(); ok {
		t.Fatal("expected no unclaimed role after both claims")
	}
}

func TestGuessCorrect(t *testing.T) {
	session := testSession()
	sub := session.Subscribe(100)
	defer sub.Close()

	// (0, 5) maps to index 5, p0's secret, guessed by p1.
	correct, err := session.Guess(200, 0, 5)
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if !correct {
		t.Fatal("expected correct guess")
	}

	ev := <-sub.Events()
	if ev.Type != EventCorrect || ev.Identity != 200 || ev.Tries != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestGuessTriesCountsIncorrectAttempts(t *testing.T) {
	session := testSession()
	sub := session.Subscribe(100)
	defer sub.Close()

	if correct, err := session.Guess(200, 0, 0); err != nil || correct {
		t.Fatalf("expected incorrect guess, got correct=%t err=%v", correct, err)
	}
	if ev := <-sub.Events(); ev.Type != EventIncorrect || ev.Identity != 200 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if correct, err := session.Guess(200, 0, 5); err != nil || !correct {
		t.Fatalf("expected correct guess, got correct=%t err=%v", correct, err)
	}
	if ev := <-sub.Events(); ev.Type != EventCorrect || ev.Tries != 2 {
		t.Fatalf("expected tries=2, got %+v", ev)
	}
}

func TestGuessUnauthorized(t *testing.T) {
	session := testSession()

	if _, err := session.Guess(42, 0, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGuessMalformedCoordinates(t *testing.T) {
	session := testSession()

	// Rows large enough to overflow the cell-index product must be
	// rejected too, not wrapped into a negative index.
	hugeRow := math.MaxInt/testCols + 1

	for _, coords := range [][2]int{
		{-1, 0},
		{0, -1},
		{0, testCols},
		{testRows, 0},
		{hugeRow, 0},
		{math.MaxInt, testCols - 1},
	} {
		if _, err := session.Guess(100, coords[0], coords[1]); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("coords %v: expected ErrInvalidInput, got %v", coords, err)
		}
	}
}

func TestCellCharacterMalformedCoordinates(t *testing.T) {
	session := testSession()

	hugeRow := math.MaxInt/testCols + 1

	for _, coords := range [][2]int{
		{-1, 0},
		{0, -1},
		{0, testCols},
		{testRows, 0},
		{hugeRow, 0},
		{math.MaxInt, testCols - 1},
	} {
		ch, err := session.CellCharacter(coords[0], coords[1])
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("coords %v: expected ErrInvalidInput, got %v", coords, err)
		}
		if ch != nil {
			t.Fatalf("coords %v: expected no character", coords)
		}
	}
}

func TestSetConnected(t *testing.T) {
	session := testSession()
	sub := session.Subscribe(200)
	defer sub.Close()

	if _, ok := session.SetConnected(100, true); ok {
		t.Fatal("expected no connected opponent yet")
	}
	if ev := <-sub.Events(); ev.Type != EventConnected || ev.Identity != 100 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if other, ok := session.SetConnected(200, true); !ok || other != 100 {
		t.Fatalf("expected connected opponent 100, got %d, %t", other, ok)
	}

	if _, ok := session.SetConnected(100, false); !ok {
		t.Fatal("expected p1 still connected on p0 disconnect")
	}
	if ev := <-sub.Events(); ev.Type != EventDisconnected || ev.Identity != 100 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestSetConnectedUnknownIdentityStillPublishes(t *testing.T) {
	session := testSession()
	sub := session.Subscribe(100)
	defer sub.Close()

	if _, ok := session.SetConnected(42, true); ok {
		t.Fatal("unknown identity cannot have a connected opponent")
	}

	// The event still goes out so observers can detect cross-talk.
	if ev := <-sub.Events(); ev.Type != EventConnected || ev.Identity != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestCharacters(t *testing.T) {
	session := testSession()

	own, err := session.OwnCharacter(100)
	if err != nil {
		t.Fatalf("own character: %v", err)
	}
	cell, err := session.CellCharacter(0, 5)
	if err != nil {
		t.Fatalf("cell character: %v", err)
	}
	if own != cell {
		t.Fatal("p0's character (index 5) should be the asset at (0, 5)")
	}

	if _, err := session.OwnCharacter(42); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := session.CellCharacter(testRows, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
