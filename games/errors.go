package games

import (
	"errors"
	"fmt"
)

// Error kinds returned by the games package. Handlers match these with
// errors.Is to pick a status code and page; every other error is internal.
var (
	ErrNotFound     = errors.New("game not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrOverloaded   = errors.New("server overloaded")
	ErrInternal     = errors.New("internal error")
)

// Distinct user-facing rejections for character pack uploads.
var (
	ErrEmptyPack     = fmt.Errorf("%w: character pack required", ErrInvalidInput)
	ErrCorruptPack   = fmt.Errorf("%w: unreadable character pack", ErrInvalidInput)
	ErrTooFewImages  = fmt.Errorf("%w: not enough images in character pack", ErrInvalidInput)
	ErrWrongIdentity = fmt.Errorf("%w: event identity mismatch", ErrInvalidInput)
)
