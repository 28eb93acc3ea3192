package pvpchess

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrInvalidState     = errors.New("invalid state for this transition")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrNotParticipant   = errors.New("user is not a participant")
	ErrStoreUnavailable = errors.New("game store unavailable")

	// ErrGameNotFound is an ErrInvalidState: the record was declined or never existed.
	ErrGameNotFound = fmt.Errorf("game not found: %w", ErrInvalidState)
)

// Stable codes exposed to clients.
const (
	CodeInvalidChallenge = "INVALID_CHALLENGE"
	CodeInvalidState     = "INVALID_STATE"
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeIllegalMove      = "ILLEGAL_MOVE"
	CodeNotParticipant   = "NOT_PARTICIPANT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// Code maps err to its client code. ErrGameNotFound is checked before its
// parent ErrInvalidState.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGameNotFound):
		return CodeGameNotFound
	case errors.Is(err, ErrInvalidChallenge):
		return CodeInvalidChallenge
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, ErrIllegalMove):
		return CodeIllegalMove
	case errors.Is(err, ErrNotParticipant):
		return CodeNotParticipant
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

// Retryable reports whether a blind retry may succeed. Everything else needs
// a fresh read of the game first.
func Retryable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
