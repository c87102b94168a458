package state

import (
	"errors"
	"fmt"

	"github.com/bestballhq/draftengine/internal/models"
)

// ErrorKind classifies a rejected commit so callers can branch without
// string matching.
type ErrorKind string

const (
	KindNotOnClock              ErrorKind = "NOT_ON_CLOCK"
	KindSlotAlreadyFilled       ErrorKind = "SLOT_ALREADY_FILLED"
	KindPlayerAlreadyDrafted    ErrorKind = "PLAYER_ALREADY_DRAFTED"
	KindPositionalLimitExceeded ErrorKind = "POSITIONAL_LIMIT_EXCEEDED"
	KindNotEligible             ErrorKind = "NOT_ELIGIBLE"
	KindRoomNotActive           ErrorKind = "ROOM_NOT_ACTIVE"
	KindPlayerNotInPool         ErrorKind = "PLAYER_NOT_IN_POOL"
)

// CommitError is the typed rejection returned by CommitPick. None of these
// kinds mutate room state; the caller may resubmit while the clock runs.
type CommitError struct {
	Kind ErrorKind
	// Existing carries the authoritative committed pick when Kind is
	// SlotAlreadyFilled, so a caller that lost a race gets a clear,
	// non-destructive answer.
	Existing *models.Pick
	Reason   string
}

func (e *CommitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

// NewCommitError builds a CommitError with a formatted reason.
func NewCommitError(kind ErrorKind, format string, args ...any) *CommitError {
	return &CommitError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsCommitError unwraps err into a CommitError if it is one.
func AsCommitError(err error) (*CommitError, bool) {
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind reports whether err is a CommitError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ce, ok := AsCommitError(err)
	return ok && ce.Kind == kind
}

// ErrRoomNotFound is returned for operations on unknown rooms.
var ErrRoomNotFound = errors.New("room not found")
