package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPhase indicates a phase outside the six-phase protocol.
	ErrUnknownPhase = errors.New("unknown lifecycle phase")

	// ErrNotObserver indicates a binding resolved to a value that provides
	// no lifecycle hooks at all.
	ErrNotObserver = errors.New("instance provides no lifecycle hooks")

	// ErrInvalidGroupOrder indicates an empty or duplicate group name in a
	// configured order.
	ErrInvalidGroupOrder = errors.New("invalid group order")
)

// PhaseError reports where a pass failed: the phase being driven, the group
// being notified and the observer key whose hook (or resolution) failed.
type PhaseError struct {
	Phase Phase
	Group string
	Key   string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: group %q: observer %q: %v", e.Phase, e.Group, e.Key, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
