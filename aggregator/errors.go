package aggregator

import (
	"errors"
	"fmt"

	"gamestake/models"
)

var (
	// ErrConsistency marks an event that contradicts already-applied state
	ErrConsistency = errors.New("consistency fault")

	// ErrPendingOverflow means the predecessor buffer is full
	ErrPendingOverflow = errors.New("predecessor buffer is full")
)

// ConsistencyError describes a rejected event with enough context to reconcile it by hand
type ConsistencyError struct {
	MatchID  string
	Kind     models.EventKind
	Identity models.Identity
	Order    models.BlockOrder
	Reason   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency fault on match %s: %s event %s at %s: %s",
		e.MatchID, e.Kind, e.Identity, e.Order, e.Reason)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}
