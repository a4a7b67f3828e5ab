package lossbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsetLoss is returned when a loss is requested before one was set.
	ErrUnsetLoss = errors.New("loss requested before it was set")
	// ErrAlreadyConsumed is returned when the same loss is requested twice.
	ErrAlreadyConsumed = errors.New("loss already consumed")

	ErrNilCalculator = errors.New("dynamic bridge requires a loss calculator")
	ErrUnknownKind   = errors.New("unknown bridge kind")
)

// InvariantViolationError is raised with panic when a bridge finds its own
// state inconsistent. It marks a defect in the bridge, not caller misuse, so
// it is never returned as an error.
type InvariantViolationError struct {
	State State
	Msg   string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("loss bridge invariant violated in state %s: %s", e.State, e.Msg)
}
