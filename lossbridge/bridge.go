// Package lossbridge hands a training loss from the code that computes it to
// the update step that applies it.
//
// A policy holds exactly one Bridge, chosen when the policy is constructed:
//
//   - Static is a single-use cell. The loss is Set once per update and
//     retrieved once with GetLoss.
//   - Dynamic computes the loss from the batch on every GetLoss call.
//   - NoOp always yields the zero loss.
//
// The update step only ever calls GetLoss. Bridges do no locking; use one
// bridge per training worker.
package lossbridge

import (
	"fmt"
	"strings"

	"github.com/zeu5/lossbridge/core"
)

// Bridge produces the loss for one update step.
type Bridge interface {
	GetLoss(*core.Batch) (*Loss, error)
}

// Setter is implemented by bridges whose loss is injected from outside.
type Setter interface {
	Set(*Loss)
}

// Kind names a bridge variant in configuration.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
	KindNoOp    Kind = "noop"
)

// Kinds lists every known bridge variant.
func Kinds() []Kind {
	return []Kind{KindStatic, KindDynamic, KindNoOp}
}

// ParseKind maps a case-insensitive name to its Kind, or fails with
// ErrUnknownKind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindStatic, KindDynamic, KindNoOp:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// New constructs a bridge of the given kind. calc is only used (and required)
// for KindDynamic.
func New(kind Kind, calc LossCalculator) (Bridge, error) {
	switch kind {
	case KindStatic:
		return NewStatic(), nil
	case KindDynamic:
		if calc == nil {
			return nil, ErrNilCalculator
		}
		return NewDynamic(calc), nil
	case KindNoOp:
		return NewNoOp(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
