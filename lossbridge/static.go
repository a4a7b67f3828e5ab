package lossbridge

import "github.com/zeu5/lossbridge/core"

// State is the consumption state of a Static bridge.
type State int

const (
	Unset State = iota
	Pending
	Consumed
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Pending:
		return "pending"
	case Consumed:
		return "consumed"
	}
	return "invalid"
}

// Static holds an externally computed loss that can be retrieved once per Set.
//
//	Unset    --Set-->     Pending
//	Pending  --Set-->     Pending   (previous value dropped)
//	Consumed --Set-->     Pending
//	Pending  --GetLoss--> Consumed
//
// GetLoss fails with ErrUnsetLoss in Unset and ErrAlreadyConsumed in Consumed.
type Static struct {
	state State
	loss  *Loss
}

var _ Bridge = &Static{}
var _ Setter = &Static{}

func NewStatic() *Static {
	return &Static{state: Unset}
}

// Set stores l for the next GetLoss, overwriting any pending loss.
func (s *Static) Set(l *Loss) {
	s.loss = l
	s.state = Pending
}

// GetLoss returns the pending loss and marks it consumed. The batch is
// ignored.
func (s *Static) GetLoss(_ *core.Batch) (*Loss, error) {
	switch s.state {
	case Unset:
		return nil, ErrUnsetLoss
	case Consumed:
		return nil, ErrAlreadyConsumed
	case Pending:
	default:
		panic(&InvariantViolationError{State: s.state, Msg: "unknown state"})
	}
	if s.loss == nil {
		panic(&InvariantViolationError{State: s.state, Msg: "no loss held"})
	}

	l := s.loss
	s.loss = nil
	s.state = Consumed
	return l, nil
}

func (s *Static) State() State {
	return s.state
}
