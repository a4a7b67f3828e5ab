package lossbridge

import "github.com/zeu5/lossbridge/core"

// NoOp yields the zero loss for any input, so the update contributes nothing.
type NoOp struct{}

var _ Bridge = NoOp{}

func NewNoOp() NoOp {
	return NoOp{}
}

func (NoOp) GetLoss(_ *core.Batch) (*Loss, error) {
	return Zero(), nil
}
