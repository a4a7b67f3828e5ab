package lossbridge

import "github.com/zeu5/lossbridge/core"

// LossCalculator computes a loss from a batch of transitions.
type LossCalculator interface {
	CalculateLoss(*core.Batch) (*Loss, error)
}

type LossCalculatorFunc func(*core.Batch) (*Loss, error)

func (f LossCalculatorFunc) CalculateLoss(b *core.Batch) (*Loss, error) {
	return f(b)
}

// Dynamic computes the loss on demand. Calculator errors are returned as is.
type Dynamic struct {
	calc LossCalculator
}

var _ Bridge = &Dynamic{}

func NewDynamic(calc LossCalculator) *Dynamic {
	return &Dynamic{calc: calc}
}

func (d *Dynamic) GetLoss(b *core.Batch) (*Loss, error) {
	return d.calc.CalculateLoss(b)
}
