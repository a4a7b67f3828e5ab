package policies

import (
	"errors"
	"fmt"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/lossbridge"
)

var ErrEmptyBatch = errors.New("empty batch")

// TDLossCalculator computes temporal-difference residuals against a QTable.
//
// For every sample the residual is r + discount*Q(s', a') - Q(s, a), where a'
// is the updated action when the batch carries one and the greedy action
// otherwise.
type TDLossCalculator struct {
	qTable   *QTable
	discount float64
}

var _ lossbridge.LossCalculator = &TDLossCalculator{}

func NewTDLossCalculator(qTable *QTable, discount float64) *TDLossCalculator {
	return &TDLossCalculator{
		qTable:   qTable,
		discount: discount,
	}
}

func (c *TDLossCalculator) CalculateLoss(b *core.Batch) (*lossbridge.Loss, error) {
	if b.Len() == 0 {
		return nil, ErrEmptyBatch
	}
	if len(b.Actions) != b.Len() || len(b.Rewards) != b.Len() || len(b.NextStates) != b.Len() {
		return nil, fmt.Errorf("malformed batch: %d states, %d actions, %d rewards, %d next states",
			b.Len(), len(b.Actions), len(b.Rewards), len(b.NextStates))
	}
	withUpdated := len(b.UpdatedActions) == b.Len()

	residuals := make([]float64, b.Len())
	for i := range residuals {
		stateHash := b.States[i].Hash()
		nextStateHash := b.NextStates[i].Hash()

		var next float64
		if withUpdated && b.UpdatedActions[i] != nil {
			next = c.qTable.Get(nextStateHash, b.UpdatedActions[i].Hash(), 0)
		} else {
			_, next = c.qTable.Max(nextStateHash, 0)
		}
		cur := c.qTable.Get(stateHash, b.Actions[i].Hash(), 0)
		residuals[i] = b.Rewards[i] + c.discount*next - cur
	}
	return lossbridge.FromResiduals(residuals), nil
}
