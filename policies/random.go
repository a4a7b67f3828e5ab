package policies

import (
	"math/rand"
	"time"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/lossbridge"
)

// RandomPolicy picks actions uniformly and never learns. Its update step
// still goes through a loss bridge, one that always yields the zero loss.
type RandomPolicy struct {
	rand   *rand.Rand
	bridge lossbridge.Bridge
}

var _ core.Policy = &RandomPolicy{}

func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		bridge: lossbridge.NewNoOp(),
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) PickAction(step *core.StepContext, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	i := r.rand.Intn(len(actions))
	return actions[i]
}

func (r *RandomPolicy) UpdateStep(_ *core.StepContext, state core.State, action core.Action, nextState core.State) error {
	_, err := r.bridge.GetLoss(core.NewBatch([]core.Transition{{
		State:     state,
		Action:    action,
		NextState: nextState,
	}}, 1))
	return err
}

func (r *RandomPolicy) ResetEpisode(_ *core.EpisodeContext) {}

type RandomPolicyConstructor struct{}

var _ core.PolicyConstructor = &RandomPolicyConstructor{}

func (r *RandomPolicyConstructor) NewPolicy() core.Policy {
	return NewRandomPolicy()
}
