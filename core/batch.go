package core

// Transition is a single sample stored for replay.
type Transition struct {
	State         State
	Action        Action
	UpdatedAction Action
	Reward        float64
	NextState     State
}

// Batch is a bundle of transitions in column form. UpdatedActions is either
// empty or the same length as Actions. UpdateInterval is the number of
// environment steps between updates that produced this batch.
type Batch struct {
	States         []State
	Actions        []Action
	UpdatedActions []Action
	Rewards        []float64
	NextStates     []State
	UpdateInterval int
}

func NewBatch(transitions []Transition, updateInterval int) *Batch {
	b := &Batch{
		States:         make([]State, len(transitions)),
		Actions:        make([]Action, len(transitions)),
		Rewards:        make([]float64, len(transitions)),
		NextStates:     make([]State, len(transitions)),
		UpdateInterval: updateInterval,
	}
	withUpdated := false
	for _, t := range transitions {
		if t.UpdatedAction != nil {
			withUpdated = true
			break
		}
	}
	if withUpdated {
		b.UpdatedActions = make([]Action, len(transitions))
	}
	for i, t := range transitions {
		b.States[i] = t.State
		b.Actions[i] = t.Action
		b.Rewards[i] = t.Reward
		b.NextStates[i] = t.NextState
		if withUpdated {
			b.UpdatedActions[i] = t.UpdatedAction
		}
	}
	return b
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.States)
}
