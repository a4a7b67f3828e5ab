package policies

import (
	"math"

	"github.com/zeu5/lossbridge/core"
	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Exploration picks an action for a state given the current QTable
type Exploration interface {
	Choose(q *QTable, state core.State, actions []core.Action) core.Action
}

// EpsilonGreedy picks a uniformly random action with probability Epsilon and
// a greedy one otherwise. Ties are broken at random.
type EpsilonGreedy struct {
	Epsilon float64
	rand    *erand.Rand
}

var _ Exploration = &EpsilonGreedy{}

func NewEpsilonGreedy(epsilon float64, seed uint64) *EpsilonGreedy {
	return &EpsilonGreedy{
		Epsilon: epsilon,
		rand:    erand.New(erand.NewSource(seed)),
	}
}

func (e *EpsilonGreedy) Choose(q *QTable, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	if e.rand.Float64() < e.Epsilon {
		return actions[e.rand.Intn(len(actions))]
	}

	actionsMap := make(map[string]core.Action)
	availableActions := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		availableActions[i] = aHash
	}
	maxAction, _ := q.MaxAmong(state.Hash(), availableActions, 0)
	if maxAction == "" {
		return nil
	}
	return actionsMap[maxAction]
}

// SoftMax samples actions with probability proportional to exp(Q/Temperature)
type SoftMax struct {
	Temperature float64
	rand        erand.Source
}

var _ Exploration = &SoftMax{}

func NewSoftMax(temperature float64, seed uint64) *SoftMax {
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftMax{
		Temperature: temperature,
		rand:        erand.NewSource(seed),
	}
}

func (s *SoftMax) Choose(q *QTable, state core.State, actions []core.Action) core.Action {
	if len(actions) == 0 {
		return nil
	}
	stateHash := state.Hash()

	vals := make([]float64, len(actions))
	largestValue := math.Inf(-1)
	for i, a := range actions {
		vals[i] = q.Get(stateHash, a.Hash(), 0) / s.Temperature
		if vals[i] > largestValue {
			largestValue = vals[i]
		}
	}

	// Normalizing
	sum := float64(0)
	for i := range vals {
		vals[i] = math.Exp(vals[i] - largestValue)
		sum += vals[i]
	}
	weights := make([]float64, len(actions))
	for i, v := range vals {
		weights[i] = v / sum
	}

	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return nil
	}
	return actions[i]
}
