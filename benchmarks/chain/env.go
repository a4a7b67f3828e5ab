// Package chain is a one dimensional walk: the agent starts at the left end
// of a chain and has to reach the right end, with every move possibly
// slipping the other way.
package chain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/policies"
	erand "golang.org/x/exp/rand"
)

type ChainAction string

const (
	Left  ChainAction = "left"
	Right ChainAction = "right"
)

func (a ChainAction) Hash() string {
	return string(a)
}

type ChainState struct {
	Position int
	Length   int
}

var _ core.State = &ChainState{}

func (s *ChainState) Hash() string {
	return strconv.Itoa(s.Position)
}

func (s *ChainState) Actions() []core.Action {
	return []core.Action{Left, Right}
}

func (s *ChainState) AtGoal() bool {
	return s.Position == s.Length-1
}

type ChainConfig struct {
	Length int
	// Slip is the probability of moving opposite to the chosen direction
	Slip float64
	Seed uint64
}

type ChainEnvironment struct {
	config ChainConfig
	state  *ChainState
	rand   *erand.Rand
}

var _ core.Environment = &ChainEnvironment{}

func NewChainEnvironment(config ChainConfig) *ChainEnvironment {
	if config.Length < 2 {
		config.Length = 2
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &ChainEnvironment{
		config: config,
		rand:   erand.New(erand.NewSource(seed)),
	}
}

func (c *ChainEnvironment) Reset() (core.State, error) {
	c.state = &ChainState{Position: 0, Length: c.config.Length}
	return c.state, nil
}

func (c *ChainEnvironment) Step(a core.Action, _ *core.StepContext) (core.State, error) {
	if c.state == nil {
		return nil, fmt.Errorf("step before reset")
	}
	action, ok := a.(ChainAction)
	if !ok {
		return nil, fmt.Errorf("invalid action %v", a)
	}
	move := 1
	if action == Left {
		move = -1
	}
	if c.config.Slip > 0 && c.rand.Float64() < c.config.Slip {
		move = -move
	}

	pos := c.state.Position + move
	if pos < 0 {
		pos = 0
	}
	if pos >= c.config.Length {
		pos = c.config.Length - 1
	}
	c.state = &ChainState{Position: pos, Length: c.config.Length}
	return c.state, nil
}

type ChainEnvironmentConstructor struct {
	config ChainConfig
}

var _ core.EnvironmentConstructor = &ChainEnvironmentConstructor{}

func NewChainEnvironmentConstructor(config ChainConfig) *ChainEnvironmentConstructor {
	return &ChainEnvironmentConstructor{config: config}
}

func (c *ChainEnvironmentConstructor) NewEnvironment(instance int) core.Environment {
	config := c.config
	if config.Seed != 0 {
		config.Seed += uint64(instance)
	}
	return NewChainEnvironment(config)
}

// GoalReward pays 1 for every transition into the goal
func GoalReward() policies.RewardFunc {
	return func(_ core.State, _ core.Action, nextState core.State) float64 {
		if cs, ok := nextState.(*ChainState); ok && cs.AtGoal() {
			return 1
		}
		return 0
	}
}

// SegmentPainter paints positions by the segment of the chain they fall in
func SegmentPainter(segments int) core.Painter {
	if segments < 1 {
		segments = 1
	}
	return core.NewComposedPainter(func(s core.State) (string, interface{}) {
		cs := s.(*ChainState)
		return "segment", cs.Position * segments / cs.Length
	}, func(s core.State) (string, interface{}) {
		return "goal", s.(*ChainState).AtGoal()
	}).Painter()
}
