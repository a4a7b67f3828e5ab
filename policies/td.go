package policies

import (
	"errors"
	"fmt"
	"time"

	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/lossbridge"
	"go.uber.org/zap"
)

// RewardFunc scores a single transition
type RewardFunc func(state core.State, action core.Action, nextState core.State) float64

type ExplorationKind string

const (
	ExploreEpsilonGreedy ExplorationKind = "epsilon"
	ExploreSoftMax       ExplorationKind = "softmax"
)

type TDConfig struct {
	// Bridge selects how the update step obtains its loss
	Bridge lossbridge.Kind

	Alpha    float64
	Discount float64

	Exploration ExplorationKind
	Epsilon     float64
	Temperature float64

	BatchSize      int
	BufferSize     int
	UpdateInterval int
	// Sarsa bootstraps from the greedy action recorded at sampling time
	// instead of the max over the next state at update time
	Sarsa bool

	// Reward defaults to a visit count bonus of 1/t
	Reward RewardFunc
	// Seed of 0 uses the current time
	Seed   uint64
	Logger *zap.Logger
}

func DefaultTDConfig() TDConfig {
	return TDConfig{
		Bridge:         lossbridge.KindStatic,
		Alpha:          0.1,
		Discount:       0.95,
		Exploration:    ExploreEpsilonGreedy,
		Epsilon:        0.05,
		Temperature:    1,
		BatchSize:      16,
		BufferSize:     1000,
		UpdateInterval: 4,
	}
}

func (c TDConfig) validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1], got %v", c.Alpha)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1], got %v", c.Discount)
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be > 0")
	}
	if c.BufferSize < c.BatchSize {
		return errors.New("buffer size must be >= batch size")
	}
	if c.UpdateInterval < 1 {
		return errors.New("update interval must be > 0")
	}
	switch c.Exploration {
	case ExploreEpsilonGreedy, ExploreSoftMax:
	default:
		return fmt.Errorf("unknown exploration %q", c.Exploration)
	}
	return nil
}

// TDPolicy is a replay based Q-learning policy. Every UpdateInterval steps it
// samples a batch, obtains the loss for it from its bridge and moves every
// sampled Q-value along its residual.
//
// The bridge is fixed at construction. A static bridge gets its loss set
// right before it is read. A dynamic bridge computes it while being read. A
// no-op bridge freezes the QTable.
type TDPolicy struct {
	config TDConfig

	qTable  *QTable
	visits  *QTable
	buffer  *ReplayBuffer
	calc    *TDLossCalculator
	bridge  lossbridge.Bridge
	explore Exploration
	logger  *zap.Logger

	steps    int
	lastLoss float64
	hasLoss  bool
}

var _ core.Policy = &TDPolicy{}
var _ core.LossReporter = &TDPolicy{}

func NewTDPolicy(config TDConfig) (*TDPolicy, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	qTable := NewQTable()
	calc := NewTDLossCalculator(qTable, config.Discount)
	bridge, err := lossbridge.New(config.Bridge, calc)
	if err != nil {
		return nil, err
	}

	var explore Exploration
	if config.Exploration == ExploreSoftMax {
		explore = NewSoftMax(config.Temperature, seed)
	} else {
		explore = NewEpsilonGreedy(config.Epsilon, seed)
	}

	return &TDPolicy{
		config:  config,
		qTable:  qTable,
		visits:  NewQTable(),
		buffer:  NewReplayBuffer(config.BufferSize, seed+1),
		calc:    calc,
		bridge:  bridge,
		explore: explore,
		logger:  logger.With(zap.String("bridge", string(config.Bridge))),
	}, nil
}

func (t *TDPolicy) QTable() *QTable {
	return t.qTable
}

func (t *TDPolicy) Bridge() lossbridge.Bridge {
	return t.bridge
}

// LastLoss is the loss of the update made by the latest UpdateStep, if it
// made one.
func (t *TDPolicy) LastLoss() (float64, bool) {
	return t.lastLoss, t.hasLoss
}

func (t *TDPolicy) Reset() {
	t.qTable.Clear()
	t.visits.Clear()
	t.buffer.Reset()
	t.steps = 0
	t.hasLoss = false
}

func (t *TDPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (t *TDPolicy) UpdateEpisode(eCtx *core.EpisodeContext) {
	t.logger.Debug("episode done",
		zap.Int("episode", eCtx.Episode),
		zap.Int("states", t.qTable.Size()),
		zap.Int("buffered", t.buffer.Len()),
	)
}

func (t *TDPolicy) PickAction(_ *core.StepContext, state core.State, actions []core.Action) core.Action {
	return t.explore.Choose(t.qTable, state, actions)
}

func (t *TDPolicy) UpdateStep(_ *core.StepContext, state core.State, action core.Action, nextState core.State) error {
	t.hasLoss = false

	transition := core.Transition{
		State:     state,
		Action:    action,
		Reward:    t.reward(state, action, nextState),
		NextState: nextState,
	}
	if t.config.Sarsa {
		transition.UpdatedAction = t.greedy(nextState)
	}
	t.buffer.Add(transition)
	t.steps++

	if t.steps%t.config.UpdateInterval != 0 || t.buffer.Len() < t.config.BatchSize {
		return nil
	}
	return t.update(t.buffer.Sample(t.config.BatchSize, t.config.UpdateInterval))
}

func (t *TDPolicy) update(batch *core.Batch) error {
	if setter, ok := t.bridge.(lossbridge.Setter); ok {
		loss, err := t.calc.CalculateLoss(batch)
		if err != nil {
			t.logger.Error("computing loss", zap.Error(err))
			return fmt.Errorf("computing loss: %w", err)
		}
		setter.Set(loss)
	}

	loss, err := t.bridge.GetLoss(batch)
	if err != nil {
		t.logger.Error("getting loss", zap.Int("step", t.steps), zap.Error(err))
		return fmt.Errorf("getting loss: %w", err)
	}
	t.apply(batch, loss)

	t.lastLoss = loss.Value()
	t.hasLoss = true
	return nil
}

// apply moves every sampled Q-value by alpha times its residual, which is a
// gradient step on the half squared TD error. Scalar losses carry no
// per-sample terms and leave the table untouched.
func (t *TDPolicy) apply(batch *core.Batch, loss *lossbridge.Loss) {
	if loss.IsScalar() || loss.IsZero() {
		return
	}
	if loss.Len() != batch.Len() {
		t.logger.Warn("loss does not match batch", zap.Int("loss", loss.Len()), zap.Int("batch", batch.Len()))
		return
	}
	for i := 0; i < batch.Len(); i++ {
		stateHash := batch.States[i].Hash()
		actionHash := batch.Actions[i].Hash()
		cur := t.qTable.Get(stateHash, actionHash, 0)
		t.qTable.Set(stateHash, actionHash, cur+t.config.Alpha*loss.At(i))
	}
}

func (t *TDPolicy) reward(state core.State, action core.Action, nextState core.State) float64 {
	if t.config.Reward != nil {
		return t.config.Reward(state, action, nextState)
	}
	stateHash := state.Hash()
	actionHash := action.Hash()
	visits := t.visits.Get(stateHash, actionHash, 0) + 1
	t.visits.Set(stateHash, actionHash, visits)
	return 1 / visits
}

func (t *TDPolicy) greedy(state core.State) core.Action {
	actions := state.Actions()
	if len(actions) == 0 {
		return nil
	}
	actionsMap := make(map[string]core.Action)
	available := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		available[i] = aHash
	}
	maxAction, _ := t.qTable.MaxAmong(state.Hash(), available, 0)
	return actionsMap[maxAction]
}

type TDPolicyConstructor struct {
	config TDConfig
}

var _ core.PolicyConstructor = &TDPolicyConstructor{}

// NewTDPolicyConstructor validates config once so that NewPolicy cannot fail
func NewTDPolicyConstructor(config TDConfig) (*TDPolicyConstructor, error) {
	if _, err := NewTDPolicy(config); err != nil {
		return nil, err
	}
	return &TDPolicyConstructor{config: config}, nil
}

func (c *TDPolicyConstructor) NewPolicy() core.Policy {
	p, err := NewTDPolicy(c.config)
	if err != nil {
		panic(err)
	}
	return p
}
