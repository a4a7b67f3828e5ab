package core

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type counterState int

func (c counterState) Hash() string      { return strconv.Itoa(int(c)) }
func (c counterState) Actions() []Action { return []Action{incAction{}} }

type incAction struct{}

func (incAction) Hash() string { return "inc" }

type counterEnv struct {
	state counterState
	bound int
}

func (e *counterEnv) Reset() (State, error) {
	e.state = 0
	return e.state, nil
}

func (e *counterEnv) Step(_ Action, _ *StepContext) (State, error) {
	e.state++
	if e.bound > 0 && int(e.state) >= e.bound {
		return nil, ErrOutOfBounds
	}
	return e.state, nil
}

type counterEnvConstructor struct{}

func (counterEnvConstructor) NewEnvironment(int) Environment { return &counterEnv{} }

type recordingPolicy struct {
	mtx          sync.Mutex
	updates      int
	episodes     int
	resets       int
	failAt       int
	loss         float64
	reportedLoss bool
}

func (p *recordingPolicy) ResetEpisode(*EpisodeContext) {}

func (p *recordingPolicy) UpdateEpisode(*EpisodeContext) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.episodes++
}

func (p *recordingPolicy) PickAction(_ *StepContext, _ State, actions []Action) Action {
	return actions[0]
}

func (p *recordingPolicy) UpdateStep(sCtx *StepContext, _ State, _ Action, _ State) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.updates++
	if p.failAt > 0 && sCtx.Step+1 >= p.failAt {
		return errors.New("loss requested before it was set")
	}
	p.loss = float64(sCtx.Step)
	p.reportedLoss = sCtx.Step%2 == 1
	return nil
}

func (p *recordingPolicy) LastLoss() (float64, bool) {
	return p.loss, p.reportedLoss
}

func (p *recordingPolicy) Reset() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.resets++
}

type recordingPolicyConstructor struct{}

func (recordingPolicyConstructor) NewPolicy() Policy { return &recordingPolicy{} }

type traceAnalyzer struct {
	steps  int
	losses int
	errs   []error
}

func (a *traceAnalyzer) Analyze(eCtx *EpisodeContext, trace *Trace) {
	for _, s := range trace.Steps() {
		a.steps++
		if _, ok := s.Loss(); ok {
			a.losses++
		}
	}
	if eCtx.Err() != nil {
		a.errs = append(a.errs, eCtx.Err())
	}
}

func (a *traceAnalyzer) DataSet() DataSet { return a.steps }
func (a *traceAnalyzer) Reset()           { *a = traceAnalyzer{} }

func (a *traceAnalyzer) NewAnalyzer(string, int) Analyzer { return &traceAnalyzer{} }

type capturingComparator struct {
	names    []string
	datasets []DataSet
}

func (c *capturingComparator) Compare(names []string, ds []DataSet) {
	c.names = names
	c.datasets = ds
}

func testRunConfig(t *testing.T) *RunConfig {
	return &RunConfig{
		Episodes:                     2,
		Horizon:                      3,
		EpisodeTimeout:               5 * time.Second,
		ThresholdConsecutiveErrors:   2,
		ThresholdConsecutiveTimeouts: 2,
		Logger:                       zaptest.NewLogger(t),
	}
}

func TestNewBatch(t *testing.T) {
	b := NewBatch([]Transition{
		{State: counterState(0), Action: incAction{}, Reward: 1, NextState: counterState(1)},
		{State: counterState(1), Action: incAction{}, Reward: 2, NextState: counterState(2)},
	}, 4)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []float64{1, 2}, b.Rewards)
	assert.Equal(t, counterState(2), b.NextStates[1])
	assert.Nil(t, b.UpdatedActions)
	assert.Equal(t, 4, b.UpdateInterval)

	withUpdated := NewBatch([]Transition{
		{State: counterState(0), Action: incAction{}, UpdatedAction: incAction{}, NextState: counterState(1)},
		{State: counterState(1), Action: incAction{}, NextState: counterState(2)},
	}, 1)
	require.Len(t, withUpdated.UpdatedActions, 2)
	assert.Equal(t, incAction{}, withUpdated.UpdatedActions[0])
	assert.Nil(t, withUpdated.UpdatedActions[1])

	var nilBatch *Batch
	assert.Equal(t, 0, nilBatch.Len())
}

func TestTrace(t *testing.T) {
	tr := NewTrace()
	assert.Nil(t, tr.Last())

	tr.AddStep(&Step{State: counterState(0), Misc: map[string]interface{}{"loss": 0.5}})
	tr.AddStep(&Step{State: counterState(1)})
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, counterState(1), tr.Last().State)

	loss, ok := tr.Step(0).Loss()
	assert.True(t, ok)
	assert.Equal(t, 0.5, loss)
	_, ok = tr.Step(1).Loss()
	assert.False(t, ok)

	steps := tr.Steps()
	steps[0] = nil
	assert.NotNil(t, tr.Step(0))
}

func TestComparisonRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	policy := &recordingPolicy{}
	analyzer := &traceAnalyzer{}
	comparator := &capturingComparator{}

	cmp := NewComparison()
	cmp.AddExperiment(&Experiment{Name: "counter", Environment: &counterEnv{}, Policy: policy})
	cmp.AddAnalysis("trace", analyzer, comparator)

	results := cmp.Run(context.Background(), 1, testRunConfig(t))
	require.Contains(t, results, "counter")
	result := results["counter"]

	assert.NoError(t, result.Error)
	// episodes run until more than (Episodes+1)*Horizon steps were taken
	assert.Equal(t, 4, result.CompletedEpisodes)
	assert.Equal(t, 12, result.TotalTimeSteps)
	assert.Equal(t, 12, policy.updates)
	assert.Equal(t, 4, policy.episodes)
	assert.Equal(t, 2, policy.resets)

	// odd steps report a loss
	assert.Equal(t, 12, analyzer.steps)
	assert.Equal(t, 4, analyzer.losses)

	assert.Equal(t, []string{"counter"}, comparator.names)
	assert.Equal(t, []DataSet{12}, comparator.datasets)
}

func TestComparisonRunStopsOnUpdateErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	policy := &recordingPolicy{failAt: 2}
	analyzer := &traceAnalyzer{}
	comparator := &capturingComparator{}

	cmp := NewComparison()
	cmp.AddExperiment(&Experiment{Name: "failing", Environment: &counterEnv{}, Policy: policy})
	cmp.AddAnalysis("trace", analyzer, comparator)

	results := cmp.Run(context.Background(), 1, testRunConfig(t))
	result := results["failing"]

	assert.ErrorIs(t, result.Error, ErrTooManyErrors)
	assert.Equal(t, 2, result.ErrorEpisodes)
	assert.Equal(t, 0, result.CompletedEpisodes)
	assert.Equal(t, 0, policy.episodes)
	require.Len(t, analyzer.errs, 2)
	assert.Contains(t, analyzer.errs[0].Error(), "update at step 1")
	assert.Equal(t, []DataSet{nil}, comparator.datasets)
}

func TestComparisonRunOutOfBounds(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmp := NewComparison()
	cmp.AddExperiment(&Experiment{Name: "bounded", Environment: &counterEnv{bound: 2}, Policy: &recordingPolicy{}})

	results := cmp.Run(context.Background(), 1, testRunConfig(t))
	result := results["bounded"]

	// every episode stops after a single step without counting as an error
	assert.NoError(t, result.Error)
	assert.Equal(t, 10, result.BoundReachedEpisodes)
	assert.Equal(t, 0, result.ErrorEpisodes)
	assert.Equal(t, 10, result.TotalTimeSteps)
}

// slowEnv stalls the first step of the given episode for longer than the
// episode timeout.
type slowEnv struct {
	counterEnv
	slowEpisode int
	delay       time.Duration
	stepping    atomic.Int32
}

func (e *slowEnv) Step(a Action, sCtx *StepContext) (State, error) {
	e.stepping.Add(1)
	defer e.stepping.Add(-1)
	if sCtx.Episode == e.slowEpisode && sCtx.Step == 0 {
		time.Sleep(e.delay)
	}
	return e.counterEnv.Step(a, sCtx)
}

// episodePolicy counts updates that arrive for an episode other than the one
// most recently started, and episodes started while the environment was
// still stepping.
type episodePolicy struct {
	recordingPolicy
	env *slowEnv

	current     atomic.Int64
	stale       atomic.Int32
	overlapping atomic.Int32
}

func (p *episodePolicy) ResetEpisode(eCtx *EpisodeContext) {
	if p.env.stepping.Load() > 0 {
		p.overlapping.Add(1)
	}
	p.current.Store(int64(eCtx.Episode))
}

func (p *episodePolicy) UpdateStep(sCtx *StepContext, s State, a Action, next State) error {
	if int64(sCtx.Episode) != p.current.Load() {
		p.stale.Add(1)
	}
	return p.recordingPolicy.UpdateStep(sCtx, s, a, next)
}

func TestComparisonRunTimeoutWaitsForEpisode(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := &slowEnv{slowEpisode: 0, delay: 200 * time.Millisecond}
	policy := &episodePolicy{env: env}
	analyzer := &traceAnalyzer{}

	cmp := NewComparison()
	cmp.AddExperiment(&Experiment{Name: "slow", Environment: env, Policy: policy})
	cmp.AddAnalysis("trace", analyzer, &capturingComparator{})

	config := testRunConfig(t)
	config.EpisodeTimeout = 50 * time.Millisecond
	results := cmp.Run(context.Background(), 1, config)
	result := results["slow"]

	assert.NoError(t, result.Error)
	assert.Equal(t, 1, result.TimeoutEpisodes)
	assert.Equal(t, 0, result.ErrorEpisodes)
	assert.Equal(t, 4, result.CompletedEpisodes)
	assert.Equal(t, 5, result.TotalEpisodes)

	assert.Equal(t, int32(0), policy.stale.Load())
	assert.Equal(t, int32(0), policy.overlapping.Load())
	// the timed out episode never reached an update
	assert.Equal(t, 12, policy.updates)
	assert.Equal(t, 4, policy.episodes)
	assert.Empty(t, analyzer.errs)
}

func TestEpisodeContextEndsOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	eCtx := NewEpisodeContext(ctx)
	eCtx.Cancelled()
	eCtx.Error(errors.New("late"))
	eCtx.Finish()

	<-eCtx.Done()
	assert.True(t, eCtx.IsTimeout())
	assert.False(t, eCtx.IsError())

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	eCtx = NewEpisodeContext(cancelled)
	eCtx.Cancelled()
	eCtx.Timeout()
	assert.False(t, eCtx.IsTimeout())
	assert.ErrorIs(t, eCtx.Err(), context.Canceled)
}

func TestParallelComparisonRun(t *testing.T) {
	cmp := NewParallelComparison()
	for _, name := range []string{"a", "b", "c"} {
		cmp.AddExperiment(&ParallelExperiment{
			Name:        name,
			Environment: counterEnvConstructor{},
			Policy:      recordingPolicyConstructor{},
		})
	}
	comparator := &capturingComparator{}
	cmp.AddAnalysis("trace", &traceAnalyzer{}, comparatorConstructor{comparator})

	config := testRunConfig(t)
	config.Writer = io.Discard
	results := cmp.Run(context.Background(), 1, config, 2)
	require.Len(t, results, 3)
	for name, r := range results {
		assert.NoError(t, r.Error, name)
		assert.Equal(t, 4, r.CompletedEpisodes, name)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, comparator.names)
	assert.Equal(t, []DataSet{12, 12, 12}, comparator.datasets)
}

type comparatorConstructor struct {
	c *capturingComparator
}

func (c comparatorConstructor) NewComparator(int) Comparator { return c.c }
