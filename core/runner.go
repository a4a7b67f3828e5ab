package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gosuri/uilive"
	"go.uber.org/zap"
)

var (
	ErrTooManyTimeouts = errors.New("too many timeouts")
	ErrTooManyErrors   = errors.New("too many errors")
)

// LossReporter is implemented by policies that expose the loss of their
// latest update. The runner stores it in the step's Misc under "loss".
type LossReporter interface {
	LastLoss() (float64, bool)
}

type experimentRunContext struct {
	run       int
	ctx       context.Context
	analyzers map[string]Analyzer

	writer io.Writer
	logger *zap.Logger

	*RunConfig
}

type ExperimentResult struct {
	CompletedEpisodes    int
	TotalEpisodes        int
	ErrorEpisodes        int
	TimeoutEpisodes      int
	TotalTimeSteps       int
	BoundReachedEpisodes int

	Error    error
	Datasets map[string]DataSet
}

func (r *ExperimentResult) IsError() bool {
	return r.Error != nil
}

// runEpisode plays one episode on the calling goroutine and closes exited when
// it returns. It never touches the policy once the episode context is done.
func (e *Experiment) runEpisode(ctx *experimentRunContext, eCtx *EpisodeContext, exited chan<- struct{}) {
	defer close(exited)
	state, err := e.Environment.Reset()
	if err != nil {
		eCtx.Error(err)
		return
	}
	reporter, reportsLoss := e.Policy.(LossReporter)
	for step := 0; step < ctx.Horizon; step++ {
		select {
		case <-eCtx.Context.Done():
			eCtx.Cancelled()
			return
		default:
		}

		sCtx := &StepContext{Step: step, EpisodeContext: eCtx}
		action := e.Policy.PickAction(
			sCtx,
			state,
			state.Actions(),
		)
		nextState, err := e.Environment.Step(action, sCtx)
		if err != nil {
			eCtx.Error(err)
			return
		}
		select {
		case <-eCtx.Context.Done():
			eCtx.Cancelled()
			return
		default:
		}
		if err := e.Policy.UpdateStep(sCtx, state, action, nextState); err != nil {
			eCtx.Error(fmt.Errorf("update at step %d: %w", step, err))
			return
		}
		s := &Step{
			State:     state,
			Action:    action,
			NextState: nextState,
			Misc:      make(map[string]interface{}),
		}
		if reportsLoss {
			if loss, ok := reporter.LastLoss(); ok {
				s.Misc["loss"] = loss
			}
		}
		eCtx.Trace.AddStep(s)
		state = nextState
	}
	e.Policy.UpdateEpisode(eCtx)
	eCtx.Finish()
}

func (e *Experiment) run(ctx *experimentRunContext) *ExperimentResult {
	result := &ExperimentResult{
		Datasets: make(map[string]DataSet),
	}
	if ctx.writer == nil {
		ctx.writer = io.Discard
	}
	logger := ctx.logger.With(zap.String("experiment", e.Name), zap.Int("run", ctx.run))
	e.Policy.Reset()

	consecutiveErrors := 0
	consecutiveTimeouts := 0
	totalTimeSteps := (ctx.Episodes + 1) * ctx.Horizon
EpisodeLoop:
	for episode := 0; result.TotalTimeSteps <= totalTimeSteps; episode++ {
		select {
		case <-ctx.ctx.Done():
			result.Error = errors.New("context cancelled")
			break EpisodeLoop
		default:
		}

		fmt.Fprintf(
			ctx.writer,
			"Experiment: %s, Run %d, Timesteps: %d/%d, Episode %d, Error: %d, Timedout: %d, OurOfBounds: %d\n",
			e.Name, ctx.run, result.TotalTimeSteps, totalTimeSteps, episode, result.ErrorEpisodes, result.TimeoutEpisodes, result.BoundReachedEpisodes,
		)
		timeoutCtx, timeoutCancel := context.WithTimeout(ctx.ctx, ctx.EpisodeTimeout)
		eCtx := NewEpisodeContext(timeoutCtx)
		eCtx.Run = ctx.run
		eCtx.Episode = episode
		eCtx.Horizon = ctx.Horizon
		eCtx.StartTimeStep = result.TotalTimeSteps

		e.Policy.ResetEpisode(eCtx)
		exited := make(chan struct{})
		go e.runEpisode(ctx, eCtx, exited)

		select {
		case <-eCtx.Done():
		case <-timeoutCtx.Done():
			eCtx.Cancelled()
		}
		// The policy and its loss bridge are used by one episode at a time, so
		// the next episode only starts once this goroutine is gone.
		<-exited
		timeoutCancel()

		errorred := false
		timedout := false
		switch {
		case eCtx.IsTimeout():
			timedout = true
			logger.Debug("episode timed out", zap.Int("episode", episode))
		case errors.Is(eCtx.Err(), ErrOutOfBounds):
			result.BoundReachedEpisodes++
		case eCtx.IsError():
			errorred = true
			logger.Warn("episode failed", zap.Int("episode", episode), zap.Error(eCtx.Err()))
		}

		if errorred {
			result.ErrorEpisodes++
			if consecutiveErrors++; consecutiveErrors >= ctx.ThresholdConsecutiveErrors {
				result.Error = ErrTooManyErrors
				break EpisodeLoop
			}
		} else {
			consecutiveErrors = 0
		}
		if timedout {
			result.TimeoutEpisodes++
			if consecutiveTimeouts++; consecutiveTimeouts >= ctx.ThresholdConsecutiveTimeouts {
				result.Error = ErrTooManyTimeouts
				break EpisodeLoop
			}
		} else {
			consecutiveTimeouts = 0
		}

		if !errorred && !timedout {
			result.TotalTimeSteps += eCtx.Trace.Len()
			result.CompletedEpisodes++
		}
		result.TotalEpisodes++

		if !timedout {
			for _, a := range ctx.analyzers {
				a.Analyze(eCtx, eCtx.Trace)
			}
		}
	}
	if result.Error != nil {
		fmt.Fprintf(ctx.writer, "Experiment: %s, Run %d, Error: %v\n", e.Name, ctx.run, result.Error)
		logger.Error("experiment stopped", zap.Error(result.Error))
	}

	for name, a := range ctx.analyzers {
		result.Datasets[name] = a.DataSet()
	}

	e.Policy.Reset()
	return result
}

func (c *Comparison) Run(ctx context.Context, runs int, rConfig *RunConfig) map[string]*ExperimentResult {
	var results map[string]*ExperimentResult
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		results = make(map[string]*ExperimentResult)

		// Run experiments
		for _, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			ctx := &experimentRunContext{
				run:       run,
				ctx:       ctx,
				analyzers: make(map[string]Analyzer),
				writer:    rConfig.Writer,
				logger:    rConfig.logger(),
				RunConfig: rConfig,
			}

			for name, a := range c.Analyzers {
				a.Reset()
				ctx.analyzers[name] = a
			}

			results[e.Name] = e.run(ctx)
		}

		experimentNames, datasets := gatherDatasets(c.analyzerNames(), results)
		for name, c := range c.Comparators {
			c.Compare(experimentNames, datasets[name])
		}
	}
	return results
}

func (c *Comparison) analyzerNames() []string {
	names := make([]string, 0, len(c.Analyzers))
	for name := range c.Analyzers {
		names = append(names, name)
	}
	return names
}

// gatherDatasets groups the datasets of every analyzer by experiment. Failed
// experiments contribute a nil dataset.
func gatherDatasets(analyzerNames []string, results map[string]*ExperimentResult) ([]string, map[string][]DataSet) {
	datasets := make(map[string][]DataSet)
	experimentNames := make([]string, 0, len(results))
	for name, result := range results {
		experimentNames = append(experimentNames, name)
		for _, name := range analyzerNames {
			if result.IsError() {
				datasets[name] = append(datasets[name], nil)
			} else {
				datasets[name] = append(datasets[name], result.Datasets[name])
			}
		}
	}
	return experimentNames, datasets
}

// parallelWorker is a worker that runs experiments
type parallelWorker struct {
	id int
}

// parallelWork is a struct that contains all the information needed to run an experiment
type parallelWork struct {
	ctx        context.Context
	experiment *ParallelExperiment
	comp       *ParallelComparison
	runNumber  int
	writer     io.Writer
	rConfig    *RunConfig
	wg         *sync.WaitGroup
}

// parallelResult is a struct that contains the result of running an experiment
type parallelResult struct {
	experimentName string
	run            int
	result         *ExperimentResult
}

// Worker main loop that consumes work from a channel until it is closed.
// Cancellation is observed by the experiments themselves.
func (w *parallelWorker) run(workCh <-chan *parallelWork, resultsCh chan<- *parallelResult) {
	for work := range workCh {
		resultsCh <- w.runWork(work.ctx, work)
		work.wg.Done()
	}
}

// Run an experiment by constructing the experiment context, *Experiment.
// Every experiment gets its own policy and therefore its own loss bridge.
func (w *parallelWorker) runWork(ctx context.Context, work *parallelWork) *parallelResult {
	eCtx := &experimentRunContext{
		run:       work.runNumber,
		ctx:       ctx,
		analyzers: make(map[string]Analyzer),
		writer:    work.writer,
		logger:    work.rConfig.logger().With(zap.Int("worker", w.id)),
		RunConfig: work.rConfig,
	}

	for name, aC := range work.comp.Analyzers {
		eCtx.analyzers[name] = aC.NewAnalyzer(work.experiment.Name, work.runNumber)
	}

	// Construct the experiment
	exp := &Experiment{
		Name:        work.experiment.Name,
		Environment: work.experiment.Environment.NewEnvironment(w.id),
		Policy:      work.experiment.Policy.NewPolicy(),
	}

	// Run the experiment
	result := exp.run(eCtx)

	return &parallelResult{
		experimentName: work.experiment.Name,
		run:            work.runNumber,
		result:         result,
	}
}

func (c *ParallelComparison) Run(ctx context.Context, runs int, rConfig *RunConfig, parallelism int) map[string]*ExperimentResult {
	var results map[string]*ExperimentResult
	if parallelism < 1 {
		parallelism = 1
	}
	for run := 0; run < runs; run++ {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		// Create workers and channels
		wg := new(sync.WaitGroup)
		writer := uilive.New()
		if rConfig.Writer != nil {
			writer.Out = rConfig.Writer
		}
		writer.Start()
		fmt.Fprintf(writer, "Run %d\n", run)

		workCh := make(chan *parallelWork, parallelism)
		resultsCh := make(chan *parallelResult, len(c.Experiments))

		// Start workers
		workers := make([]*parallelWorker, parallelism)
		for i := 0; i < parallelism; i++ {
			workers[i] = &parallelWorker{id: i}
			go workers[i].run(workCh, resultsCh)
		}

		// Run experiments by sending work to workers
		cancelled := false
	SendLoop:
		for _, e := range c.Experiments {
			wg.Add(1)
			select {
			case <-ctx.Done():
				wg.Done()
				cancelled = true
				break SendLoop
			case workCh <- &parallelWork{
				ctx:        ctx,
				experiment: e,
				comp:       c,
				runNumber:  run,
				rConfig:    rConfig,
				wg:         wg,
				writer:     writer.Newline(),
			}:
			}
		}
		close(workCh)

		// Wait for all work to finish
		wg.Wait()
		writer.Stop()
		close(resultsCh)

		results = make(map[string]*ExperimentResult)
		for r := range resultsCh {
			results[r.experimentName] = r.result
		}
		if cancelled {
			return results
		}

		experimentNames, datasets := gatherDatasets(c.analyzerNames(), results)
		for name, c := range c.Comparators {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			c.NewComparator(run).Compare(experimentNames, datasets[name])
		}
	}
	return results
}

func (c *ParallelComparison) analyzerNames() []string {
	names := make([]string, 0, len(c.Analyzers))
	for name := range c.Analyzers {
		names = append(names, name)
	}
	return names
}
