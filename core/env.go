package core

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrOutOfBounds ends an episode early without counting it as an error.
	ErrOutOfBounds = errors.New("state out of bounds")
)

// Environment is stepped by one episode goroutine at a time. The runner waits
// for an in-flight Step to return before it starts the next episode, even when
// the episode has timed out.
type Environment interface {
	Reset() (State, error)
	Step(Action, *StepContext) (State, error)
}

type State interface {
	Hash() string
	Actions() []Action
}

type Action interface {
	Hash() string
}

type EpisodeContext struct {
	Context       context.Context
	Episode       int
	Horizon       int
	Run           int
	StartTimeStep int

	Trace *Trace

	mtx     sync.Mutex
	done    bool
	err     error
	timeout bool
	doneCh  chan struct{}
}

func NewEpisodeContext(ctx context.Context) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		Trace:   NewTrace(),
		doneCh:  make(chan struct{}),
	}
}

// end records how the episode ended. Only the first call has an effect.
func (e *EpisodeContext) end(err error, timeout bool) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.done {
		return
	}
	e.done = true
	e.err = err
	e.timeout = timeout
	close(e.doneCh)
}

func (e *EpisodeContext) Error(err error) {
	e.end(err, false)
}

func (e *EpisodeContext) Timeout() {
	e.end(nil, true)
}

func (e *EpisodeContext) Finish() {
	e.end(nil, false)
}

// Cancelled ends the episode after its context is done: a passed deadline is
// a timeout, anything else an error.
func (e *EpisodeContext) Cancelled() {
	if errors.Is(e.Context.Err(), context.DeadlineExceeded) {
		e.Timeout()
		return
	}
	e.Error(e.Context.Err())
}

func (e *EpisodeContext) IsError() bool {
	return e.Err() != nil
}

func (e *EpisodeContext) Err() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.err
}

func (e *EpisodeContext) IsTimeout() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.timeout
}

func (e *EpisodeContext) Done() <-chan struct{} {
	return e.doneCh
}

type StepContext struct {
	Step int
	*EpisodeContext
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment with the given instance number.
	NewEnvironment(int) Environment
}
