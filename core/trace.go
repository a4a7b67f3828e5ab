package core

import "sync"

type Step struct {
	State     State
	Action    Action
	NextState State

	Misc map[string]interface{}
}

// Loss returns the loss recorded for the update made at this step, if any.
func (s *Step) Loss() (float64, bool) {
	if s.Misc == nil {
		return 0, false
	}
	l, ok := s.Misc["loss"].(float64)
	return l, ok
}

// Trace is the sequence of steps of one episode. It is written by the episode
// goroutine and read by analyzers.
type Trace struct {
	mtx   *sync.Mutex
	steps []*Step
}

func NewTrace() *Trace {
	return &Trace{
		steps: make([]*Step, 0),
		mtx:   &sync.Mutex{},
	}
}

func (t *Trace) AddStep(s *Step) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.steps = append(t.steps, s)
}

func (t *Trace) Step(i int) *Step {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.steps[i]
}

func (t *Trace) Steps() []*Step {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	out := make([]*Step, len(t.steps))
	copy(out, t.steps)
	return out
}

func (t *Trace) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.steps)
}

func (t *Trace) Last() *Step {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if len(t.steps) == 0 {
		return nil
	}
	return t.steps[len(t.steps)-1]
}
