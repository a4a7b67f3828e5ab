package policies

import (
	"github.com/zeu5/lossbridge/core"
	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// ReplayBuffer keeps the most recent transitions up to its capacity
type ReplayBuffer struct {
	capacity    int
	transitions []core.Transition
	next        int

	rand erand.Source
}

func NewReplayBuffer(capacity int, seed uint64) *ReplayBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayBuffer{
		capacity:    capacity,
		transitions: make([]core.Transition, 0, capacity),
		rand:        erand.NewSource(seed),
	}
}

// Add stores t, evicting the oldest transition once the buffer is full
func (r *ReplayBuffer) Add(t core.Transition) {
	if len(r.transitions) < r.capacity {
		r.transitions = append(r.transitions, t)
		return
	}
	r.transitions[r.next] = t
	r.next = (r.next + 1) % r.capacity
}

func (r *ReplayBuffer) Len() int {
	return len(r.transitions)
}

func (r *ReplayBuffer) Reset() {
	r.transitions = r.transitions[:0]
	r.next = 0
}

// Sample draws up to n distinct transitions uniformly at random
func (r *ReplayBuffer) Sample(n, updateInterval int) *core.Batch {
	if n > len(r.transitions) {
		n = len(r.transitions)
	}
	idxs := make([]int, n)
	sampleuv.WithoutReplacement(idxs, len(r.transitions), r.rand)

	sampled := make([]core.Transition, n)
	for i, idx := range idxs {
		sampled[i] = r.transitions[idx]
	}
	return core.NewBatch(sampled, updateInterval)
}
