package common

import (
	"path"
	"time"

	"github.com/zeu5/lossbridge/util"
)

type Flags struct {
	ChainFlags
	SavePath string
	RunFlags
	LearnFlags
	Parallelism int
	Debug       bool
}

type ChainFlags struct {
	Length     int
	Slip       float64
	GoalReward bool
	Segments   int
}

type RunFlags struct {
	NumRuns                int
	Episodes               int
	Horizon                int
	MaxConsecutiveErrors   int
	MaxConsecutiveTimeouts int
	EpisodeTimeout         time.Duration
}

type LearnFlags struct {
	// Bridges lists the loss bridge kinds to compare, one experiment each
	Bridges        []string
	Alpha          float64
	Discount       float64
	Exploration    string
	Epsilon        float64
	Temperature    float64
	BatchSize      int
	BufferSize     int
	UpdateInterval int
	Sarsa          bool
	Seed           uint64
}

func DefaultFlags() *Flags {
	return &Flags{
		ChainFlags: ChainFlags{
			Length:     10,
			Slip:       0.1,
			GoalReward: false,
			Segments:   5,
		},
		SavePath: "results",
		RunFlags: RunFlags{
			NumRuns:                1,
			Episodes:               1000,
			Horizon:                25,
			MaxConsecutiveErrors:   20,
			MaxConsecutiveTimeouts: 20,
			EpisodeTimeout:         10 * time.Second,
		},
		LearnFlags: LearnFlags{
			Bridges:        []string{"static", "dynamic", "noop"},
			Alpha:          0.1,
			Discount:       0.95,
			Exploration:    "epsilon",
			Epsilon:        0.05,
			Temperature:    1,
			BatchSize:      16,
			BufferSize:     1000,
			UpdateInterval: 4,
		},
		Parallelism: 4,
		Debug:       false,
	}
}

// Record saves the flags next to the results
func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SavePath, "config.json"), f)
}
