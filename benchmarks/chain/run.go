package chain

import (
	"fmt"

	"github.com/zeu5/lossbridge/analysis"
	"github.com/zeu5/lossbridge/benchmarks/common"
	"github.com/zeu5/lossbridge/core"
	"github.com/zeu5/lossbridge/lossbridge"
	"github.com/zeu5/lossbridge/policies"
	"go.uber.org/zap"
)

// TDConfig translates the learning flags into a policy config for one bridge
func TDConfig(flags *common.Flags, kind lossbridge.Kind, logger *zap.Logger) policies.TDConfig {
	config := policies.TDConfig{
		Bridge:         kind,
		Alpha:          flags.Alpha,
		Discount:       flags.Discount,
		Exploration:    policies.ExplorationKind(flags.Exploration),
		Epsilon:        flags.Epsilon,
		Temperature:    flags.Temperature,
		BatchSize:      flags.BatchSize,
		BufferSize:     flags.BufferSize,
		UpdateInterval: flags.UpdateInterval,
		Sarsa:          flags.Sarsa,
		Seed:           flags.Seed,
		Logger:         logger,
	}
	if flags.GoalReward {
		config.Reward = GoalReward()
	}
	return config
}

// PrepareComparison sets up one TD experiment per requested bridge kind and
// a random baseline, all on the same chain
func PrepareComparison(flags *common.Flags, logger *zap.Logger) (*core.ParallelComparison, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmp := core.NewParallelComparison()

	envConstructor := NewChainEnvironmentConstructor(ChainConfig{
		Length: flags.Length,
		Slip:   flags.Slip,
		Seed:   flags.Seed,
	})

	cmp.AddAnalysis("Errors", analysis.NewErrorAnalyzerConstructor(flags.SavePath, logger), analysis.NewNoOpComparatorConstructor())
	cmp.AddAnalysis("Coverage", analysis.NewCoverageAnalyzerConstructor(SegmentPainter(flags.Segments)), analysis.NewCoverageComparatorConstructor(flags.SavePath, logger))
	cmp.AddAnalysis("Loss", analysis.NewLossAnalyzerConstructor(), analysis.NewLossComparatorConstructor(flags.SavePath, logger))

	seen := make(map[lossbridge.Kind]bool)
	for _, name := range flags.Bridges {
		kind, err := lossbridge.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true

		expName := fmt.Sprintf("TD-%s", kind)
		pConstructor, err := policies.NewTDPolicyConstructor(TDConfig(flags, kind, logger.With(zap.String("experiment", expName))))
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", expName, err)
		}
		cmp.AddExperiment(&core.ParallelExperiment{
			Name:        expName,
			Environment: envConstructor,
			Policy:      pConstructor,
		})
	}

	cmp.AddExperiment(&core.ParallelExperiment{
		Name:        "Random",
		Environment: envConstructor,
		Policy:      &policies.RandomPolicyConstructor{},
	})

	return cmp, nil
}
