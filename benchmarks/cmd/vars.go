package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/lossbridge/benchmarks/common"
)

var (
	flags      *common.Flags = common.DefaultFlags()
	savePath   string
	debug      bool
	logToFile  bool
	length     int
	slip       float64
	goalReward bool
	segments   int

	numRuns                int
	episodes               int
	horizon                int
	maxConsecutiveErrors   int
	maxConsecutiveTimeouts int
	episodeTimeout         int
	parallelism            int

	bridges        []string
	alpha          float64
	discount       float64
	exploration    string
	epsilon        float64
	temperature    float64
	batchSize      int
	bufferSize     int
	updateInterval int
	sarsa          bool
	seed           uint64
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&savePath, "save-path", flags.SavePath, "Path to save results")
	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Also write json logs under the save path")

	cmd.PersistentFlags().IntVar(&numRuns, "num-runs", flags.NumRuns, "Number of runs")
	cmd.PersistentFlags().IntVar(&episodes, "episodes", flags.Episodes, "Number of episodes")
	cmd.PersistentFlags().IntVar(&horizon, "horizon", flags.Horizon, "Horizon")
	cmd.PersistentFlags().IntVar(&maxConsecutiveErrors, "max-consecutive-errors", flags.MaxConsecutiveErrors, "Maximum number of consecutive errors")
	cmd.PersistentFlags().IntVar(&maxConsecutiveTimeouts, "max-consecutive-timeouts", flags.MaxConsecutiveTimeouts, "Maximum number of consecutive timeouts")
	cmd.PersistentFlags().IntVar(&episodeTimeout, "episode-timeout", int(flags.EpisodeTimeout.Seconds()), "Episode timeout")
	cmd.PersistentFlags().IntVar(&parallelism, "parallelism", flags.Parallelism, "Number of parallel runs")

	cmd.PersistentFlags().StringSliceVar(&bridges, "bridges", flags.Bridges, "Loss bridges to compare (static, dynamic, noop)")
	cmd.PersistentFlags().Float64Var(&alpha, "alpha", flags.Alpha, "Learning rate")
	cmd.PersistentFlags().Float64Var(&discount, "discount", flags.Discount, "Discount factor")
	cmd.PersistentFlags().StringVar(&exploration, "exploration", flags.Exploration, "Exploration strategy (epsilon, softmax)")
	cmd.PersistentFlags().Float64Var(&epsilon, "epsilon", flags.Epsilon, "Exploration probability for epsilon greedy")
	cmd.PersistentFlags().Float64Var(&temperature, "temperature", flags.Temperature, "Softmax temperature")
	cmd.PersistentFlags().IntVar(&batchSize, "batch-size", flags.BatchSize, "Transitions per update")
	cmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", flags.BufferSize, "Replay buffer capacity")
	cmd.PersistentFlags().IntVar(&updateInterval, "update-interval", flags.UpdateInterval, "Steps between updates")
	cmd.PersistentFlags().BoolVar(&sarsa, "sarsa", flags.Sarsa, "Bootstrap from the recorded next action")
	cmd.PersistentFlags().Uint64Var(&seed, "seed", flags.Seed, "Random seed, 0 for time based")
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&length, "length", flags.Length, "Number of positions in the chain")
	cmd.Flags().Float64Var(&slip, "slip", flags.Slip, "Probability of moving the opposite way")
	cmd.Flags().BoolVar(&goalReward, "goal-reward", flags.GoalReward, "Reward reaching the goal instead of novelty")
	cmd.Flags().IntVar(&segments, "segments", flags.Segments, "Coverage segments")
}

func UpdateFlags() {
	flags.SavePath = savePath
	flags.Debug = debug
	flags.Length = length
	flags.Slip = slip
	flags.GoalReward = goalReward
	flags.Segments = segments

	flags.NumRuns = numRuns
	flags.Episodes = episodes
	flags.Horizon = horizon
	flags.MaxConsecutiveErrors = maxConsecutiveErrors
	flags.MaxConsecutiveTimeouts = maxConsecutiveTimeouts
	flags.EpisodeTimeout = time.Duration(episodeTimeout) * time.Second
	flags.Parallelism = parallelism

	flags.Bridges = bridges
	flags.Alpha = alpha
	flags.Discount = discount
	flags.Exploration = exploration
	flags.Epsilon = epsilon
	flags.Temperature = temperature
	flags.BatchSize = batchSize
	flags.BufferSize = bufferSize
	flags.UpdateInterval = updateInterval
	flags.Sarsa = sarsa
	flags.Seed = seed
}
