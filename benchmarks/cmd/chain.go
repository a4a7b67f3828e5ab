package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/zeu5/lossbridge/benchmarks/chain"
	"github.com/zeu5/lossbridge/core"
	"go.uber.org/zap"
)

func ChainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Compare loss bridges on the chain walk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, err := chain.PrepareComparison(flags, logger)
			if err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os
			defer signal.Stop(sigCh)

			doneCh := make(chan struct{}) // channel for done signal from application

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				select {
				case <-sigCh:
				case <-doneCh:
				}
				cancel()
			}()
			results := cmp.Run(ctx, flags.NumRuns, &core.RunConfig{
				Episodes:                     flags.Episodes,
				Horizon:                      flags.Horizon,
				ThresholdConsecutiveErrors:   flags.MaxConsecutiveErrors,
				ThresholdConsecutiveTimeouts: flags.MaxConsecutiveTimeouts,
				EpisodeTimeout:               flags.EpisodeTimeout,
				Logger:                       logger,
			}, flags.Parallelism)
			close(doneCh)

			for name, result := range results {
				logger.Info("experiment finished",
					zap.String("experiment", name),
					zap.Int("episodes", result.CompletedEpisodes),
					zap.Int("errors", result.ErrorEpisodes),
					zap.Int("timeouts", result.TimeoutEpisodes),
					zap.Error(result.Error),
				)
			}
			return nil
		},
	}
	addChainFlags(cmd)

	return cmd
}
