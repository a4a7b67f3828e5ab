package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/lossbridge/benchmarks/common"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lossbridge",
		Short:        "Train tabular agents through interchangeable loss bridges",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			UpdateFlags()
			if err := flags.Record(); err != nil {
				return fmt.Errorf("recording config: %w", err)
			}
			logFile := ""
			if logToFile {
				logFile = flags.LogFile()
			}
			l, err := common.NewLogger(flags.Debug, logFile)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	AddFlags(cmd)

	cmd.AddCommand(
		ChainCommand(),
	)

	return cmd
}
