package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/pkg/config"
	"github.com/noah-isme/semester-scheduler/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "scheduler-cli",
		Short:         "Run the semester scheduler offline against a YAML fixture",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			l, err := logger.New(&config.Config{
				Env: config.EnvDevelopment,
				Log: config.LogConfig{Level: "debug", Format: "console"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.logger = l
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log search progress to stderr")

	cmd.AddCommand(newSolveCmd(opts), newCheckCmd(opts), newTokenCmd())
	return cmd
}
