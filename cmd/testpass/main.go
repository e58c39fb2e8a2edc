package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testpass/internal/cli"
	"testpass/internal/cli/commands"
	"testpass/internal/config"
	"testpass/internal/logging"
)

var version = "dev"

func main() {
	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	logger := zap.NewNop()
	cmds := commands.NewCommands(cfg, logger)

	rootCmd := &cobra.Command{
		Use:           "testpass",
		Short:         "Watching test runner for interpreted Go test scripts",
		Long:          `Runs *_tp.go test scripts with an embedded Go interpreter. In watch mode only the scripts affected by a change are reloaded before every rerun.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(flags.Debug)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			logger = l
			cmds.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
