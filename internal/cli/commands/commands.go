package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testpass/internal/cli"
	"testpass/internal/config"
)

// Commands holds all CLI commands
type Commands struct {
	Run    *RunCommand
	List   *ListCommand
	Faills *FaillsCommand

	session *session
}

// NewCommands creates all commands with dependencies. Components that depend
// on the final configuration are built when a command executes.
func NewCommands(cfg *config.Config, logger *zap.Logger) *Commands {
	s := &session{config: cfg, logger: logger}
	return &Commands{
		Run:     NewRunCommand(s),
		List:    NewListCommand(s),
		Faills:  NewFaillsCommand(s),
		session: s,
	}
}

// SetLogger replaces the logger handed to components. The root command calls
// it once the --debug flag is known.
func (c *Commands) SetLogger(logger *zap.Logger) {
	c.session.logger = logger
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	applyFlags := func(cmd *cobra.Command, args []string) error {
		// Update config with flags after parsing
		return cfg.Apply(flags.ToConfigFlags(args))
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ProjectPath, "project", "p", "", "Project root containing go.mod (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")

	// Run command
	runCmd := &cobra.Command{
		Use:     "run [paths...]",
		Short:   "Run test scripts",
		Long:    "Discover and run interpreted Go test scripts, optionally rerunning them whenever files change",
		RunE:    c.Run.Execute,
		PreRunE: applyFlags,
	}
	runCmd.Flags().BoolVarP(&flags.Watch, "watch", "w", false, "Watch for changes and rerun affected tests")
	runCmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Print passing and skipped tests")
	runCmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Print only the final summary")
	runCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter test files by name pattern (supports wildcards, e.g., '*user_tp.go' or '*payment*')")
	runCmd.Flags().StringVar(&flags.Pattern, "pattern", "", "Glob matching test scripts below the test path (default \""+config.DefaultPattern+"\")")
	runCmd.Flags().BoolVar(&flags.OpenFaills, "open-faills", false, "Open the faills viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered tests",
		Long:    "Scan and list test scripts without running them",
		RunE:    c.List.Execute,
		PreRunE: applyFlags,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter test files by name pattern (supports wildcards, e.g., '*user_tp.go' or '*payment*')")
	listCmd.Flags().StringVarP(&flags.TestPath, "test-path", "t", "", "Path to the folder where test detection should start")
	listCmd.Flags().StringVar(&flags.Pattern, "pattern", "", "Glob matching test scripts below the test path")
	listCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "c", false, "Load the scripts and list their declared groups and tests")
	rootCmd.AddCommand(listCmd)

	// Faills command
	faillsCmd := &cobra.Command{
		Use:     "faills",
		Short:   "View test failures interactively",
		Long:    "Display test failures from the last test run in an interactive viewer",
		RunE:    c.Faills.Execute,
		PreRunE: applyFlags,
	}
	rootCmd.AddCommand(faillsCmd)
}
