package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testpass/internal/domain"
	"testpass/internal/engine"
	"testpass/internal/storage"
	"testpass/internal/ui"
	"testpass/internal/watch"
)

// ErrTestsFailed is returned by the run command when a single run did not
// pass. It sets the exit status without printing an error.
var ErrTestsFailed = errors.New("tests failed")

// RunCommand handles the run command
type RunCommand struct {
	session *session
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(s *session) *RunCommand {
	return &RunCommand{session: s}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := rc.session.config
	logger := rc.session.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := rc.session.workspace()
	if err != nil {
		return err
	}
	files, err := ws.testFiles(cfg.Flags.Paths)
	if err != nil {
		return err
	}
	if len(files) == 0 && !cfg.Flags.Watch {
		color.Yellow("No tests to execute")
		return nil
	}

	eng, err := rc.session.engine(ws, os.Stdout, func(opts engine.RunOptions) engine.Reporter {
		return ui.NewConsoleReporter(os.Stdout, ui.ConsoleOptions{
			Verbose:     opts.Verbose,
			Quiet:       opts.Quiet,
			Progress:    !cfg.Flags.Watch && !opts.Verbose,
			ProjectPath: ws.root,
		})
	})
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())
	for _, file := range files {
		eng.AddFile(file)
	}

	st, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := engine.RunOptions{Verbose: cfg.Flags.Verbose, Quiet: cfg.Flags.Quiet}
	if cfg.Flags.Watch {
		return rc.watch(ctx, ws, eng, st, opts)
	}

	result, err := rc.run(ctx, eng, st, opts)
	if err != nil {
		return err
	}
	if result.Status != domain.StatusFailed {
		return nil
	}
	if cfg.Flags.OpenFaills {
		output, err := st.Load(ctx)
		if err != nil {
			return err
		}
		if err := ui.NewErrorViewer(st, logger.Named("faills")).View(ctx, output); err != nil {
			return err
		}
	}
	return ErrTestsFailed
}

// run performs one run and stores its result. Stopped runs are not stored.
func (rc *RunCommand) run(ctx context.Context, eng *engine.Engine, st storage.Storage, opts engine.RunOptions) (*domain.RunResult, error) {
	result, err := eng.StartRun(ctx, opts)
	if result == nil || result.Status == domain.StatusStopped {
		return result, err
	}
	if saveErr := st.Save(ctx, result); saveErr != nil {
		rc.session.logger.Warn("failed to save test results", zap.Error(saveErr))
	}
	return result, err
}

// watch runs once and then again after every relevant change until ctx is
// done.
func (rc *RunCommand) watch(ctx context.Context, ws *workspace, eng *engine.Engine, st storage.Storage, opts engine.RunOptions) error {
	logger := rc.session.logger
	w, err := watch.New(watch.Options{
		Root:     ws.root,
		Debounce: rc.session.config.Debounce,
		Skips:    ws.scanner.Skips,
		Logger:   logger.Named("watch"),
	}, eng)
	if err != nil {
		return err
	}
	defer w.Close()

	color.Cyan("Watching %s for changes (Ctrl+C to exit)", ws.root)
	w.Trigger()
	return w.Serve(ctx, func(ctx context.Context) {
		if _, err := rc.run(ctx, eng, st, opts); err != nil {
			logger.Error("run failed", zap.Error(err))
		}
	})
}
