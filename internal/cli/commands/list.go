package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testpass/internal/domain"
	"testpass/internal/storage"
	"testpass/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	session *session
	out     io.Writer
}

// NewListCommand creates a new ListCommand
func NewListCommand(s *session) *ListCommand {
	return &ListCommand{session: s, out: os.Stdout}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := lc.session.config
	ws, err := lc.session.workspace()
	if err != nil {
		return err
	}
	paths, err := ws.testFiles(cfg.Flags.Paths)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	files, err := lc.files(cmd.Context(), ws, paths)
	if err != nil {
		return err
	}

	formatter := ui.NewFormatter(cfg, lc.out)
	formatter.PrintTestList(files, cfg.Flags.TestCases, lc.failedPaths(cmd.Context(), formatter))
	return nil
}

// files returns the registered test files. With test cases requested the
// scripts are loaded so their declarations can be listed.
func (lc *ListCommand) files(ctx context.Context, ws *workspace, paths []string) ([]*domain.File, error) {
	if !lc.session.config.Flags.TestCases {
		files := make([]*domain.File, 0, len(paths))
		for _, path := range paths {
			files = append(files, domain.NewFile(path))
		}
		return files, nil
	}

	eng, err := lc.session.engine(ws, io.Discard, nil)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		eng.AddFile(path)
	}
	loadErrs, err := eng.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, loadErr := range loadErrs {
		lc.session.logger.Debug("failed to load test file", zap.String("path", loadErr.Path), zap.Error(loadErr.Err))
	}
	return eng.Registry().Files(), nil
}

// failedPaths returns the files with unresolved failures in the last stored
// run, or nothing when no run was stored.
func (lc *ListCommand) failedPaths(ctx context.Context, formatter *ui.Formatter) map[string]struct{} {
	st, err := storage.New(ctx, lc.session.config)
	if err != nil {
		lc.session.logger.Debug("results storage unavailable", zap.Error(err))
		return nil
	}
	defer st.Close()

	output, err := st.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoResults) {
			lc.session.logger.Warn("failed to load stored results", zap.Error(err))
		}
		return nil
	}
	return formatter.FailedPaths(output)
}
