package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"testpass/internal/config"
	"testpass/internal/discovery"
	"testpass/internal/engine"
	"testpass/internal/execution"
	"testpass/internal/script"
)

// session builds the components shared by the commands from the final
// configuration.
type session struct {
	config *config.Config
	logger *zap.Logger
}

// workspace is the resolved set of components of one command execution.
type workspace struct {
	root     string
	testRoot string
	scanner  *discovery.Scanner
	filter   *discovery.Filter
}

func (s *session) workspace() (*workspace, error) {
	root, err := filepath.Abs(s.config.ProjectPath)
	if err != nil {
		return nil, fmt.Errorf("invalid project path: %w", err)
	}
	testRoot, err := filepath.Abs(s.config.GetTestPath())
	if err != nil {
		return nil, fmt.Errorf("invalid test path: %w", err)
	}
	scanner, err := discovery.NewScanner(s.config.PathsToIgnore, s.config.Pattern)
	if err != nil {
		return nil, err
	}
	return &workspace{
		root:     root,
		testRoot: testRoot,
		scanner:  scanner,
		filter:   discovery.NewFilter(s.config.Flags.NameFilter),
	}, nil
}

// isTestPath reports whether path is a test script selected by the pattern
// and the name filter.
func (w *workspace) isTestPath(path string) bool {
	return w.scanner.Match(w.testRoot, path) && w.filter.Match(path)
}

// isScriptPath reports whether path matches the test pattern, relative to
// the test root or the project root.
func (w *workspace) isScriptPath(path string) bool {
	return w.scanner.Match(w.testRoot, path) || w.scanner.Match(w.root, path)
}

// testFiles returns the explicit paths when any are given and the scanned
// test scripts otherwise.
func (w *workspace) testFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		files, err := w.scanner.Scan(w.testRoot)
		if err != nil {
			return nil, err
		}
		return w.filter.FilterByName(files), nil
	}

	files := make([]string, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid test file %s: %w", path, err)
		}
		files = append(files, abs)
	}
	return files, nil
}

// engine creates a test session engine for the project. Script output goes
// to out unless a test captures it.
func (s *session) engine(w *workspace, out io.Writer, reporter func(engine.RunOptions) engine.Reporter) (*engine.Engine, error) {
	host, err := script.NewHost(w.root, script.WithScripts(w.isScriptPath))
	if err != nil {
		return nil, err
	}
	console := execution.NewConsole(out)
	return engine.New(engine.Options{
		Host:       host,
		Evaluator:  script.NewEvaluator(host, console, s.logger.Named("script")),
		IsTestPath: w.isTestPath,
		Reporter:   reporter,
		Console:    console,
		Logger:     s.logger.Named("engine"),
	}), nil
}
