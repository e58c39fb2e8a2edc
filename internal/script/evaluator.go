// Package script loads test scripts: Go source files interpreted at runtime
// that declare groups, tests and hooks through the testpass package.
//
// A script looks like this:
//
//	//go:build testpass
//
//	package main
//
//	import tp "testpass"
//
//	func init() {
//		tp.Group("math", func() {
//			tp.Test("adds", func(t tp.T) { t.Eq(1+1, 2) })
//		})
//	}
package script

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"testpass/internal/domain"
)

// BuildTag keeps scripts out of regular builds of the project.
const BuildTag = "testpass"

// Evaluator runs test scripts in a fresh interpreter per load.
type Evaluator struct {
	host    *Host
	source  *SourceFS
	console io.Writer
	logger  *zap.Logger
}

// NewEvaluator creates an Evaluator resolving local imports through host.
// Script output is written to console.
func NewEvaluator(host *Host, console io.Writer, logger *zap.Logger) *Evaluator {
	if console == nil {
		console = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		host:    host,
		source:  NewSourceFS(host.Root(), host.ModulePath()),
		console: console,
		logger:  logger,
	}
}

// Evaluate declares the tests of file into file.Group.
func (e *Evaluator) Evaluate(ctx context.Context, file *domain.File) error {
	src, err := os.ReadFile(file.Path)
	if err != nil {
		return err
	}

	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file.Path, src, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	lines := locate(fset, parsed)

	declarer := NewDeclarer(file, lines)
	i := interp.New(interp.Options{
		GoPath:               "/",
		BuildTags:            []string{BuildTag},
		Stdout:               e.console,
		Stderr:               e.console,
		SourcecodeFilesystem: e.source,
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("failed to load standard library symbols: %w", err)
	}
	if err := i.Use(declarer.Exports()); err != nil {
		return fmt.Errorf("failed to load testpass symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return err
	}
	if err := declarer.Err(); err != nil {
		return err
	}

	e.logger.Debug("script evaluated",
		zap.String("path", file.Path),
		zap.Int("tests", len(file.Group.Tests())))
	return nil
}
