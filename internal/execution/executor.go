package execution

import (
	"context"

	"testpass/internal/domain"
)

// Executor runs a snapshot of the test tree once.
type Executor interface {
	Start(ctx context.Context)
	Wait() (*domain.RunResult, error)
	Stop()
	Done() <-chan struct{}
}

// Reporter receives the events of a run in execution order.
type Reporter interface {
	RunStarted(files int)
	FileStarted(file *domain.File)
	TestFinished(result *domain.TestResult)
	HookFailed(err *domain.HookError)
	FileFinished(result *domain.FileResult)
	RunFinished(result *domain.RunResult)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) RunStarted(int)                  {}
func (NopReporter) FileStarted(*domain.File)        {}
func (NopReporter) TestFinished(*domain.TestResult) {}
func (NopReporter) HookFailed(*domain.HookError)    {}
func (NopReporter) FileFinished(*domain.FileResult) {}
func (NopReporter) RunFinished(*domain.RunResult)   {}
