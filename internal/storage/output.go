package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"testpass/internal/domain"
	"testpass/internal/engine"
)

// NewOutput converts a run result into its stored form. Failed tests, hook
// errors and load failures all become failure details.
func NewOutput(result *domain.RunResult) *domain.TestResultsOutput {
	runID := result.ID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := result.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	hookErrors := result.HookErrors()
	output := &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			RunID:           runID,
			Status:          result.Status,
			TotalTestFiles:  len(result.Files),
			TotalTests:      result.TestCount,
			PassedTests:     result.PassCount,
			FailedTests:     result.FailCount,
			SkippedTests:    result.SkipCount,
			HookErrors:      len(hookErrors),
			ReloadErrors:    len(result.ReloadErrors),
			Duration:        result.Duration.String(),
			DurationSeconds: result.Duration.Seconds(),
			Timestamp:       started.Format(time.RFC3339),
		},
		Details: []domain.TestFailure{},
	}

	for _, test := range result.Failed() {
		failure := domain.TestFailure{
			TestName: test.Name,
			FilePath: test.FilePath,
			Line:     test.Line,
			Logs:     test.Logs,
		}
		for _, f := range test.Failures {
			failure.Errors = append(failure.Errors, f.String())
		}
		if len(failure.Errors) > 0 {
			failure.Message = failure.Errors[0]
		}
		output.Details = append(output.Details, failure)
	}

	for _, hookErr := range hookErrors {
		output.Details = append(output.Details, domain.TestFailure{
			TestName: strings.TrimSpace(hookErr.Group + " " + hookErr.Kind.String()),
			FilePath: hookErr.File,
			Message:  hookErr.Error(),
			Errors:   []string{hookErr.Err.Error()},
		})
	}

	for _, err := range result.ReloadErrors {
		failure := domain.TestFailure{
			TestName: "load",
			Message:  err.Error(),
			Errors:   []string{err.Error()},
		}
		var reloadErr *engine.ReloadError
		if errors.As(err, &reloadErr) {
			failure.FilePath = reloadErr.Path
			failure.Errors = []string{reloadErr.Err.Error()}
		}
		output.Details = append(output.Details, failure)
	}
	return output
}
