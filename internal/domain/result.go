package domain

import "time"

// Status is the overall outcome of a run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusEmpty   Status = "empty"
	StatusStopped Status = "stopped"
	StatusErrored Status = "errored"
)

// TestResult represents the outcome of one executed or skipped test
type TestResult struct {
	Test     *Test
	Name     string
	FilePath string
	Line     int
	Passed   bool
	Skipped  bool
	Failures []Failure
	Logs     []string
	Duration time.Duration
}

// FileResult aggregates the tests of one file.
type FileResult struct {
	Path       string
	Header     string
	TestCount  int // executed tests
	PassCount  int
	FailCount  int
	SkipCount  int
	Tests      []*TestResult
	HookErrors []*HookError
}

// Add records a test outcome and updates the counters.
func (f *FileResult) Add(r *TestResult) {
	f.Tests = append(f.Tests, r)
	switch {
	case r.Skipped:
		f.SkipCount++
	case r.Passed:
		f.TestCount++
		f.PassCount++
	default:
		f.TestCount++
		f.FailCount++
	}
}

// Failed returns the failed tests of the file.
func (f *FileResult) Failed() []*TestResult {
	var failed []*TestResult
	for _, r := range f.Tests {
		if !r.Passed && !r.Skipped {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunResult is the aggregate result of one run.
type RunResult struct {
	ID           string
	Files        []*FileResult
	TestCount    int
	PassCount    int
	FailCount    int
	SkipCount    int
	Status       Status
	StartedAt    time.Time
	Duration     time.Duration
	ReloadErrors []error
}

// Tally sums the per-file counters. Stopped and errored runs keep their status.
func (r *RunResult) Tally() {
	r.TestCount, r.PassCount, r.FailCount, r.SkipCount = 0, 0, 0, 0
	hookErrors := 0
	for _, f := range r.Files {
		r.TestCount += f.TestCount
		r.PassCount += f.PassCount
		r.FailCount += f.FailCount
		r.SkipCount += f.SkipCount
		hookErrors += len(f.HookErrors)
	}
	if r.Status == StatusStopped || r.Status == StatusErrored {
		return
	}
	switch {
	case r.FailCount > 0 || hookErrors > 0 || len(r.ReloadErrors) > 0:
		r.Status = StatusFailed
	case r.TestCount == 0:
		r.Status = StatusEmpty
	default:
		r.Status = StatusPassed
	}
}

// Failed returns every failed test of the run in execution order.
func (r *RunResult) Failed() []*TestResult {
	var failed []*TestResult
	for _, f := range r.Files {
		failed = append(failed, f.Failed()...)
	}
	return failed
}

// HookErrors returns every hook error of the run.
func (r *RunResult) HookErrors() []*HookError {
	var errs []*HookError
	for _, f := range r.Files {
		errs = append(errs, f.HookErrors...)
	}
	return errs
}

// TestResultsMeta contains metadata about a test run
type TestResultsMeta struct {
	RunID           string  `json:"run_id"`
	Status          Status  `json:"status"`
	TotalTestFiles  int     `json:"total_test_files"`
	TotalTests      int     `json:"total_tests"`
	PassedTests     int     `json:"passed_tests"`
	FailedTests     int     `json:"failed_tests"`
	SkippedTests    int     `json:"skipped_tests"`
	HookErrors      int     `json:"hook_errors"`
	ReloadErrors    int     `json:"reload_errors"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamp       string  `json:"timestamp"`
}

// TestResultsOutput is the complete output structure for test results
type TestResultsOutput struct {
	Meta    TestResultsMeta `json:"meta"`
	Details []TestFailure   `json:"details"`
}
