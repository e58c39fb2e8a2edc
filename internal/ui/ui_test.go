package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpass/internal/config"
	"testpass/internal/domain"
	"testpass/internal/engine"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestConsoleReporter(t *testing.T) {
	tests := []struct {
		name     string
		opts     ConsoleOptions
		contains []string
		excludes []string
	}{
		{
			name: "default",
			contains: []string{
				"Fail: math divides (math_tp.go:7)",
				"    Expected 1 to be 2",
				"    Output:",
				"      dividing",
				"Error: afterAll hook of math failed: cleanup",
				"1 / 2 tests passed, 1 skipped",
				"\nmath\n",
			},
			excludes: []string{"Pass:", "Skip:"},
		},
		{
			name:     "verbose",
			opts:     ConsoleOptions{Verbose: true},
			contains: []string{"Pass: math adds", "Skip: math later", "Fail: math divides"},
		},
		{
			name:     "quiet",
			opts:     ConsoleOptions{Quiet: true, Verbose: true},
			contains: []string{"1 / 2 tests passed"},
			excludes: []string{"Fail:", "Pass:", "Error:", "math\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			tt.opts.ProjectPath = "/p"
			r := NewConsoleReporter(&out, tt.opts)

			file := &domain.File{Path: "/p/math_tp.go", Header: "math"}
			r.RunStarted(1)
			r.FileStarted(file)
			r.TestFinished(&domain.TestResult{Name: "math adds", Passed: true})
			r.TestFinished(&domain.TestResult{
				Name:     "math divides",
				FilePath: "/p/math_tp.go",
				Line:     7,
				Failures: []domain.Failure{{Line: 7, Message: "Expected 1 to be 2"}},
				Logs:     []string{"dividing"},
			})
			r.TestFinished(&domain.TestResult{Name: "math later", Skipped: true})
			r.HookFailed(&domain.HookError{Kind: domain.AfterAll, Group: "math", Err: errors.New("cleanup")})
			r.FileFinished(&domain.FileResult{})
			r.RunFinished(&domain.RunResult{
				Status:    domain.StatusFailed,
				TestCount: 2,
				PassCount: 1,
				SkipCount: 1,
				Duration:  time.Second,
			})

			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestConsoleReporter_Statuses(t *testing.T) {
	tests := []struct {
		status   domain.Status
		expected string
	}{
		{domain.StatusStopped, "Stopped"},
		{domain.StatusEmpty, "No tests were run"},
		{domain.StatusErrored, "Run aborted by an internal error"},
		{domain.StatusPassed, "3 / 3 tests passed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			var out bytes.Buffer
			r := NewConsoleReporter(&out, ConsoleOptions{})
			r.RunFinished(&domain.RunResult{Status: tt.status, TestCount: 3, PassCount: 3})
			assert.Contains(t, out.String(), tt.expected)
		})
	}
}

func TestConsoleReporter_ReloadFailed(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, ConsoleOptions{ProjectPath: "/p", Quiet: true})

	r.ReloadFailed(&engine.ReloadError{Path: "/p/bad_tp.go", Err: errors.New("1:1: expected 'package'")})

	assert.Equal(t, "Error: failed to load bad_tp.go\n    1:1: expected 'package'\n", out.String())
}

func TestConsoleReporter_ProgressDefersFailures(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReporter(&out, ConsoleOptions{Progress: true})

	r.RunStarted(1)
	r.TestFinished(&domain.TestResult{Name: "broken", Failures: []domain.Failure{{Message: "nope"}}})
	assert.NotContains(t, out.String(), "Fail: broken")

	r.FileFinished(&domain.FileResult{})
	r.RunFinished(&domain.RunResult{Status: domain.StatusFailed, TestCount: 1})
	assert.Contains(t, out.String(), "Fail: broken")
	assert.Contains(t, out.String(), "0 / 1 tests passed")
}

func storedOutput() *domain.TestResultsOutput {
	return &domain.TestResultsOutput{
		Meta: domain.TestResultsMeta{
			RunID:           "run-1",
			Status:          domain.StatusFailed,
			TotalTestFiles:  2,
			TotalTests:      4,
			PassedTests:     2,
			FailedTests:     2,
			DurationSeconds: 1.25,
			Timestamp:       "2026-01-02T03:04:05Z",
		},
		Details: []domain.TestFailure{
			{TestName: "users create", FilePath: "/p/api/users_tp.go", Line: 9, Message: "boom"},
			{TestName: "orders list", FilePath: "/p/api/orders_tp.go", Line: 3, Message: "bad", Resolved: true},
		},
	}
}

func TestFormatter_PrintMetaStats(t *testing.T) {
	var out bytes.Buffer
	cfg := config.New()
	cfg.ProjectPath = "/p"

	NewFormatter(cfg, &out).PrintMetaStats(storedOutput())

	text := out.String()
	assert.Contains(t, text, "│ Failed Tests                    │ 2                           │")
	assert.Contains(t, text, "1.25s")
	assert.Contains(t, text, "✗ 2 failure(s) in 2 test(s)")
	assert.Contains(t, text, "└── api\n")
	assert.Contains(t, text, "    ├── orders_tp.go\n    │   └── orders list:3\n")
	assert.Contains(t, text, "    └── users_tp.go\n        └── users create:9\n")
}

func TestFormatter_PrintMetaStats_AllPassed(t *testing.T) {
	var out bytes.Buffer
	output := &domain.TestResultsOutput{Meta: domain.TestResultsMeta{Status: domain.StatusPassed}}

	NewFormatter(config.New(), &out).PrintMetaStats(output)

	assert.Contains(t, out.String(), "✓ All tests passed!")
}

func TestFormatter_FailedPaths(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = "/p"

	paths := NewFormatter(cfg, &bytes.Buffer{}).FailedPaths(storedOutput())

	assert.Equal(t, map[string]struct{}{"api/users_tp.go": {}}, paths)
}

func TestFormatter_PrintTestList(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = "/p"

	top := domain.NewTop()
	users := domain.NewFile("/p/api/users_tp.go")
	users.Header = "users"
	users.Group = domain.NewGroup("", top, users)
	top.PushGroup(users.Group)
	create := domain.NewGroup("create", users.Group, nil)
	users.Group.PushGroup(create)
	create.PushTest(domain.NewTest("valid", nil, domain.Location{}))
	create.PushTest(domain.NewTest("", nil, domain.Location{}))
	later := domain.NewTest("later", nil, domain.Location{})
	later.Skip = true
	users.Group.PushTest(later)

	broken := domain.NewFile("/p/broken_tp.go")

	t.Run("files only", func(t *testing.T) {
		var out bytes.Buffer
		NewFormatter(cfg, &out).PrintTestList([]*domain.File{users, broken}, false, map[string]struct{}{"broken_tp.go": {}})

		assert.Equal(t, "Found 2 test file(s):\n\n├── api/users_tp.go (users)\n└── broken_tp.go [F]\n", out.String())
	})

	t.Run("with test cases", func(t *testing.T) {
		var out bytes.Buffer
		NewFormatter(cfg, &out).PrintTestList([]*domain.File{users, broken}, true, nil)

		text := out.String()
		assert.Contains(t, text, "│   ├── create\n│   │   ├── valid\n│   │   └── #2\n│   └── later [skip]\n")
		assert.Contains(t, text, "    └── (failed to load)\n")
	})
}

func TestErrorViewer_Format(t *testing.T) {
	failure := domain.TestFailure{
		TestName: "math [divides]",
		FilePath: "/p/math_tp.go",
		Line:     7,
		Message:  "Expected 1 to be 2",
		Errors:   []string{"Expected 1 to be 2", "boom"},
		Logs:     []string{"dividing"},
	}

	details := formatFailureDetails(failure)
	assert.Contains(t, details, "Location: /p/math_tp.go:7")
	assert.Contains(t, details, "Other Failures:[white]\n  boom\n")
	assert.Contains(t, details, "Output:[white]\n  dividing\n")
	assert.Contains(t, details, "math [divides[]")

	stats := formatFailureStats(domain.TestFailure{}, 3)
	assert.Equal(t, "[cyan]path:[white] [yellow]Unknown path[white]::[yellow]Test 3[white]\n", stats)

	require.Equal(t, "[yellow]2.[white] Test 2", listItemText(domain.TestFailure{}, 2, false))
	assert.Equal(t, "[gray]✓ [yellow]1.[gray] a[white]", listItemText(domain.TestFailure{TestName: "a"}, 1, true))
}

func TestFailureBrowser_Resolve(t *testing.T) {
	results := &domain.TestResultsOutput{Details: []domain.TestFailure{
		{TestName: "a"},
		{TestName: "b", Resolved: true},
		{TestName: "c"},
	}}
	assert.True(t, strings.HasPrefix(headerText(results.Details), " 3 failures, 2 unresolved | "))

	saved := 0
	b := newFailureBrowser(results)
	b.onToggle = func() { saved++ }

	b.toggle(0)
	assert.True(t, results.Details[0].Resolved)
	assert.Equal(t, 1, saved)
	main, _ := b.list.GetItemText(0)
	assert.Equal(t, "[gray]✓ [yellow]1.[gray] a[white]", main)
	assert.Contains(t, b.header.GetText(false), "3 failures, 1 unresolved")

	b.toggle(7)
	assert.Equal(t, 1, saved)

	assert.Equal(t, 2, nextUnresolved(results.Details, 0))
	assert.Equal(t, 2, nextUnresolved(results.Details, 2))
	b.toggle(2)
	assert.Equal(t, -1, nextUnresolved(results.Details, 1))
}
