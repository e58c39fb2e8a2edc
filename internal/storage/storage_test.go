package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpass/internal/config"
	"testpass/internal/domain"
	"testpass/internal/engine"
)

func sampleResult() *domain.RunResult {
	failed := &domain.TestResult{
		Name:     "math divides",
		FilePath: "/p/math_tp.go",
		Line:     12,
		Failures: []domain.Failure{
			{Line: 12, Message: "Expected 1 to be 2"},
			{Line: 12, Err: errors.New("boom")},
		},
		Logs: []string{"dividing"},
	}
	file := &domain.FileResult{Path: "/p/math_tp.go"}
	file.Add(&domain.TestResult{Name: "math adds", Passed: true})
	file.Add(failed)
	file.Add(&domain.TestResult{Name: "math later", Skipped: true})
	file.HookErrors = append(file.HookErrors, &domain.HookError{
		Kind:  domain.AfterAll,
		Group: "math",
		File:  "/p/math_tp.go",
		Err:   errors.New("cleanup failed"),
	})

	result := &domain.RunResult{
		ID:        "run-1",
		Files:     []*domain.FileResult{file},
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		ReloadErrors: []error{
			&engine.ReloadError{Path: "/p/broken_tp.go", Err: errors.New("syntax error")},
		},
	}
	result.Tally()
	return result
}

func TestNewOutput(t *testing.T) {
	output := NewOutput(sampleResult())

	assert.Equal(t, domain.TestResultsMeta{
		RunID:           "run-1",
		Status:          domain.StatusFailed,
		TotalTestFiles:  1,
		TotalTests:      2,
		PassedTests:     1,
		FailedTests:     1,
		SkippedTests:    1,
		HookErrors:      1,
		ReloadErrors:    1,
		Duration:        "1.5s",
		DurationSeconds: 1.5,
		Timestamp:       "2026-01-02T03:04:05Z",
	}, output.Meta)

	require.Len(t, output.Details, 3)
	assert.Equal(t, domain.TestFailure{
		TestName: "math divides",
		FilePath: "/p/math_tp.go",
		Line:     12,
		Message:  "Expected 1 to be 2",
		Errors:   []string{"Expected 1 to be 2", "boom"},
		Logs:     []string{"dividing"},
	}, output.Details[0])
	assert.Equal(t, "math afterAll", output.Details[1].TestName)
	assert.Equal(t, []string{"cleanup failed"}, output.Details[1].Errors)
	assert.Equal(t, "/p/broken_tp.go", output.Details[2].FilePath)
	assert.Equal(t, []string{"syntax error"}, output.Details[2].Errors)
}

func TestNewOutput_GeneratesRunID(t *testing.T) {
	output := NewOutput(&domain.RunResult{Status: domain.StatusEmpty})

	assert.Len(t, output.Meta.RunID, 36)
	assert.NotNil(t, output.Details)
}

func TestJSONStorage(t *testing.T) {
	ctx := context.Background()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	st := NewJSONStorage(cfg)

	_, err := st.Load(ctx)
	require.ErrorIs(t, err, ErrNoResults)

	require.NoError(t, st.Save(ctx, sampleResult()))
	output, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", output.Meta.RunID)
	require.Len(t, output.Details, 3)

	output.Details[0].Resolved = true
	require.NoError(t, st.SaveOutput(ctx, output))

	reloaded, err := st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded.Details[0].Resolved)
	assert.False(t, reloaded.Details[1].Resolved)
	require.NoError(t, st.Close())
}

func TestNew_DefaultsToJSON(t *testing.T) {
	st, err := New(context.Background(), config.New())
	require.NoError(t, err)
	assert.IsType(t, &JSONStorage{}, st)
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{
			name: "adds parseTime",
			dsn:  "root:secret@tcp(127.0.0.1:3306)/testpass",
		},
		{
			name:    "missing database",
			dsn:     "root@tcp(127.0.0.1:3306)/",
			wantErr: true,
		},
		{
			name:    "malformed",
			dsn:     "root@tcp(127.0.0.1:3306",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := normalizeDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			cfg, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)
			assert.True(t, cfg.ParseTime)
			assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
			assert.Equal(t, "testpass", cfg.DBName)
		})
	}
}
