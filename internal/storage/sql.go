package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"testpass/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS testpass_runs (
		id CHAR(36) NOT NULL PRIMARY KEY,
		status VARCHAR(16) NOT NULL,
		total_test_files INT NOT NULL,
		total_tests INT NOT NULL,
		passed_tests INT NOT NULL,
		failed_tests INT NOT NULL,
		skipped_tests INT NOT NULL,
		hook_errors INT NOT NULL,
		reload_errors INT NOT NULL,
		duration_seconds DOUBLE NOT NULL,
		started_at DATETIME(6) NOT NULL,
		INDEX idx_started_at (started_at)
	)`,
	`CREATE TABLE IF NOT EXISTS testpass_failures (
		run_id CHAR(36) NOT NULL,
		position INT NOT NULL,
		test_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line INT NOT NULL,
		message TEXT NOT NULL,
		errors TEXT NOT NULL,
		logs TEXT NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (run_id, position)
	)`,
}

// SQLStorage stores results in MySQL. Every run is kept; Load returns the
// most recent one.
type SQLStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLStorage)(nil)

// NewSQLStorage connects to dsn and creates the result tables when missing.
func NewSQLStorage(ctx context.Context, dsn string) (*SQLStorage, error) {
	normalized, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to results database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create result tables: %w", err)
		}
	}
	return &SQLStorage{db: db}, nil
}

// normalizeDSN validates dsn and enables time parsing for DATETIME columns.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid results DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("invalid results DSN: no database name")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Save inserts a run and its failure details in one transaction.
func (s *SQLStorage) Save(ctx context.Context, result *domain.RunResult) error {
	output := NewOutput(result)
	started := result.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		meta := output.Meta
		_, err := tx.ExecContext(ctx, `INSERT INTO testpass_runs
			(id, status, total_test_files, total_tests, passed_tests, failed_tests,
			 skipped_tests, hook_errors, reload_errors, duration_seconds, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.RunID, string(meta.Status), meta.TotalTestFiles, meta.TotalTests, meta.PassedTests,
			meta.FailedTests, meta.SkippedTests, meta.HookErrors, meta.ReloadErrors,
			meta.DurationSeconds, started.UTC())
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return insertFailures(ctx, tx, meta.RunID, output.Details)
	})
}

func insertFailures(ctx context.Context, tx *sql.Tx, runID string, details []domain.TestFailure) error {
	for i, f := range details {
		errs, err := json.Marshal(f.Errors)
		if err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
		logs, err := json.Marshal(f.Logs)
		if err != nil {
			return fmt.Errorf("marshal logs: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO testpass_failures
			(run_id, position, test_name, file_path, line, message, errors, logs, resolved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, f.TestName, f.FilePath, f.Line, f.Message, string(errs), string(logs), f.Resolved)
		if err != nil {
			return fmt.Errorf("insert failure %q: %w", f.TestName, err)
		}
	}
	return nil
}

// Load returns the most recent run.
func (s *SQLStorage) Load(ctx context.Context) (*domain.TestResultsOutput, error) {
	var (
		meta    domain.TestResultsMeta
		status  string
		started time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, status, total_test_files, total_tests,
		passed_tests, failed_tests, skipped_tests, hook_errors, reload_errors,
		duration_seconds, started_at
		FROM testpass_runs ORDER BY started_at DESC LIMIT 1`).Scan(
		&meta.RunID, &status, &meta.TotalTestFiles, &meta.TotalTests, &meta.PassedTests,
		&meta.FailedTests, &meta.SkippedTests, &meta.HookErrors, &meta.ReloadErrors,
		&meta.DurationSeconds, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	meta.Status = domain.Status(status)
	meta.Duration = time.Duration(meta.DurationSeconds * float64(time.Second)).String()
	meta.Timestamp = started.Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `SELECT test_name, file_path, line, message, errors, logs, resolved
		FROM testpass_failures WHERE run_id = ? ORDER BY position`, meta.RunID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	output := &domain.TestResultsOutput{Meta: meta, Details: []domain.TestFailure{}}
	for rows.Next() {
		var (
			f          domain.TestFailure
			errs, logs string
		)
		if err := rows.Scan(&f.TestName, &f.FilePath, &f.Line, &f.Message, &errs, &logs, &f.Resolved); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if err := json.Unmarshal([]byte(errs), &f.Errors); err != nil {
			return nil, fmt.Errorf("parse errors of %q: %w", f.TestName, err)
		}
		if err := json.Unmarshal([]byte(logs), &f.Logs); err != nil {
			return nil, fmt.Errorf("parse logs of %q: %w", f.TestName, err)
		}
		output.Details = append(output.Details, f)
	}
	return output, rows.Err()
}

// SaveOutput persists the resolved markers of a loaded run.
func (s *SQLStorage) SaveOutput(ctx context.Context, output *domain.TestResultsOutput) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i, f := range output.Details {
			_, err := tx.ExecContext(ctx,
				`UPDATE testpass_failures SET resolved = ? WHERE run_id = ? AND position = ?`,
				f.Resolved, output.Meta.RunID, i)
			if err != nil {
				return fmt.Errorf("update failure %q: %w", f.TestName, err)
			}
		}
		return nil
	})
}

func (s *SQLStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}
