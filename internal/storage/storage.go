package storage

import (
	"context"
	"errors"

	"testpass/internal/config"
	"testpass/internal/domain"
)

// ErrNoResults is returned by Load when no run has been stored yet.
var ErrNoResults = errors.New("no stored test results")

// Storage persists and loads test run results (e.g. for the faills viewer).
type Storage interface {
	Save(ctx context.Context, result *domain.RunResult) error
	Load(ctx context.Context) (*domain.TestResultsOutput, error)
	// SaveOutput writes the full output back (e.g. after toggling resolved markers).
	SaveOutput(ctx context.Context, output *domain.TestResultsOutput) error
	Close() error
}

// New returns the SQL backend when a results DSN is configured and the JSON
// file backend otherwise.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	if cfg.ResultsDSN != "" {
		return NewSQLStorage(ctx, cfg.ResultsDSN)
	}
	return NewJSONStorage(cfg), nil
}
