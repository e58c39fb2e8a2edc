package engine

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by StartRun while another run is active.
var ErrAlreadyRunning = errors.New("a run is already active")

// ReloadError is a test file that failed to load. The file is retried on
// the next cycle.
type ReloadError struct {
	Path string
	Err  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }
