package execution

import (
	"errors"
	"fmt"
)

// ErrStopped aborts the remaining work of a run after Stop was called.
// It never reaches reporters: the run converts it into a stopped result.
var ErrStopped = errors.New("run stopped")

// PanicError wraps a value recovered from a panicking test or hook.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprint(e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
