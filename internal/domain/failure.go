package domain

import "fmt"

// Failure is one problem recorded on a test: a soft assertion failure, or
// the error that ended the test function.
type Failure struct {
	Line    int
	Message string
	Err     error
}

func (f Failure) String() string {
	switch {
	case f.Err != nil && f.Message != "":
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	case f.Err != nil:
		return f.Err.Error()
	}
	return f.Message
}

// HookError is a failure of a lifecycle hook, attributed to its group.
type HookError struct {
	Kind  HookKind
	Group string
	Child string
	File  string
	Err   error
}

func (e *HookError) Error() string {
	where := e.Group
	if where == "" {
		where = "<root>"
	}
	if e.Child != "" {
		return fmt.Sprintf("%s hook of %s failed around %q: %v", e.Kind, where, e.Child, e.Err)
	}
	return fmt.Sprintf("%s hook of %s failed: %v", e.Kind, where, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// TestFailure represents a failed test case as persisted after a run
type TestFailure struct {
	TestName string   `json:"test_name"`
	FilePath string   `json:"file_path"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors"`
	Logs     []string `json:"logs,omitempty"`
	Resolved bool     `json:"resolved,omitempty"` // Track if test case is marked as resolved
}
