package domain

import (
	"context"
	"strconv"
	"strings"
)

// Location is a source position supplied by the declaration layer.
type Location struct {
	Path string
	Line int
}

// Controller is the per-test handle passed to test functions
type Controller interface {
	Eq(actual, expected any)
	Ne(actual, expected any)
	Assert(cond bool)
	Fail(message string)
	Log(args ...any)
	Name() string
	Context() context.Context
}

// TestFunc is the body of a test. A returned error ends the test.
type TestFunc func(t Controller) error

// ErrorMatcher reports whether an error ending a test was the expected one.
type ErrorMatcher func(err error) bool

// Node is a child of a Group: either a *Group or a *Test.
type Node interface {
	ID() string
	isNode()
}

// Test is a leaf of the test tree.
type Test struct {
	Name  string
	Fn    TestFunc
	Line  int
	Catch ErrorMatcher
	Skip  bool
	Group *Group

	// AssertLines are the source lines of the assertions in the test body,
	// in call order. Empty when they cannot be derived from the source.
	AssertLines []int

	// Failures collected during the current run.
	Failures []Failure
}

// NewTest creates a test declared at loc.
func NewTest(name string, fn TestFunc, loc Location) *Test {
	return &Test{
		Name: name,
		Fn:   fn,
		Line: loc.Line,
	}
}

func (t *Test) ID() string { return t.Name }

func (*Test) isNode() {}

// AddFailure records a soft failure on the test.
func (t *Test) AddFailure(f Failure) {
	t.Failures = append(t.Failures, f)
}

// Reset clears the failures of a previous run.
func (t *Test) Reset() {
	t.Failures = nil
}

// File returns the file the test was declared in.
func (t *Test) File() *File {
	if t.Group == nil {
		return nil
	}
	return t.Group.OwnerFile()
}

// DisplayName joins the names of the enclosing groups with the test name.
// Anonymous tests are shown by their ordinal within the file.
func (t *Test) DisplayName(ordinal int) string {
	var ids []string
	for g := t.Group; g != nil; g = g.Parent {
		if g.Name != "" {
			ids = append(ids, g.Name)
		}
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	if t.Name != "" {
		ids = append(ids, t.Name)
	} else {
		ids = append(ids, "#"+strconv.Itoa(ordinal))
	}
	return strings.Join(ids, " ")
}

// File is one test source file.
type File struct {
	Path   string
	Header string

	// Group is the root group of the file, nil while the file is not loaded.
	Group *Group
}

// NewFile creates an unloaded file.
func NewFile(path string) *File {
	return &File{Path: path}
}
