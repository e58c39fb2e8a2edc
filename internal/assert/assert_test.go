package assert

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
	tag  string
}

type node struct {
	Value int
	Next  *node
}

func TestEqual(t *testing.T) {
	shared := &point{X: 1}
	loopA := &node{Value: 1}
	loopA.Next = loopA
	loopB := &node{Value: 1}
	loopB.Next = loopB

	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"nested slices", []any{1, []int{2, 3}}, []any{1, []int{2, 3}}, true},
		{"slice length differs", []int{1, 2}, []int{1, 2, 3}, false},
		{"slice order matters", []int{1, 2}, []int{2, 1}, false},
		{"missing key", map[string]int{"a": 1, "b": 2}, map[string]int{"a": 1}, false},
		{"missing key reversed", map[string]int{"a": 1}, map[string]int{"a": 1, "b": 2}, false},
		{"same keys different value", map[string]int{"a": 1}, map[string]int{"a": 2}, false},
		{"maps", map[string][]int{"a": {1}}, map[string][]int{"a": {1}}, true},
		{"struct sets", map[int]struct{}{1: {}, 2: {}}, map[int]struct{}{2: {}, 1: {}}, true},
		{"bool sets", map[string]bool{"x": true, "y": true}, map[string]bool{"y": true, "x": true}, true},
		{"sets differ", map[int]struct{}{1: {}}, map[int]struct{}{2: {}}, false},
		{"structs", point{1, 2, "a"}, point{1, 2, "a"}, true},
		{"unexported field differs", point{1, 2, "a"}, point{1, 2, "b"}, false},
		{"pointers by pointee", &point{X: 1}, &point{X: 1}, true},
		{"same pointer", shared, shared, true},
		{"cyclic", loopA, loopB, true},
		{"different types", 1, int64(1), false},
		{"nil and value", nil, 0, false},
		{"both nil", nil, nil, true},
		{"strings", "abc", "abc", true},
		{"nil slices", []int(nil), []int(nil), true},
		{"nil and empty slice", []int(nil), []int{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Equal(tt.actual, tt.expected))
		})
	}
}

func TestDiff(t *testing.T) {
	diff := Diff(point{X: 1}, point{X: 2})
	require.Contains(t, diff, "X:")
	require.Empty(t, Diff([]int{1}, []int{1}))
}

type codedError struct {
	Code int
	msg  string
}

func (e *codedError) Error() string { return e.msg }

type namedError struct{ msg string }

func (e namedError) Error() string { return e.msg }
func (e namedError) Name() string  { return "TypeError" }

func TestMatchError(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		err      error
		want     bool
	}{
		{"string prefix", "boom", errors.New("boom: extra detail"), true},
		{"string mismatch", "boom", errors.New("other"), false},
		{"regexp", regexp.MustCompile(`x`), errors.New("x"), true},
		{"regexp mismatch", regexp.MustCompile(`^y`), errors.New("x"), false},
		{"predicate", func(err error) bool { return err.Error() == "z" }, errors.New("z"), true},
		{"error value", errors.New("boom"), fmt.Errorf("boom"), true},
		{"error value different message", errors.New("boom"), errors.New("boom!"), false},
		{"error value different name", namedError{"boom"}, errors.New("boom"), false},
		{"shape name", ErrorShape{Name: "TypeError"}, namedError{"bad"}, true},
		{"shape name mismatch", ErrorShape{Name: "RangeError"}, namedError{"bad"}, false},
		{"shape message regexp", ErrorShape{Message: regexp.MustCompile(`ba.`)}, errors.New("a bad thing"), true},
		{"shape code", ErrorShape{Code: 404}, &codedError{Code: 404, msg: "not found"}, true},
		{"shape code mismatch", ErrorShape{Code: 500}, &codedError{Code: 404, msg: "not found"}, false},
		{"shape code missing", ErrorShape{Code: 500}, errors.New("x"), false},
		{"shape all fields", &ErrorShape{Name: "codedError", Message: "not", Code: 404}, &codedError{Code: 404, msg: "not found"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := MatchError(tt.expected)
			require.NoError(t, err)
			require.Equal(t, tt.want, match(tt.err))
		})
	}
}

func TestMatchError_Invalid(t *testing.T) {
	for _, expected := range []any{nil, 42, ErrorShape{Message: 3}} {
		_, err := MatchError(expected)
		require.ErrorIs(t, err, ErrInvalidMatcher)
	}
}

func TestErrorName(t *testing.T) {
	require.Equal(t, "Error", ErrorName(errors.New("x")))
	require.Equal(t, "Error", ErrorName(fmt.Errorf("wrap: %w", errors.New("x"))))
	require.Equal(t, "TypeError", ErrorName(namedError{}))
	require.Equal(t, "codedError", ErrorName(&codedError{}))
}
