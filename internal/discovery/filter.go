package discovery

import (
	"path/filepath"
	"strings"
)

// Filter narrows test files by a file name pattern. An empty pattern
// accepts everything.
type Filter struct {
	pattern string
}

// NewFilter creates a Filter for pattern. Supports patterns like
// "*users_tp.go" or "*payment*"; a pattern without wildcards matches any
// file name containing it.
func NewFilter(pattern string) *Filter {
	return &Filter{pattern: pattern}
}

// Match reports whether the file name of path is accepted.
func (f *Filter) Match(path string) bool {
	if f == nil || f.pattern == "" {
		return true
	}
	name := filepath.Base(path)

	if matched, err := filepath.Match(f.pattern, name); err == nil && matched {
		return true
	}
	if !strings.ContainsAny(f.pattern, "*?") {
		return strings.Contains(name, f.pattern)
	}
	if !strings.Contains(f.pattern, "*") {
		return false
	}

	// Looser than filepath.Match: the literal parts between stars must
	// appear in order anywhere in the name.
	rest := name
	found := false
	for _, part := range strings.Split(f.pattern, "*") {
		if part == "" {
			continue
		}
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
		found = true
	}
	return found
}

// FilterByName returns the paths accepted by the filter.
func (f *Filter) FilterByName(tests []string) []string {
	if f == nil || f.pattern == "" {
		return tests
	}
	var filtered []string
	for _, test := range tests {
		if f.Match(test) {
			filtered = append(filtered, test)
		}
	}
	return filtered
}
