package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner scans for test files in a directory
type Scanner struct {
	skipDirs map[string]bool
	pattern  string
}

// NewScanner creates a new Scanner with the given directories to skip.
// pattern is a doublestar glob matched against slash-separated paths
// relative to the scanned root.
func NewScanner(skipDirs []string, pattern string) (*Scanner, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid test pattern %q", pattern)
	}
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap, pattern: pattern}, nil
}

// Skips reports whether a directory with the given name is not scanned.
// Hidden directories are always skipped.
func (s *Scanner) Skips(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	return s.skipDirs[name]
}

// Match reports whether path is a test file below root.
func (s *Scanner) Match(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, dir := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
		if s.Skips(dir) {
			return false
		}
	}
	ok, err := doublestar.Match(s.pattern, rel)
	return err == nil && ok
}

// Scan finds all test files in the given root directory
func (s *Scanner) Scan(root string) ([]string, error) {
	var testfiles []string

	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && s.Skips(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.Match(root, path) {
			testfiles = append(testfiles, path)
		}
		return nil
	})

	return testfiles, err
}
