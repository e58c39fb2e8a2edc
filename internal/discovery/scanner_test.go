package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test files
	testFiles := []string{
		"users_tp.go",
		"api/orders_tp.go",
		"api/v2/payments_tp.go",
		"api/orders.go",
		"api/orders_test.go",
		"vendor/lib/lib_tp.go",
		"node_modules/some/file_tp.go",
		".cache/old_tp.go",
	}
	for _, file := range testFiles {
		fullPath := filepath.Join(tmpDir, file)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte("package main\n"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	scanner, err := NewScanner([]string{"vendor", "node_modules"}, "**/*_tp.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("scans test files correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Should find 3 test files, not the ones in vendor/node_modules or hidden dirs
		expected := []string{
			filepath.Join(tmpDir, "api", "orders_tp.go"),
			filepath.Join(tmpDir, "api", "v2", "payments_tp.go"),
			filepath.Join(tmpDir, "users_tp.go"),
		}
		if len(results) != len(expected) {
			t.Fatalf("expected %d test files, got %d: %v", len(expected), len(results), results)
		}
		for i := range expected {
			if results[i] != expected[i] {
				t.Errorf("expected %s at %d, got %s", expected[i], i, results[i])
			}
		}
	})

	t.Run("narrower pattern", func(t *testing.T) {
		api, err := NewScanner(nil, "api/*_tp.go")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		results, err := api.Scan(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected 1 test file, got %d: %v", len(results), results)
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		if err == nil {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		_, err := scanner.Scan(filepath.Join(tmpDir, "users_tp.go"))
		if err == nil {
			t.Error("expected error for file path")
		}
	})
}

func TestScanner_Match(t *testing.T) {
	scanner, err := NewScanner([]string{"vendor"}, "**/*_tp.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "top level script", path: "/p/a_tp.go", expected: true},
		{name: "nested script", path: "/p/x/y/a_tp.go", expected: true},
		{name: "plain source", path: "/p/a.go", expected: false},
		{name: "ignored dir", path: "/p/vendor/a_tp.go", expected: false},
		{name: "hidden dir", path: "/p/.git/a_tp.go", expected: false},
		{name: "outside root", path: "/other/a_tp.go", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scanner.Match("/p", tt.path); got != tt.expected {
				t.Errorf("Match(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNewScanner_InvalidPattern(t *testing.T) {
	if _, err := NewScanner(nil, "[unclosed"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
