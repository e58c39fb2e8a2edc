package script

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"testpass/internal/modules"
)

// Host loads Go source files as units. The children of a file are the
// source files of every imported package that lives inside the project
// module. Other imports are external.
type Host struct {
	root     string
	modPath  string
	isScript func(path string) bool
}

var _ modules.Host = (*Host)(nil)

// HostOption configures a Host.
type HostOption func(*Host)

// WithScripts makes the host treat the files accepted by isScript as test
// scripts. Scripts never belong to an imported package. By default only
// *_tp.go files are scripts.
func WithScripts(isScript func(path string) bool) HostOption {
	return func(h *Host) {
		if isScript != nil {
			h.isScript = isScript
		}
	}
}

// NewHost creates a Host for the module rooted at root. A project without
// go.mod has no local packages.
func NewHost(root string, opts ...HostOption) (*Host, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	h := &Host{root: root, isScript: isDefaultScript}
	for _, opt := range opts {
		opt(h)
	}
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return h, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}
	h.modPath = modfile.ModulePath(data)
	if h.modPath == "" {
		return nil, fmt.Errorf("go.mod in %s has no module directive", root)
	}
	return h, nil
}

// Root returns the absolute project root.
func (h *Host) Root() string {
	return h.root
}

// ModulePath returns the module path from go.mod.
func (h *Host) ModulePath() string {
	return h.modPath
}

// Owns reports whether path is a Go file inside the project.
func (h *Host) Owns(path string) bool {
	if !strings.HasSuffix(path, ".go") {
		return false
	}
	rel, err := filepath.Rel(h.root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Load reads path and resolves its local imports.
func (h *Host) Load(path string) (*modules.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	unit := &modules.Unit{Path: path, Source: src}
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		dir, ok := h.packageDir(importPath)
		if !ok {
			continue
		}
		files, err := h.packageFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", importPath, err)
		}
		unit.Children = append(unit.Children, files...)
	}
	return unit, nil
}

// packageDir maps an import path of the project module to its directory.
func (h *Host) packageDir(importPath string) (string, bool) {
	if h.modPath == "" {
		return "", false
	}
	if importPath == h.modPath {
		return h.root, true
	}
	rest, ok := strings.CutPrefix(importPath, h.modPath+"/")
	if !ok {
		return "", false
	}
	return filepath.Join(h.root, filepath.FromSlash(rest)), true
}

// packageFiles lists the Go files of a package directory, leaving out tests
// and scripts.
func (h *Host) packageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		path := filepath.Join(dir, name)
		if strings.HasSuffix(name, "_test.go") || h.isScript(path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func isDefaultScript(path string) bool {
	return strings.HasSuffix(path, "_tp.go")
}
