package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"testpass/internal/config"
	"testpass/internal/domain"
)

// Formatter formats and displays stored results and test listings
type Formatter struct {
	config *config.Config
	out    io.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(cfg *config.Config, out io.Writer) *Formatter {
	return &Formatter{
		config: cfg,
		out:    out,
	}
}

func (f *Formatter) row(label string, c *color.Color, format string, value any) {
	fmt.Fprintf(f.out, "│ %-31s │ ", label)
	c.Fprintf(f.out, "%-27s", fmt.Sprintf(format, value))
	fmt.Fprintln(f.out, " │")
}

// PrintMetaStats displays the statistics of a stored run and the tree of
// its failures
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) {
	meta := output.Meta
	white := color.New(color.FgWhite)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	separator := "├─────────────────────────────────┼─────────────────────────────┤"

	// Print header
	fmt.Fprint(f.out, "\n")
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	// Print table
	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	rows := []struct {
		label  string
		color  *color.Color
		format string
		value  any
	}{
		{"Status", white, "%s", meta.Status},
		{"Test Files", white, "%d", meta.TotalTestFiles},
		{"Tests", white, "%d", meta.TotalTests},
		{"Passed Tests", green, "%d", meta.PassedTests},
		{"Failed Tests", red, "%d", meta.FailedTests},
		{"Skipped Tests", yellow, "%d", meta.SkippedTests},
		{"Hook Errors", red, "%d", meta.HookErrors},
		{"Load Errors", red, "%d", meta.ReloadErrors},
		{"Duration", white, "%s", fmt.Sprintf("%.2fs", meta.DurationSeconds)},
		{"Timestamp", white, "%s", meta.Timestamp},
	}
	for i, r := range rows {
		if i > 0 {
			fmt.Fprintln(f.out, separator)
		}
		f.row(r.label, r.color, r.format, r.value)
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	// Print summary line
	fmt.Fprintln(f.out)
	switch {
	case meta.Status == domain.StatusEmpty:
		yellow.Fprintln(f.out, "No tests were run")
	case meta.Status == domain.StatusStopped:
		yellow.Fprintln(f.out, "Stopped")
	case len(output.Details) == 0:
		green.Fprintln(f.out, "✓ All tests passed!")
	default:
		red.Fprintf(f.out, "✗ %d failure(s) in %d test(s)\n", len(output.Details), meta.FailedTests)
		fmt.Fprintln(f.out)
		f.printFailedTestsTree(output.Details)
	}
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
	IsFile   bool
}

func (f *Formatter) relPath(path string) string {
	base, err := filepath.Abs(f.config.ProjectPath)
	if err != nil || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// printFailedTestsTree prints a tree structure of failed tests
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	root := &TreeNode{Children: make(map[string]*TreeNode)}

	for _, failure := range failures {
		path := failure.FilePath
		if path == "" {
			path = "(unknown)"
		}
		parts := strings.Split(strings.TrimPrefix(f.relPath(path), "./"), "/")
		current := root

		// Navigate/create tree nodes for each path part
		for i, part := range parts {
			if part == "" {
				continue
			}
			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
			}
			current = current.Children[part]
		}
		current.Failures = append(current.Failures, failure)
	}

	f.printTreeNode(root, "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	// Sort children for consistent output
	keys := make([]string, 0, len(node.Children))
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		last := i == len(keys)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}

		if child.IsFile {
			color.New(color.FgYellow).Fprintf(f.out, "%s%s%s\n", prefix, connector, child.Name)
			for j, failure := range child.Failures {
				caseConnector := "├── "
				if j == len(child.Failures)-1 {
					caseConnector = "└── "
				}
				name := failure.TestName
				if failure.Line > 0 {
					name = fmt.Sprintf("%s:%d", name, failure.Line)
				}
				color.New(color.FgRed).Fprintf(f.out, "%s%s%s\n", prefix+indent, caseConnector, name)
			}
		} else {
			color.New(color.FgCyan).Fprintf(f.out, "%s%s%s\n", prefix, connector, child.Name)
		}
		f.printTreeNode(child, prefix+indent)
	}
}

// FailedPaths returns the file paths with failures in a stored run, keyed
// by their project-relative form.
func (f *Formatter) FailedPaths(output *domain.TestResultsOutput) map[string]struct{} {
	paths := make(map[string]struct{})
	if output == nil {
		return paths
	}
	for _, failure := range output.Details {
		if failure.FilePath != "" && !failure.Resolved {
			paths[f.relPath(failure.FilePath)] = struct{}{}
		}
	}
	return paths
}

// PrintTestList prints the test files, with their declared groups and tests
// when showTestCases is set. Files with failures in failedPaths are marked
// with [F].
func (f *Formatter) PrintTestList(files []*domain.File, showTestCases bool, failedPaths map[string]struct{}) {
	label := "test file(s)"
	if showTestCases {
		label = "test file(s) with test cases"
	}
	color.New(color.FgGreen).Fprintf(f.out, "Found %d %s:\n\n", len(files), label)

	for i, file := range files {
		relPath := f.relPath(file.Path)
		failMarker := ""
		if _, ok := failedPaths[relPath]; ok {
			failMarker = " " + color.RedString("[F]")
		}

		last := i == len(files)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		title := relPath
		if file.Header != "" {
			title = fmt.Sprintf("%s (%s)", relPath, file.Header)
		}
		color.New(color.FgCyan).Fprintf(f.out, "%s%s%s\n", connector, title, failMarker)

		if !showTestCases {
			continue
		}
		switch {
		case file.Group == nil:
			fmt.Fprintf(f.out, "%s└── %s\n", indent, color.RedString("(failed to load)"))
		case len(file.Group.Children) == 0:
			fmt.Fprintf(f.out, "%s└── %s\n", indent, color.RedString("(no test cases found)"))
		default:
			ordinals := make(map[*domain.Test]int)
			for i, t := range file.Group.Tests() {
				ordinals[t] = i + 1
			}
			f.printDeclared(file.Group, indent, ordinals)
		}
		if !last {
			fmt.Fprintln(f.out)
		}
	}
}

// printDeclared prints the declared groups and tests below g. Anonymous
// tests are shown by their ordinal within the file.
func (f *Formatter) printDeclared(g *domain.Group, prefix string, ordinals map[*domain.Test]int) {
	for i, child := range g.Children {
		connector, indent := "├── ", "│   "
		if i == len(g.Children)-1 {
			connector, indent = "└── ", "    "
		}
		switch node := child.(type) {
		case *domain.Group:
			name := node.Name + marks(node.Skip, g.IsOnly(node))
			color.New(color.FgCyan).Fprintf(f.out, "%s%s%s\n", prefix, connector, name)
			f.printDeclared(node, prefix+indent, ordinals)
		case *domain.Test:
			name := node.Name
			if name == "" {
				name = fmt.Sprintf("#%d", ordinals[node])
			}
			name += marks(node.Skip, g.IsOnly(node))
			fmt.Fprintf(f.out, "%s%s%s\n", prefix, connector, color.YellowString(name))
		}
	}
}

func marks(skip, focused bool) string {
	var m string
	if focused {
		m += " [focus]"
	}
	if skip {
		m += " [skip]"
	}
	return m
}
