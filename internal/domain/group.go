package domain

import (
	"context"
	"fmt"
	"regexp"
)

// HookKind identifies one of the four lifecycle hook lists of a group.
type HookKind int

const (
	BeforeAll HookKind = iota
	BeforeEach
	AfterEach
	AfterAll
)

func (k HookKind) String() string {
	switch k {
	case BeforeAll:
		return "beforeAll"
	case BeforeEach:
		return "beforeEach"
	case AfterEach:
		return "afterEach"
	case AfterAll:
		return "afterAll"
	}
	return fmt.Sprintf("HookKind(%d)", int(k))
}

// HookFunc is a lifecycle hook. child is the node an Each hook surrounds
// and nil for All hooks.
type HookFunc func(ctx context.Context, child Node) error

// Group is a node of the test hierarchy.
type Group struct {
	Name string
	Line int

	// File is only set on the root group of a file; see OwnerFile.
	File   *File
	Parent *Group

	Children []Node

	// Skip is set on groups declared with XGroup; none of their tests run.
	Skip bool

	hooks  [4][]HookFunc
	filter *regexp.Regexp
	only   map[Node]struct{}
	whole  bool
}

// NewTop creates the synthetic top-level group.
func NewTop() *Group {
	return &Group{}
}

// NewGroup creates a group under parent. The group is not attached to
// parent until PushGroup is called, so a failed declaration leaves no trace.
func NewGroup(name string, parent *Group, file *File) *Group {
	return &Group{
		Name:   name,
		Parent: parent,
		File:   file,
	}
}

func (g *Group) ID() string { return g.Name }

func (*Group) isNode() {}

// IsTop reports whether g is the synthetic top-level group.
func (g *Group) IsTop() bool { return g.Parent == nil }

// OwnerFile walks up the parents until a group carries a file.
func (g *Group) OwnerFile() *File {
	for group := g; group != nil; group = group.Parent {
		if group.File != nil {
			return group.File
		}
	}
	return nil
}

// PushTest appends a test to the children.
func (g *Group) PushTest(t *Test) {
	t.Group = g
	g.Children = append(g.Children, t)
}

// PushGroup appends a sub-group to the children.
func (g *Group) PushGroup(child *Group) {
	child.Parent = g
	g.Children = append(g.Children, child)
}

// PushHook appends fn to the hook list of the given kind.
func (g *Group) PushHook(kind HookKind, fn HookFunc) {
	g.hooks[kind] = append(g.hooks[kind], fn)
}

// Hooks returns the hook list of the given kind.
func (g *Group) Hooks(kind HookKind) []HookFunc {
	return g.hooks[kind]
}

// SetFilter restricts which immediate children run. A string is matched
// anywhere in the child identifier. It may be called once per group.
func (g *Group) SetFilter(pattern any) error {
	if g.filter != nil {
		return fmt.Errorf("cannot set filter more than once per group")
	}
	switch p := pattern.(type) {
	case string:
		re, err := regexp.Compile(".*" + p + ".*")
		if err != nil {
			return fmt.Errorf("invalid filter %q: %w", p, err)
		}
		g.filter = re
	case *regexp.Regexp:
		if p == nil {
			return fmt.Errorf("filter must not be nil")
		}
		g.filter = p
	default:
		return fmt.Errorf("filter must be a string or *regexp.Regexp, got %T", pattern)
	}
	return nil
}

// Filter returns the identifier filter, nil when every child matches.
func (g *Group) Filter() *regexp.Regexp {
	return g.filter
}

// Focused reports whether the group restricts its run to focused members
// or was focused as a whole.
func (g *Group) Focused() bool {
	return g.only != nil || g.whole
}

// IsOnly reports whether child is a focused member of g.
func (g *Group) IsOnly(child Node) bool {
	_, ok := g.only[child]
	return ok
}

// Selected returns the children that run: the focused members when there
// are any, otherwise all children, minus those rejected by the filter.
func (g *Group) Selected() []Node {
	selected := make([]Node, 0, len(g.Children))
	for _, child := range g.Children {
		if g.only != nil {
			if _, ok := g.only[child]; !ok {
				continue
			}
		}
		if g.filter != nil && !g.filter.MatchString(child.ID()) {
			continue
		}
		selected = append(selected, child)
	}
	return selected
}

// Tests returns every test below g in declaration order.
func (g *Group) Tests() []*Test {
	var tests []*Test
	for _, child := range g.Children {
		switch c := child.(type) {
		case *Test:
			tests = append(tests, c)
		case *Group:
			tests = append(tests, c.Tests()...)
		}
	}
	return tests
}

// IndexOf returns the position of child, or -1.
func (g *Group) IndexOf(child Node) int {
	for i, c := range g.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Remove detaches child from g.
func (g *Group) Remove(child Node) bool {
	i := g.IndexOf(child)
	if i < 0 {
		return false
	}
	g.Children = append(g.Children[:i], g.Children[i+1:]...)
	delete(g.only, child)
	return true
}

func (g *Group) focus(child Node) {
	if child != nil {
		if g.only == nil {
			g.only = make(map[Node]struct{})
		}
		g.only[child] = struct{}{}
	}
	if g.Parent == nil {
		return
	}
	if !g.Parent.IsTop() {
		g.Parent.focus(g)
		return
	}
	if child == nil {
		g.whole = true
	}
}

// MarkFocused focuses n and every ancestor below the top-level group.
func MarkFocused(n Node) {
	switch node := n.(type) {
	case *Test:
		if node.Group != nil {
			node.Group.focus(node)
		}
	case *Group:
		node.focus(nil)
	}
}
