package script

import (
	"context"
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"testpass/internal/assert"
	"testpass/internal/domain"
)

// ImportPath is the import path test scripts use for the declaration API.
const ImportPath = "testpass"

// DeclarationError is an invalid declaration in a test script. It fails the
// load of that script only.
type DeclarationError struct {
	Path string
	Line int
	Err  error
}

func (e *DeclarationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }

// Declarer implements the declaration API of one test script. Declarations
// are collected into the root group of the file.
type Declarer struct {
	file  *domain.File
	stack []*domain.Group
	lines *declLines
	err   error
}

// NewDeclarer creates a Declarer filling file.Group. lines maps declaration
// ordinals to source lines and may be nil.
func NewDeclarer(file *domain.File, lines *declLines) *Declarer {
	if lines == nil {
		lines = &declLines{}
	}
	return &Declarer{
		file:  file,
		stack: []*domain.Group{file.Group},
		lines: lines,
	}
}

// Err returns the first declaration error.
func (d *Declarer) Err() error {
	return d.err
}

func (d *Declarer) current() *domain.Group {
	return d.stack[len(d.stack)-1]
}

func (d *Declarer) fail(line int, err error) {
	if d.err == nil {
		d.err = &DeclarationError{Path: d.file.Path, Line: line, Err: err}
	}
}

// Header sets the title printed above the results of the file.
func (d *Declarer) Header(header string) {
	d.file.Header = header
}

// Group declares a named group whose members are declared by body.
func (d *Declarer) Group(name string, body func()) *Decl {
	return d.group(name, body, false, false)
}

// FGroup declares a focused group.
func (d *Declarer) FGroup(name string, body func()) *Decl {
	return d.group(name, body, true, false)
}

// XGroup declares a group whose tests are skipped.
func (d *Declarer) XGroup(name string, body func()) *Decl {
	return d.group(name, body, false, true)
}

func (d *Declarer) group(name string, body func(), focus, skip bool) *Decl {
	line := d.lines.nextGroup()
	if body == nil {
		d.fail(line, fmt.Errorf("group %q: must provide a function", name))
		return &Decl{d: d, line: line}
	}

	parent := d.current()
	g := domain.NewGroup(name, parent, nil)
	g.Line = line
	g.Skip = skip || parent.Skip

	d.stack = append(d.stack, g)
	func() {
		defer func() { d.stack = d.stack[:len(d.stack)-1] }()
		body()
	}()

	parent.PushGroup(g)
	if focus {
		domain.MarkFocused(g)
	}
	return &Decl{d: d, node: g, line: line}
}

// Test declares a test.
func (d *Declarer) Test(name string, fn func(t domain.Controller)) *Decl {
	return d.test(name, wrap(fn), fn == nil, false, false)
}

// TestErr declares a test whose returned error ends it.
func (d *Declarer) TestErr(name string, fn func(t domain.Controller) error) *Decl {
	return d.test(name, fn, fn == nil, false, false)
}

// FTest declares a focused test.
func (d *Declarer) FTest(name string, fn func(t domain.Controller)) *Decl {
	return d.test(name, wrap(fn), fn == nil, true, false)
}

// XTest declares a skipped test.
func (d *Declarer) XTest(name string, fn func(t domain.Controller)) *Decl {
	return d.test(name, wrap(fn), false, false, true)
}

func wrap(fn func(t domain.Controller)) domain.TestFunc {
	if fn == nil {
		return nil
	}
	return func(t domain.Controller) error {
		fn(t)
		return nil
	}
}

func (d *Declarer) test(name string, fn domain.TestFunc, missing, focus, skip bool) *Decl {
	line, asserts := d.lines.nextTest()
	if missing {
		d.fail(line, fmt.Errorf("test %q: must provide a function", name))
		return &Decl{d: d, line: line}
	}

	group := d.current()
	t := domain.NewTest(name, fn, domain.Location{Path: d.file.Path, Line: line})
	t.Skip = skip || group.Skip
	t.AssertLines = asserts
	group.PushTest(t)
	if focus {
		domain.MarkFocused(t)
	}
	return &Decl{d: d, node: t, test: t, line: line}
}

// BeforeAll adds a hook run once before the members of the current group.
func (d *Declarer) BeforeAll(fn func()) { d.hook(domain.BeforeAll, fn) }

// BeforeEach adds a hook run before every member of the current group.
func (d *Declarer) BeforeEach(fn func()) { d.hook(domain.BeforeEach, fn) }

// AfterEach adds a hook run after every member of the current group.
func (d *Declarer) AfterEach(fn func()) { d.hook(domain.AfterEach, fn) }

// AfterAll adds a hook run once after the members of the current group.
func (d *Declarer) AfterAll(fn func()) { d.hook(domain.AfterAll, fn) }

func (d *Declarer) hook(kind domain.HookKind, fn func()) {
	if fn == nil {
		d.fail(0, fmt.Errorf("%s: must provide a function", kind))
		return
	}
	d.current().PushHook(kind, func(context.Context, domain.Node) error {
		fn()
		return nil
	})
}

// BeforeEachChild adds a hook run before every member of the current group.
// It receives the member and fails it by returning an error.
func (d *Declarer) BeforeEachChild(fn func(child domain.Node) error) {
	d.childHook(domain.BeforeEach, fn)
}

// AfterEachChild adds a hook run after every member of the current group.
func (d *Declarer) AfterEachChild(fn func(child domain.Node) error) {
	d.childHook(domain.AfterEach, fn)
}

func (d *Declarer) childHook(kind domain.HookKind, fn func(domain.Node) error) {
	if fn == nil {
		d.fail(0, fmt.Errorf("%s: must provide a function", kind))
		return
	}
	d.current().PushHook(kind, func(_ context.Context, child domain.Node) error {
		return fn(child)
	})
}

// Filter restricts the members of the current group to those whose name
// matches pattern, a string or a *regexp.Regexp.
func (d *Declarer) Filter(pattern any) {
	if err := d.current().SetFilter(pattern); err != nil {
		d.fail(0, err)
	}
}

// Decl is the handle returned by test and group declarations.
type Decl struct {
	d    *Declarer
	node domain.Node
	test *domain.Test
	line int
}

// Catch makes the test expect an error. See assert.MatchError for the
// accepted values.
func (h *Decl) Catch(expected any) *Decl {
	if h.test == nil {
		if h.node != nil {
			h.d.fail(h.line, fmt.Errorf("Catch can only be used on tests"))
		}
		return h
	}
	match, err := assert.MatchError(expected)
	if err != nil {
		h.d.fail(h.line, err)
		return h
	}
	h.test.Catch = match
	return h
}

// CatchFunc makes the test expect an error accepted by fn.
func (h *Decl) CatchFunc(fn func(err error) bool) *Decl {
	if fn == nil {
		h.d.fail(h.line, fmt.Errorf("CatchFunc: must provide a function"))
		return h
	}
	return h.Catch(fn)
}

// Focus marks the declaration focused.
func (h *Decl) Focus() *Decl {
	if h.node != nil {
		domain.MarkFocused(h.node)
	}
	return h
}

// Exports returns the symbols of the testpass package bound to d.
func (d *Declarer) Exports() interp.Exports {
	return interp.Exports{
		ImportPath + "/" + ImportPath: {
			"Header":     reflect.ValueOf(d.Header),
			"Group":      reflect.ValueOf(d.Group),
			"FGroup":     reflect.ValueOf(d.FGroup),
			"XGroup":     reflect.ValueOf(d.XGroup),
			"Test":       reflect.ValueOf(d.Test),
			"TestErr":    reflect.ValueOf(d.TestErr),
			"FTest":      reflect.ValueOf(d.FTest),
			"XTest":      reflect.ValueOf(d.XTest),
			"BeforeAll":  reflect.ValueOf(d.BeforeAll),
			"BeforeEach": reflect.ValueOf(d.BeforeEach),
			"AfterEach":  reflect.ValueOf(d.AfterEach),
			"AfterAll":   reflect.ValueOf(d.AfterAll),
			"Filter":     reflect.ValueOf(d.Filter),

			"BeforeEachChild": reflect.ValueOf(d.BeforeEachChild),
			"AfterEachChild":  reflect.ValueOf(d.AfterEachChild),

			"T":          reflect.ValueOf((*domain.Controller)(nil)),
			"Node":       reflect.ValueOf((*domain.Node)(nil)),
			"Decl":       reflect.ValueOf((*Decl)(nil)),
			"ErrorShape": reflect.ValueOf((*assert.ErrorShape)(nil)),
		},
	}
}
