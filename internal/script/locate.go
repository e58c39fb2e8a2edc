package script

import (
	"go/ast"
	"go/token"
	"strconv"
)

// declLines holds the source lines of the test and group declarations of a
// script, in source order. The declarer consumes them in call order, which
// matches as long as declarations are not made in loops. asserts holds the
// assertion lines of each test, indexed like tests.
type declLines struct {
	tests   []int
	asserts [][]int
	groups  []int

	testIndex  int
	groupIndex int
}

func (l *declLines) nextTest() (line int, asserts []int) {
	i := l.testIndex
	if i < len(l.asserts) {
		asserts = l.asserts[i]
	}
	return next(l.tests, &l.testIndex), asserts
}

func (l *declLines) nextGroup() int {
	return next(l.groups, &l.groupIndex)
}

func next(lines []int, index *int) int {
	i := *index
	*index++
	if i < len(lines) {
		return lines[i]
	}
	return 0
}

var (
	testDecls   = map[string]bool{"Test": true, "TestErr": true, "FTest": true, "XTest": true}
	groupDecls  = map[string]bool{"Group": true, "FGroup": true, "XGroup": true}
	assertCalls = map[string]bool{"Eq": true, "Ne": true, "Assert": true, "Fail": true}
)

// locate collects the declaration lines of a parsed script.
func locate(fset *token.FileSet, file *ast.File) *declLines {
	lines := &declLines{}
	name := importName(file)
	if name == "" {
		return lines
	}

	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok || pkg.Name != name {
			return true
		}
		line := fset.Position(call.Pos()).Line
		switch {
		case testDecls[sel.Sel.Name]:
			lines.tests = append(lines.tests, line)
			var asserts []int
			if n := len(call.Args); n > 0 {
				if lit, ok := call.Args[n-1].(*ast.FuncLit); ok {
					asserts = assertLines(fset, lit)
				}
			}
			lines.asserts = append(lines.asserts, asserts)
		case groupDecls[sel.Sel.Name]:
			lines.groups = append(lines.groups, line)
		}
		return true
	})
	return lines
}

// assertLines returns the lines of the assertions a test function literal
// makes as plain statements of its body. It returns nil when an assertion
// sits in a loop, branch or closure, where calls no longer follow source
// order.
func assertLines(fset *token.FileSet, lit *ast.FuncLit) []int {
	params := lit.Type.Params.List
	if len(params) != 1 || len(params[0].Names) != 1 {
		return nil
	}
	name := params[0].Names[0].Name
	isAssert := func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return false
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !assertCalls[sel.Sel.Name] {
			return false
		}
		recv, ok := sel.X.(*ast.Ident)
		return ok && recv.Name == name
	}

	total := 0
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		if isAssert(n) {
			total++
		}
		return true
	})

	var lines []int
	for _, stmt := range lit.Body.List {
		if expr, ok := stmt.(*ast.ExprStmt); ok && isAssert(expr.X) {
			lines = append(lines, fset.Position(expr.Pos()).Line)
		}
	}
	if total == 0 || len(lines) != total {
		return nil
	}
	return lines
}

// importName returns the local name of the testpass import, or "" when the
// script does not import it.
func importName(file *ast.File) string {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != ImportPath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return ImportPath
	}
	return ""
}
