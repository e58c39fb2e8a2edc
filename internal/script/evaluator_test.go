package script

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testpass/internal/domain"
	"testpass/internal/execution"
)

const mathScript = `//go:build testpass

package main

import (
	"errors"
	"strings"

	tp "testpass"
)

func init() {
	tp.Header("math")
	tp.Group("numbers", func() {
		tp.Test("adds", func(t tp.T) {
			t.Eq(1+1, 2)
		})
		tp.Test("joins", func(t tp.T) {
			t.Log("joining")
			t.Eq(strings.Join([]string{"a", "b"}, ","), "a,c")
		})
		tp.TestErr("throws", func(t tp.T) error {
			return errors.New("boom: bad input")
		}).Catch("boom")
	})
}
`

func evaluate(t *testing.T, files map[string]string, name string) (*domain.File, *domain.Group, error) {
	t.Helper()
	root := writeProject(t, files)
	host, err := NewHost(root)
	require.NoError(t, err)

	top := domain.NewTop()
	file := domain.NewFile(filepath.Join(root, name))
	file.Group = domain.NewGroup("", top, file)
	top.PushGroup(file.Group)

	err = NewEvaluator(host, &bytes.Buffer{}, nil).Evaluate(context.Background(), file)
	return file, top, err
}

func TestEvaluator_DeclaresAndRuns(t *testing.T) {
	file, top, err := evaluate(t, map[string]string{
		"go.mod":     "module example.com/demo\n",
		"math_tp.go": mathScript,
	}, "math_tp.go")
	require.NoError(t, err)

	assert.Equal(t, "math", file.Header)
	tests := file.Group.Tests()
	require.Len(t, tests, 3)
	assert.Equal(t, 15, tests[0].Line)
	assert.NotNil(t, tests[2].Catch)

	result, err := execution.NewRunner(top, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 3, result.TestCount)
	assert.Equal(t, 2, result.PassCount)
	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "numbers joins", failed[0].Name)
	assert.Equal(t, []string{"joining"}, failed[0].Logs)
	assert.Equal(t, 20, failed[0].Failures[0].Line)
}

func TestEvaluator_SyntaxError(t *testing.T) {
	_, _, err := evaluate(t, map[string]string{
		"bad_tp.go": "package main\n\nfunc init() {\n",
	}, "bad_tp.go")

	assert.Error(t, err)
}

func TestEvaluator_DeclarationError(t *testing.T) {
	_, _, err := evaluate(t, map[string]string{
		"dup_tp.go": `package main

import tp "testpass"

func init() {
	tp.Filter("a")
	tp.Filter("b")
}
`,
	}, "dup_tp.go")

	var declErr *DeclarationError
	require.ErrorAs(t, err, &declErr)
	assert.Contains(t, declErr.Error(), "dup_tp.go")
}

func TestEvaluator_MissingFile(t *testing.T) {
	_, _, err := evaluate(t, map[string]string{}, "absent_tp.go")

	assert.Error(t, err)
}

func TestEvaluator_ChildHooks(t *testing.T) {
	_, top, err := evaluate(t, map[string]string{
		"hooks_tp.go": `//go:build testpass

package main

import (
	"errors"

	tp "testpass"
)

func init() {
	tp.BeforeEachChild(func(child tp.Node) error {
		if child.ID() == "needs fixture" {
			return errors.New("fixture missing")
		}
		return nil
	})
	tp.Test("plain", func(t tp.T) {})
	tp.Test("needs fixture", func(t tp.T) {})
}
`,
	}, "hooks_tp.go")
	require.NoError(t, err)

	result, err := execution.NewRunner(top, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.PassCount)
	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "needs fixture", failed[0].Name)
	assert.EqualError(t, failed[0].Failures[0].Err, "fixture missing")
}
