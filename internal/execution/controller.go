package execution

import (
	"context"
	"fmt"

	"testpass/internal/assert"
	"testpass/internal/domain"
)

// controller is the domain.Controller handed to a running test.
type controller struct {
	ctx     context.Context
	test    *domain.Test
	name    string
	capture *capture

	// calls counts the assertions made so far.
	calls int
}

var _ domain.Controller = (*controller)(nil)

func (c *controller) Eq(actual, expected any) {
	line := c.next()
	if assert.Equal(actual, expected) {
		return
	}
	message := fmt.Sprintf("Expected %s to be %s", assert.Format(actual), assert.Format(expected))
	if diff := assert.Diff(actual, expected); diff != "" {
		message += "\n" + diff
	}
	c.fail(line, message)
}

func (c *controller) Ne(actual, expected any) {
	line := c.next()
	if assert.Equal(actual, expected) {
		c.fail(line, fmt.Sprintf("Expected %s not to be %s", assert.Format(actual), assert.Format(expected)))
	}
}

func (c *controller) Assert(cond bool) {
	line := c.next()
	if !cond {
		c.fail(line, "Assertion failed")
	}
}

func (c *controller) Fail(message string) {
	c.fail(c.next(), message)
}

func (c *controller) Log(args ...any) {
	c.capture.log(args...)
}

func (c *controller) Name() string {
	return c.name
}

func (c *controller) Context() context.Context {
	return c.ctx
}

// next returns the source line of the assertion being made, or the line of
// the test when it is unknown.
func (c *controller) next() int {
	i := c.calls
	c.calls++
	if i < len(c.test.AssertLines) && c.test.AssertLines[i] > 0 {
		return c.test.AssertLines[i]
	}
	return c.test.Line
}

func (c *controller) fail(line int, message string) {
	c.test.AddFailure(domain.Failure{
		Line:    line,
		Message: message,
	})
}
