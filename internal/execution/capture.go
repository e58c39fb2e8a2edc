package execution

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console is the writer test code prints to. Output goes to the active
// capture while a test runs and to the underlying writer otherwise.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	target io.Writer
}

// NewConsole creates a Console writing to out when nothing captures.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil {
		return c.target.Write(p)
	}
	return c.out.Write(p)
}

// redirect sends output to w until the returned func is called.
func (c *Console) redirect(w io.Writer) func() {
	c.mu.Lock()
	prev := c.target
	c.target = w
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.target = prev
		c.mu.Unlock()
	}
}

// capture collects the output of one test and its Each hooks.
type capture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *capture) log(args ...any) {
	_, _ = fmt.Fprintln(c, args...)
}

// lines returns the captured output split into lines.
func (c *capture) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := strings.TrimRight(c.buf.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
