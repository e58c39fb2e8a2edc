package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"testpass/internal/domain"
	"testpass/internal/storage"
)

// ErrorViewer displays test failures in an interactive TUI
type ErrorViewer struct {
	storage storage.Storage
	logger  *zap.Logger
}

var _ Viewer = (*ErrorViewer)(nil)

// NewErrorViewer creates a new ErrorViewer persisting resolved markers to st
func NewErrorViewer(st storage.Storage, logger *zap.Logger) *ErrorViewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorViewer{
		storage: st,
		logger:  logger,
	}
}

// View displays test failures in an interactive TUI. Toggling a resolved
// marker writes the whole output back through storage.
func (ev *ErrorViewer) View(ctx context.Context, results *domain.TestResultsOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	b := newFailureBrowser(results)
	b.onToggle = func() {
		if err := ev.storage.SaveOutput(ctx, results); err != nil {
			ev.logger.Warn("failed to save resolved marker", zap.Error(err))
		}
	}

	if err := b.app.SetRoot(b.layout(), true).SetFocus(b.list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

const browserKeys = "↑↓ navigate, [yellow]R[white] resolve, [yellow]N[white] next unresolved, → details, ← back, Ctrl+C exit"

// failureBrowser is the failure list on the left and the selected failure on
// the right. Resolved markers live on the failures themselves.
type failureBrowser struct {
	results *domain.TestResultsOutput

	app     *tview.Application
	list    *tview.List
	header  *tview.TextView
	stats   *tview.TextView
	details *tview.TextView

	onToggle func()
}

func newFailureBrowser(results *domain.TestResultsOutput) *failureBrowser {
	b := &failureBrowser{
		results: results,
		app:     tview.NewApplication(),
		list: tview.NewList().
			ShowSecondaryText(false).
			SetHighlightFullLine(true),
		header: tview.NewTextView().
			SetTextAlign(tview.AlignCenter).
			SetDynamicColors(true),
		stats: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		details: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(true).
			SetWordWrap(true),
	}

	for i, failure := range results.Details {
		b.list.AddItem(listItemText(failure, i+1, failure.Resolved), "", 0, nil)
	}
	b.list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	b.list.SetInputCapture(b.listKey)
	b.details.SetInputCapture(b.detailsKey)
	b.list.SetChangedFunc(func(int, string, string, rune) { b.show() })

	b.header.SetText(headerText(results.Details))
	b.show()
	return b
}

func (b *failureBrowser) layout() tview.Primitive {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.stats, 3, 0, false).
		AddItem(tview.NewFlex().
			AddItem(b.details, 0, 1, false).
			AddItem(tview.NewBox(), 2, 0, false), 0, 1, false)

	body := tview.NewFlex().
		AddItem(b.list, 0, 1, true).
		AddItem(right, 0, 2, false)

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.header, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(body, 0, 1, true)
}

// show renders the selected failure into the right-hand panes.
func (b *failureBrowser) show() {
	i := b.list.GetCurrentItem()
	if i < 0 || i >= len(b.results.Details) {
		return
	}
	failure := b.results.Details[i]
	b.stats.SetText(formatFailureStats(failure, i+1))
	b.details.SetText(formatFailureDetails(failure)).ScrollToBeginning()
}

// toggle flips the resolved marker of failure i and redraws what depends on it.
func (b *failureBrowser) toggle(i int) {
	if i < 0 || i >= len(b.results.Details) {
		return
	}
	failure := &b.results.Details[i]
	failure.Resolved = !failure.Resolved
	b.list.SetItemText(i, listItemText(*failure, i+1, failure.Resolved), "")
	b.header.SetText(headerText(b.results.Details))
	if b.onToggle != nil {
		b.onToggle()
	}
}

func (b *failureBrowser) listKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter, tcell.KeyRight:
		b.app.SetFocus(b.details)
		return nil
	case tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'r', 'R':
			b.toggle(b.list.GetCurrentItem())
			return nil
		case 'n', 'N':
			if i := nextUnresolved(b.results.Details, b.list.GetCurrentItem()); i >= 0 {
				b.list.SetCurrentItem(i)
			}
			return nil
		}
	}
	return event
}

func (b *failureBrowser) detailsKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft, tcell.KeyEsc:
		b.app.SetFocus(b.list)
		return nil
	case tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	}
	return event
}

// headerText is the title line: failure counts followed by the key help.
func headerText(failures []domain.TestFailure) string {
	unresolved := 0
	for _, f := range failures {
		if !f.Resolved {
			unresolved++
		}
	}
	return fmt.Sprintf(" %d failures, %d unresolved | %s ", len(failures), unresolved, browserKeys)
}

// nextUnresolved returns the first unresolved failure after from, wrapping
// around. It returns -1 when every failure is resolved.
func nextUnresolved(failures []domain.TestFailure, from int) int {
	n := len(failures)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		if !failures[i].Resolved {
			return i
		}
	}
	return -1
}

// listItemText is the list entry of a failure. Resolved entries are greyed
// out.
func listItemText(failure domain.TestFailure, number int, resolved bool) string {
	testName := failure.TestName
	if testName == "" {
		testName = fmt.Sprintf("Test %d", number)
	}
	testName = tview.Escape(testName)
	if resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", number, testName)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", number, testName)
}

// formatFailureDetails formats a test failure for display using tview color tags ([red], [cyan], etc.)
func formatFailureDetails(failure domain.TestFailure) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "[red]✗ Test: %s[white]\n\n", tview.Escape(failure.TestName))

	fmt.Fprintf(&builder, "[cyan]File: %s[white]\n", tview.Escape(failure.FilePath))
	if failure.FilePath != "" && failure.Line > 0 {
		fmt.Fprintf(&builder, "[yellow]Location: %s:%d[white]\n", tview.Escape(failure.FilePath), failure.Line)
	}
	builder.WriteString("\n")

	if failure.Message != "" {
		fmt.Fprintf(&builder, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}

	// The first error is the message; only the rest are listed.
	if len(failure.Errors) > 1 {
		builder.WriteString("[yellow]Other Failures:[white]\n")
		for _, e := range failure.Errors[1:] {
			fmt.Fprintf(&builder, "  %s\n", tview.Escape(e))
		}
		builder.WriteString("\n")
	}

	if len(failure.Logs) > 0 {
		builder.WriteString("[yellow]Output:[white]\n")
		for i, line := range failure.Logs {
			if i == 20 {
				fmt.Fprintf(&builder, "  [gray]... and %d more lines[white]\n", len(failure.Logs)-20)
				break
			}
			fmt.Fprintf(&builder, "  %s\n", tview.Escape(line))
		}
	}

	return builder.String()
}

// formatFailureStats formats the stats header for a test failure
func formatFailureStats(failure domain.TestFailure, number int) string {
	path := failure.FilePath
	if path == "" {
		path = "Unknown path"
	}

	testCase := failure.TestName
	if testCase == "" {
		testCase = fmt.Sprintf("Test %d", number)
	}

	return fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]\n", tview.Escape(path), tview.Escape(testCase))
}
