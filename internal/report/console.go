// Package report renders run progress and the final summary to the terminal.
// It consumes the scheduler's event stream; the scheduler itself never writes
// to the console.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelbuild/kestrel/internal/runner"
	"github.com/kestrelbuild/kestrel/internal/task"
)

// ColorSuccess represents successful tasks (green).
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorError represents failed tasks (red).
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorWarning represents skips caused by upstream failures or aborts (amber).
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorInfo represents in-flight tasks (blue).
var ColorInfo = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// ColorMuted is a subdued foreground for secondary text and quiet skips.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// styles holds the pre-built lipgloss styles for console output.
type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	running lipgloss.Style
	muted   lipgloss.Style
	name    lipgloss.Style
	header  lipgloss.Style
}

func newStyles() styles {
	return styles{
		success: lipgloss.NewStyle().Foreground(ColorSuccess),
		failure: lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		warning: lipgloss.NewStyle().Foreground(ColorWarning),
		running: lipgloss.NewStyle().Foreground(ColorInfo),
		muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		name:    lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// Console renders scheduler events and the final summary as plain lines.
// It is safe for a single consumer goroutine; the scheduler feeds it through
// a buffered event channel.
type Console struct {
	w        io.Writer
	progress bool
	styles   styles
}

// NewConsole returns a Console writing to w. When progress is false, per-task
// lifecycle lines are suppressed and only the summary is printed.
func NewConsole(w io.Writer, progress bool) *Console {
	return &Console{w: w, progress: progress, styles: newStyles()}
}

// Stream consumes events until the channel is closed. Call it from its own
// goroutine and close the channel after the run returns.
func (c *Console) Stream(events <-chan runner.Event) {
	for ev := range events {
		c.render(ev)
	}
}

func (c *Console) render(ev runner.Event) {
	if !c.progress {
		return
	}
	switch ev.Type {
	case runner.EventTaskStarted:
		fmt.Fprintf(c.w, "%s %s\n", c.styles.running.Render("»"), ev.Task)
	case runner.EventTaskSucceeded:
		fmt.Fprintf(c.w, "%s %s\n", c.styles.success.Render("✓"), ev.Task)
	case runner.EventTaskFailed:
		line := fmt.Sprintf("%s %s", c.styles.failure.Render("✗"), ev.Task)
		if ev.Error != "" {
			line += " " + c.styles.muted.Render("("+ev.Error+")")
		}
		fmt.Fprintln(c.w, line)
	case runner.EventTaskSkipped:
		c.renderSkip(ev)
	}
}

func (c *Console) renderSkip(ev runner.Event) {
	switch ev.Reason {
	case string(task.SkipUpToDate):
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.muted.Render("-"), ev.Task, c.styles.muted.Render("(up to date)"))
	case string(task.SkipUpstreamFailure):
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.warning.Render("↷"), ev.Task, c.styles.muted.Render("(upstream failed)"))
	case string(task.SkipAborted):
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.warning.Render("↷"), ev.Task, c.styles.muted.Render("(aborted)"))
	default:
		fmt.Fprintf(c.w, "%s %s\n", c.styles.muted.Render("-"), ev.Task)
	}
}

// PrintSummary writes the end-of-run summary: one line per non-trivial result
// plus aggregate counts and wall time.
func (c *Console) PrintSummary(rep *runner.Report) {
	if rep == nil {
		return
	}

	failures := rep.Failures()
	if len(failures) > 0 {
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, c.styles.header.Render("Failures"))
		for _, res := range failures {
			c.printFailure(res)
		}
	}

	counts := rep.CountByState()
	parts := fmt.Sprintf("%d succeeded, %d failed, %d skipped",
		counts[task.StateSucceeded], counts[task.StateFailed], counts[task.StateSkipped])

	fmt.Fprintln(c.w)
	switch {
	case rep.Aborted:
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.warning.Render("Run aborted."), parts,
			c.styles.muted.Render("in "+formatDuration(rep.Duration)))
	case rep.Success():
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.success.Render("Run succeeded."), parts,
			c.styles.muted.Render("in "+formatDuration(rep.Duration)))
	default:
		fmt.Fprintf(c.w, "%s %s %s\n",
			c.styles.failure.Render("Run failed."), parts,
			c.styles.muted.Render("in "+formatDuration(rep.Duration)))
	}
}

func (c *Console) printFailure(res *runner.TaskResult) {
	label := c.styles.name.Render(res.Name)
	switch {
	case res.State == task.StateSkipped:
		fmt.Fprintf(c.w, "  %s %s skipped: %s\n",
			c.styles.warning.Render("↷"), label, res.Reason)
	case res.Crashed:
		fmt.Fprintf(c.w, "  %s %s worker crashed: %s\n",
			c.styles.failure.Render("✗"), label, res.Error)
	default:
		fmt.Fprintf(c.w, "  %s %s exit %d: %s\n",
			c.styles.failure.Render("✗"), label, res.ExitCode, res.Error)
		if res.Stderr != "" {
			fmt.Fprint(c.w, indent(res.Stderr))
		}
	}
}

func indent(s string) string {
	out := ""
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out += "      " + s[start:i] + "\n"
			}
			start = i + 1
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
