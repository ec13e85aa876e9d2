package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/martinemde/drafter/draftloop"
)

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// previewLimit caps how much action output is echoed to the console. The
// update action returns the whole draft, which gets long fast.
const previewLimit = 400

// console renders session events for an interactive terminal.
type console struct {
	out   io.Writer
	width int
}

func newConsole(out io.Writer) *console {
	width := 80
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return &console{out: out, width: width}
}

func (c *console) render(event draftloop.SessionEvent) {
	switch event.Kind {
	case draftloop.EventAssistantReply:
		if text, _ := event.Data["text"].(string); text != "" {
			fmt.Fprintln(c.out, assistantStyle.Render(wordwrap.String(text, c.width)))
		}
	case draftloop.EventActionEnd:
		name, _ := event.Data["action"].(string)
		status, _ := event.Data["status"].(string)
		output, _ := event.Data["output"].(string)
		line := fmt.Sprintf("[%s] %s", name, clip(output, previewLimit))
		style := successStyle
		if status != string(draftloop.StatusSuccess) {
			style = failureStyle
		}
		fmt.Fprintln(c.out, style.Render(wordwrap.String(line, c.width)))
	case draftloop.EventContextWarning, draftloop.EventActionLoopWarning:
		if msg, _ := event.Data["message"].(string); msg != "" {
			fmt.Fprintln(c.out, warnStyle.Render(msg))
		}
	case draftloop.EventSessionEnd:
		rounds := event.Data["rounds"]
		fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("Session finished after %v round(s).", rounds)))
	}
}

// clip shortens long output with a head/tail split so both the opening and
// the closing of the text stay visible.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	half := max / 2
	omitted := len(s) - 2*half
	return s[:half] + fmt.Sprintf(" [... %d characters omitted ...] ", omitted) + s[len(s)-half:]
}

type readResult struct {
	line string
	err  error
}

// consoleSource reads user input lines from an interactive terminal. Reads
// happen on a pump goroutine so a cancelled context can interrupt a round
// that is waiting at the prompt.
type consoleSource struct {
	in    io.Reader
	out   io.Writer
	lines chan readResult
	start sync.Once
}

func newConsoleSource(in io.Reader, out io.Writer) *consoleSource {
	return &consoleSource{in: in, out: out, lines: make(chan readResult)}
}

func (c *consoleSource) Next(ctx context.Context, prompt string) (string, error) {
	c.start.Do(func() {
		go func() {
			scanner := bufio.NewScanner(c.in)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				c.lines <- readResult{line: scanner.Text()}
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			c.lines <- readResult{err: err}
			close(c.lines)
		}()
	})

	fmt.Fprint(c.out, promptStyle.Render(strings.TrimRight(prompt, " "))+" ")

	select {
	case res, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return res.line, nil
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	}
}
