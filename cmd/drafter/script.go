package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// fileSource replays user input from a script file, one line per round. It
// echoes each prompt and line so a scripted run reads like an interactive
// one. The session ends with ErrInputClosed if the script runs out before a
// save succeeds.
type fileSource struct {
	lines []string
	out   io.Writer
	idx   int
}

func newFileSource(path string, out io.Writer) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	// A trailing newline is a line terminator, not an empty final input.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return &fileSource{lines: lines, out: out}, nil
}

func (f *fileSource) Next(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.idx >= len(f.lines) {
		return "", io.EOF
	}
	line := f.lines[f.idx]
	f.idx++
	fmt.Fprint(f.out, promptStyle.Render(strings.TrimRight(prompt, " "))+" ")
	fmt.Fprintln(f.out, line)
	return line, nil
}
