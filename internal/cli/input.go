package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompt prints label and reads one trimmed line. A final line without a
// newline is still returned.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal, and as a
// plain line otherwise (pipes, tests).
func (a *App) promptPassword(label string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		line, err := a.prompt(label)
		return line, err
	}

	fmt.Fprintf(a.out, "%s: ", label)
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return string(pw), nil
}

// valueOrPrompt returns v when it is set and asks for it otherwise.
func (a *App) valueOrPrompt(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return a.prompt(label)
}

func newReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
