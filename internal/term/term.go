// Package term is the interaction port between the session core and the
// person at the keyboard. Core code depends on the Terminal interface; the
// Stdio implementation drives the standard streams plus huh forms for
// selections and confirmations.
package term

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("cancelled")

// Terminal is the interaction surface the session core depends on.
type Terminal interface {
	// PromptText shows a prompt and reads one line of input.
	PromptText(prompt string) (string, error)

	// Notify prints one line of informational output.
	Notify(message string)

	// PromptSelection shows a picker over options and returns the chosen
	// index. When allowCancel is set, backing out returns ErrCancelled.
	PromptSelection(title string, options []string, allowCancel bool) (int, error)

	// Confirm asks a yes/no question. Aborting counts as no.
	Confirm(prompt string) (bool, error)
}

// Ensure Stdio implements the Terminal interface
var _ Terminal = (*Stdio)(nil)

// Stdio implements Terminal over the standard streams.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio creates a Terminal bound to stdin and stdout.
func NewStdio() *Stdio {
	return &Stdio{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
}

// PromptText shows a prompt and reads one trimmed line of input.
func (s *Stdio) PromptText(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Notify prints one line of informational output.
func (s *Stdio) Notify(message string) {
	fmt.Fprintln(s.out, message)
}

// PromptSelection shows a picker over options and returns the chosen index.
func (s *Stdio) PromptSelection(title string, options []string, allowCancel bool) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("nothing to select from")
	}

	opts := make([]huh.Option[int], 0, len(options)+1)
	for i, o := range options {
		opts = append(opts, huh.NewOption(o, i))
	}
	if allowCancel {
		opts = append(opts, huh.NewOption("(cancel)", -1))
	}

	var choice int
	err := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&choice).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, ErrCancelled
		}
		return 0, fmt.Errorf("selection failed: %w", err)
	}
	if choice < 0 {
		return 0, ErrCancelled
	}
	return choice, nil
}

// Confirm asks a yes/no question.
func (s *Stdio) Confirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}
