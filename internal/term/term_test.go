package term

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func testStdio(input string) (*Stdio, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Stdio{
		in:  bufio.NewReader(strings.NewReader(input)),
		out: out,
	}, out
}

func TestStdio_PromptText(t *testing.T) {
	s, out := testStdio("  hello world  \n")

	got, err := s.PromptText("name: ")
	if err != nil {
		t.Fatalf("PromptText() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("PromptText() = %q, want %q", got, "hello world")
	}
	if out.String() != "name: " {
		t.Errorf("prompt output = %q, want %q", out.String(), "name: ")
	}
}

func TestStdio_PromptText_NoTrailingNewline(t *testing.T) {
	s, _ := testStdio("final line")

	got, err := s.PromptText("> ")
	if err != nil {
		t.Fatalf("PromptText() error = %v", err)
	}
	if got != "final line" {
		t.Errorf("PromptText() = %q, want %q", got, "final line")
	}
}

func TestStdio_PromptText_EOF(t *testing.T) {
	s, _ := testStdio("")

	_, err := s.PromptText("> ")
	if err == nil {
		t.Error("PromptText() expected error on empty input, got nil")
	}
}

func TestStdio_Notify(t *testing.T) {
	s, out := testStdio("")

	s.Notify("saved")

	if out.String() != "saved\n" {
		t.Errorf("Notify() output = %q, want %q", out.String(), "saved\n")
	}
}

func TestStdio_PromptSelection_NoOptions(t *testing.T) {
	s, _ := testStdio("")

	_, err := s.PromptSelection("pick", nil, false)
	if err == nil {
		t.Error("PromptSelection() expected error for empty options, got nil")
	}
}
