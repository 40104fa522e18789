// Package display holds the output side of the CLI: markdown rendering,
// progress spinners, and the styled one-liners the command layer prints.
package display

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/parleydev/parley/internal/chat"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	citeRefStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

var renderer *glamour.TermRenderer

// InitRenderer prepares the markdown renderer. Called once at startup when
// rendered output is enabled; without it ShowContentRendered falls back to
// plain text.
func InitRenderer() error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize markdown renderer: %w", err)
	}
	renderer = r
	return nil
}

// ShowContent prints response text as-is.
func ShowContent(content string) {
	fmt.Println(content)
}

// ShowContentRendered prints response text through the markdown renderer,
// falling back to plain output when rendering is unavailable.
func ShowContentRendered(content string) {
	if renderer == nil {
		ShowContent(content)
		return
	}
	out, err := renderer.Render(content)
	if err != nil {
		ShowContent(content)
		return
	}
	fmt.Print(out)
}

// ShowError prints a single-line error to stderr.
func ShowError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("Error:"), message)
}

// ShowWarning prints a single-line warning.
func ShowWarning(message string) {
	fmt.Printf("%s %s\n", warnStyle.Render("Warning:"), message)
}

// ShowReplyHeader prints the reference label line above an assistant reply.
func ShowReplyHeader(refID, model string) {
	fmt.Printf("%s %s\n", labelStyle.Render("["+refID+"]"), mutedStyle.Render(model))
}

// ShowCitations prints the numbered source list after a search reply.
func ShowCitations(citations []string) {
	if len(citations) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Sources:"))
	for i, c := range citations {
		fmt.Printf("  %s %s\n", citeRefStyle.Render(fmt.Sprintf("[%d]", i+1)), c)
	}
}

// ShowUsage prints token counts for the last turn.
func ShowUsage(prompt, completion, total int) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf("tokens: %d in, %d out, %d total", prompt, completion, total)))
}

// ShowChatList prints stored conversations, most recently updated first.
func ShowChatList(entries []chat.Entry) {
	if len(entries) == 0 {
		fmt.Println("No saved chats.")
		return
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n", titleStyle.Render(title), mutedStyle.Render(fmt.Sprintf("%s, %d messages, %s", e.Filename, e.MessageCount, e.UpdatedAt.Format("2006-01-02 15:04"))))
	}
}

// Spinner shows progress while a request is in flight.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a stopped spinner with the given message. It writes to
// stderr so spinner frames never mix into piped output.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr),
		spinner.WithColor("cyan"),
		spinner.WithSuffix(" "+message),
	)
	return &Spinner{s: s}
}

// Start begins the spinner animation.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop halts the animation and clears the spinner line.
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// UpdateMessage swaps the text shown beside the spinner.
func (sp *Spinner) UpdateMessage(message string) {
	sp.s.Suffix = " " + message
}
