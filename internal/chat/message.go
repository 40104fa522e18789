// Package chat defines the conversation document model and its JSON file
// store. Documents are owned by the session while open and persisted only
// on explicit save calls.
package chat

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who produced a message.
type Role string

// Message roles
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleError:
		return true
	}
	return false
}

// Message is one entry in a conversation document. Content is stored as
// ordered lines. RefID is assigned while the document is loaded and is
// never part of the persisted form.
type Message struct {
	Role        Role              `json:"role"`
	Lines       []string          `json:"content"`
	Model       string            `json:"model,omitempty"`
	Citations   []string          `json:"citations,omitempty"`
	ErrorDetail map[string]string `json:"error_detail,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	RefID       string            `json:"-"`
}

// NewUserMessage builds a user message from raw input text.
func NewUserMessage(text string) Message {
	return Message{
		Role:      RoleUser,
		Lines:     strings.Split(text, "\n"),
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds an assistant message from a completed reply.
func NewAssistantMessage(text, model string, citations []string) Message {
	return Message{
		Role:      RoleAssistant,
		Lines:     strings.Split(text, "\n"),
		Model:     model,
		Citations: citations,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage builds an error-role message recording a failed turn.
func NewErrorMessage(text string, detail map[string]string) Message {
	return Message{
		Role:        RoleError,
		Lines:       strings.Split(text, "\n"),
		ErrorDetail: detail,
		Timestamp:   time.Now(),
	}
}

// Text returns the message content as a single string.
func (m Message) Text() string {
	return strings.Join(m.Lines, "\n")
}

// Metadata describes a conversation document.
type Metadata struct {
	Title        string    `json:"title,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Document is an ordered sequence of messages plus metadata.
type Document struct {
	Metadata Metadata  `json:"metadata"`
	Messages []Message `json:"messages"`
}

// NewDocument returns an empty document with the given title.
func NewDocument(title string) *Document {
	return &Document{Metadata: Metadata{Title: title}}
}

// Len returns the number of messages.
func (d *Document) Len() int {
	return len(d.Messages)
}

// Append adds messages to the end of the document.
func (d *Document) Append(msgs ...Message) {
	d.Messages = append(d.Messages, msgs...)
}

// Last returns the final message, if any.
func (d *Document) Last() (Message, bool) {
	if len(d.Messages) == 0 {
		return Message{}, false
	}
	return d.Messages[len(d.Messages)-1], true
}

// PopLast removes and returns the final message, if any.
func (d *Document) PopLast() (Message, bool) {
	if len(d.Messages) == 0 {
		return Message{}, false
	}
	last := d.Messages[len(d.Messages)-1]
	d.Messages = d.Messages[:len(d.Messages)-1]
	return last, true
}

// ReplaceRange substitutes the messages in [start, end) with repl.
func (d *Document) ReplaceRange(start, end int, repl ...Message) error {
	if start < 0 || end > len(d.Messages) || start > end {
		return fmt.Errorf("invalid replacement range [%d, %d) for %d messages", start, end, len(d.Messages))
	}
	out := make([]Message, 0, len(d.Messages)-(end-start)+len(repl))
	out = append(out, d.Messages[:start]...)
	out = append(out, repl...)
	out = append(out, d.Messages[end:]...)
	d.Messages = out
	return nil
}

// CloneMessages returns a shallow copy of the message slice, safe to hold
// across later document mutations.
func (d *Document) CloneMessages() []Message {
	out := make([]Message, len(d.Messages))
	copy(out, d.Messages)
	return out
}
