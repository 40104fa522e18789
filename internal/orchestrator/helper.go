package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parleydev/parley/internal/action"
	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/provider"
)

// Helper-task prompts. These run through Complete on the helper model, so
// a cheap fast model can serve them regardless of the chat provider.
const (
	titleInstruction = "Write a title of at most six words for this conversation. Reply with the title only, no quotes."

	summaryInstruction = "Summarize this conversation in at most five sentences. Cover what was asked and what was concluded. Reply with the summary only."

	// titleTranscriptLimit caps how much of the conversation the title
	// prompt carries; the opening exchanges are what name a chat.
	titleTranscriptLimit = 6
)

// helperGateway resolves the helper provider through the shared cache.
func (o *Orchestrator) helperGateway() (provider.Gateway, error) {
	name := o.state.HelperProvider()
	cfg, err := o.prof.Provider(name)
	if err != nil {
		return nil, err
	}
	return o.cache.Get(name, cfg, o.state.Timeout())
}

// GenerateTitle asks the helper model to title the open conversation.
func (o *Orchestrator) GenerateTitle(ctx context.Context) (string, error) {
	doc := o.state.Document()
	if doc == nil || doc.Len() == 0 {
		return "", errors.New("no conversation to title")
	}
	text, err := o.completeHelper(ctx, titleInstruction, transcript(doc.Messages, titleTranscriptLimit))
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(text), `"`)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if title == "" {
		return "", errors.New("helper returned an empty title")
	}
	return title, nil
}

// GenerateSummary asks the helper model to summarize the open conversation
// and stores the result in the chat metadata.
func (o *Orchestrator) GenerateSummary(ctx context.Context) (string, error) {
	doc := o.state.Document()
	if doc == nil || doc.Len() == 0 {
		return "", errors.New("no conversation to summarize")
	}
	text, err := o.completeHelper(ctx, summaryInstruction, transcript(doc.Messages, 0))
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		return "", errors.New("helper returned an empty summary")
	}
	doc.Metadata.Summary = summary
	if err := o.persistOpen(); err != nil {
		return "", err
	}
	return summary, nil
}

// Summarize runs summary generation as a command outcome.
func (o *Orchestrator) Summarize(ctx context.Context) (action.Action, error) {
	summary, err := o.GenerateSummary(ctx)
	if err != nil {
		return nil, err
	}
	return action.Print{Message: summary}, nil
}

func (o *Orchestrator) completeHelper(ctx context.Context, instruction, transcript string) (string, error) {
	gw, err := o.helperGateway()
	if err != nil {
		return "", err
	}
	req := provider.Request{
		Model: o.state.HelperModel(),
		Messages: []provider.Message{{
			Role:    "user",
			Content: instruction + "\n\n" + transcript,
		}},
	}
	text, _, err := gw.Complete(ctx, req)
	return text, err
}

// transcript flattens messages into role-prefixed lines. limit > 0 keeps
// only the opening messages.
func transcript(msgs []chat.Message, limit int) string {
	var b strings.Builder
	for i, m := range msgs {
		if limit > 0 && i >= limit {
			break
		}
		if m.Role == chat.RoleError {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text())
	}
	return b.String()
}

// SystemPromptText resolves the active system prompt: the open document's
// reference wins over the session's.
func (o *Orchestrator) SystemPromptText() string {
	name := o.state.SystemPrompt()
	if doc := o.state.Document(); doc != nil && doc.Metadata.SystemPrompt != "" {
		name = doc.Metadata.SystemPrompt
	}
	text, err := o.prof.SystemPromptText(name)
	if err != nil {
		// A stale reference in stored metadata must not block the chat.
		return ""
	}
	return text
}
