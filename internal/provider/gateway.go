// Package provider implements the gateway the session core dispatches
// conversation turns through. It speaks two wire formats (OpenAI-style
// chat completions and Anthropic messages), processes SSE streams, retries
// transient failures before a stream starts, and caches constructed
// clients per credential and timeout.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/parleydev/parley/internal/chat"
	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/profile"
)

// Message is one turn in a provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	Search       bool
	MaxTokens    int
}

// Usage reports token counts for one completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Metadata is populated once a response completes.
type Metadata struct {
	Model     string
	Citations []string
	Usage     Usage
}

// Gateway sends conversation turns to one configured provider.
type Gateway interface {
	// Stream sends a request, invoking onChunk for each content fragment
	// as it arrives, and returns the accumulated text plus metadata
	// populated after the stream completes.
	Stream(ctx context.Context, req Request, onChunk func(content string)) (string, *Metadata, error)

	// Complete sends a non-streaming request, used for helper tasks such
	// as title and summary generation.
	Complete(ctx context.Context, req Request) (string, *Metadata, error)

	// Close releases any resources held by the client.
	Close()
}

// Ensure both adapters implement the Gateway interface
var (
	_ Gateway = (*openAIGateway)(nil)
	_ Gateway = (*anthropicGateway)(nil)
)

// New constructs a gateway for one configured provider. The request
// timeout is baked into the HTTP client, which is why cached instances
// must be discarded when the session timeout changes.
func New(name string, cfg profile.Provider, timeout time.Duration, debug bool) (Gateway, error) {
	credential, err := cfg.Credential()
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider %s: base_url not configured", name)
	}

	transport := http.DefaultTransport
	var httpLogger *logging.HTTPLogger
	if debug {
		httpLogger = logging.NewHTTPLogger(logging.DefaultLogger)
		transport = logging.NewLoggingRoundTripper(http.DefaultTransport, httpLogger, true)
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	switch cfg.Kind {
	case profile.KindOpenAI:
		return newOpenAIGateway(name, cfg, credential, client, httpLogger), nil
	case profile.KindAnthropic:
		return newAnthropicGateway(name, cfg, credential, client, httpLogger), nil
	}
	return nil, fmt.Errorf("provider %s: %w %q", name, profile.ErrUnknownKind, cfg.Kind)
}

// MessagesFromChat converts conversation messages to request messages.
// Error-role messages are local bookkeeping and never sent upstream.
func MessagesFromChat(msgs []chat.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleUser, chat.RoleAssistant:
			out = append(out, Message{Role: string(m.Role), Content: m.Text()})
		}
	}
	return out
}
