package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/parleydev/parley/internal/logging"
	"github.com/parleydev/parley/internal/profile"
)

// chatRequest is the chat completions request body
type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

// chatDelta is streaming delta content
type chatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// chatChoice is one response choice
type chatChoice struct {
	Index        int       `json:"index"`
	Delta        chatDelta `json:"delta,omitempty"`
	Message      Message   `json:"message,omitempty"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

// chatResponse is the chat completions response body. Streaming chunks use
// the same shape with Delta populated instead of Message. Search providers
// attach a top-level citations array.
type chatResponse struct {
	ID        string       `json:"id"`
	Model     string       `json:"model,omitempty"`
	Citations []string     `json:"citations,omitempty"`
	Choices   []chatChoice `json:"choices"`
	Usage     Usage        `json:"usage"`
}

// chatErrorResponse is the chat completions error envelope
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// openAIGateway speaks the chat completions wire format used by OpenAI and
// compatible providers (Perplexity, most local inference servers).
type openAIGateway struct {
	name       string
	cfg        profile.Provider
	credential string
	httpClient *http.Client
	httpLogger *logging.HTTPLogger
}

func newOpenAIGateway(name string, cfg profile.Provider, credential string, client *http.Client, httpLogger *logging.HTTPLogger) *openAIGateway {
	return &openAIGateway{
		name:       name,
		cfg:        cfg,
		credential: credential,
		httpClient: client,
		httpLogger: httpLogger,
	}
}

func (g *openAIGateway) endpoint() string {
	return strings.TrimSuffix(g.cfg.BaseURL, "/") + "/chat/completions"
}

func (g *openAIGateway) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return g.cfg.DefaultModel()
}

// checkSearch rejects a search request before any network call when the
// provider is not configured for web search.
func (g *openAIGateway) checkSearch(req Request) error {
	if req.Search && !g.cfg.Search {
		return fmt.Errorf("provider %s: %w", g.name, ErrSearchUnsupported)
	}
	return nil
}

func (g *openAIGateway) marshalRequest(req Request, stream bool) ([]byte, error) {
	messages := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.cfg.MaxTokens
	}

	body := chatRequest{
		Model:     g.model(req),
		Messages:  messages,
		MaxTokens: maxTokens,
		Stream:    stream,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return jsonData, nil
}

func (g *openAIGateway) newRequest(ctx context.Context, jsonData []byte, stream bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.credential)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (g *openAIGateway) apiError(statusCode int, body []byte) *APIError {
	var errResp chatErrorResponse
	errMsg := fmt.Sprintf("status code %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		errMsg = errResp.Error.Message
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s API error: %s", g.name, errMsg),
	}
}

// Complete sends a non-streaming request and returns the full response text
func (g *openAIGateway) Complete(ctx context.Context, req Request) (string, *Metadata, error) {
	if err := g.checkSearch(req); err != nil {
		return "", nil, err
	}

	jsonData, err := g.marshalRequest(req, false)
	if err != nil {
		return "", nil, err
	}

	// Use retry logic for transient failures
	resp, err := WithRetry(ctx, func() (*chatResponse, error) {
		httpReq, err := g.newRequest(ctx, jsonData, false)
		if err != nil {
			return nil, err
		}

		httpResp, err := g.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if httpResp.StatusCode != http.StatusOK {
			return nil, g.apiError(httpResp.StatusCode, body)
		}

		var chatResp chatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &chatResp, nil
	})
	if err != nil {
		return "", nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	meta := &Metadata{
		Model:     resp.Model,
		Citations: resp.Citations,
		Usage:     resp.Usage,
	}
	if meta.Model == "" {
		meta.Model = g.model(req)
	}
	return content, meta, nil
}

// Stream sends a streaming request, invoking onChunk per content fragment
func (g *openAIGateway) Stream(ctx context.Context, req Request, onChunk func(content string)) (string, *Metadata, error) {
	if err := g.checkSearch(req); err != nil {
		return "", nil, err
	}

	jsonData, err := g.marshalRequest(req, true)
	if err != nil {
		return "", nil, err
	}

	// Retry connection failures; once the stream starts there is no retry
	resp, err := WithStreamRetry(ctx, func() (*http.Response, error) {
		httpReq, err := g.newRequest(ctx, jsonData, true)
		if err != nil {
			return nil, err
		}

		httpResp, err := g.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}

		if httpResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(httpResp.Body)
			_ = httpResp.Body.Close()
			return nil, g.apiError(httpResp.StatusCode, body)
		}
		return httpResp, nil
	})
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	processor := NewSSEProcessor(resp.Body)
	processor.SetTrace(g.httpLogger)
	if err := processor.Process(ctx, onChunk); err != nil {
		return "", nil, fmt.Errorf("failed to process stream: %w", err)
	}

	meta := processor.BuildMetadata()
	if meta.Model == "" {
		meta.Model = g.model(req)
	}
	return processor.Content(), meta, nil
}

// Close is a no-op; the gateway holds no resources beyond the HTTP client
func (g *openAIGateway) Close() {}
