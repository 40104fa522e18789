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

const (
	anthropicVersion = "2023-06-01"

	// The messages API requires max_tokens on every request
	anthropicDefaultMaxTokens = 4096
)

// anthropicRequest is the messages API request body
type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

// anthropicContent is one block of response content
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// anthropicUsage reports token counts in the messages API shape
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicResponse is the non-streaming messages API response body
type anthropicResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      anthropicUsage     `json:"usage"`
}

// anthropicEvent is one typed event from the streaming messages API
type anthropicEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Model string         `json:"model"`
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text,omitempty"`
		StopReason string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// anthropicErrorResponse is the messages API error envelope
type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// anthropicGateway speaks the Anthropic messages wire format.
type anthropicGateway struct {
	name       string
	cfg        profile.Provider
	credential string
	httpClient *http.Client
	httpLogger *logging.HTTPLogger
}

func newAnthropicGateway(name string, cfg profile.Provider, credential string, client *http.Client, httpLogger *logging.HTTPLogger) *anthropicGateway {
	return &anthropicGateway{
		name:       name,
		cfg:        cfg,
		credential: credential,
		httpClient: client,
		httpLogger: httpLogger,
	}
}

func (g *anthropicGateway) endpoint() string {
	return strings.TrimSuffix(g.cfg.BaseURL, "/") + "/v1/messages"
}

func (g *anthropicGateway) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return g.cfg.DefaultModel()
}

func (g *anthropicGateway) checkSearch(req Request) error {
	if req.Search && !g.cfg.Search {
		return fmt.Errorf("provider %s: %w", g.name, ErrSearchUnsupported)
	}
	return nil
}

func (g *anthropicGateway) marshalRequest(req Request, stream bool) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := anthropicRequest{
		Model:     g.model(req),
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  req.Messages,
		Stream:    stream,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return jsonData, nil
}

func (g *anthropicGateway) newRequest(ctx context.Context, jsonData []byte, stream bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.credential)
	req.Header.Set("anthropic-version", anthropicVersion)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (g *anthropicGateway) apiError(statusCode int, body []byte) *APIError {
	var errResp anthropicErrorResponse
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
func (g *anthropicGateway) Complete(ctx context.Context, req Request) (string, *Metadata, error) {
	if err := g.checkSearch(req); err != nil {
		return "", nil, err
	}

	jsonData, err := g.marshalRequest(req, false)
	if err != nil {
		return "", nil, err
	}

	// Use retry logic for transient failures
	resp, err := WithRetry(ctx, func() (*anthropicResponse, error) {
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

		var msgResp anthropicResponse
		if err := json.Unmarshal(body, &msgResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &msgResp, nil
	})
	if err != nil {
		return "", nil, err
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	meta := &Metadata{
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	if meta.Model == "" {
		meta.Model = g.model(req)
	}
	return content.String(), meta, nil
}

// Stream sends a streaming request, invoking onChunk per text fragment
func (g *anthropicGateway) Stream(ctx context.Context, req Request, onChunk func(content string)) (string, *Metadata, error) {
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

	processor := NewEventStreamProcessor(resp.Body)
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
func (g *anthropicGateway) Close() {}
