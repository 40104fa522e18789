package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parleydev/parley/internal/logging"
)

// SSEProcessor handles Server-Sent Events streams in the chat completions
// format: each "data:" line carries a JSON chunk with delta content, and
// the stream ends with a [DONE] marker.
type SSEProcessor struct {
	reader         *bufio.Reader
	contentBuilder strings.Builder
	citations      []string
	finalUsage     Usage
	model          string
	responseID     string
	trace          *logging.HTTPLogger
}

// NewSSEProcessor creates a new SSE stream processor
func NewSSEProcessor(r io.Reader) *SSEProcessor {
	return &SSEProcessor{
		reader: bufio.NewReader(r),
	}
}

// SetTrace enables per-chunk debug logging. A nil logger disables it.
func (p *SSEProcessor) SetTrace(trace *logging.HTTPLogger) {
	p.trace = trace
}

// Process reads and processes the SSE stream, calling onChunk for each
// content fragment as it arrives
func (p *SSEProcessor) Process(ctx context.Context, onChunk func(content string)) error {
	start := time.Now()
	chunkCount := 0
	totalBytes := 0
	defer func() {
		if p.trace != nil {
			p.trace.LogStreamEnd(time.Since(start), totalBytes, chunkCount)
		}
	}()

	for {
		// Check for context cancellation
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		chunkCount++
		totalBytes += len(data)
		if p.trace != nil {
			p.trace.LogStreamChunk([]byte(data), chunkCount)
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logging.DefaultLogger.Debug("skipping malformed stream chunk", logging.Fields{
				"error": err.Error(),
			})
			continue
		}

		// Capture response ID and model
		if chunk.ID != "" {
			p.responseID = chunk.ID
		}
		if chunk.Model != "" {
			p.model = chunk.Model
		}

		// Send content fragment and accumulate
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content := chunk.Choices[0].Delta.Content
			p.contentBuilder.WriteString(content)
			onChunk(content)
		}

		// Search providers send the cumulative citation list on each chunk
		if len(chunk.Citations) > 0 {
			p.citations = chunk.Citations
		}

		// Capture usage from final chunk
		if chunk.Usage.TotalTokens > 0 {
			p.finalUsage = chunk.Usage
		}
	}

	return nil
}

// Content returns the accumulated response text
func (p *SSEProcessor) Content() string {
	return p.contentBuilder.String()
}

// BuildMetadata constructs the final response metadata from accumulated data
func (p *SSEProcessor) BuildMetadata() *Metadata {
	return &Metadata{
		Model:     p.model,
		Citations: p.citations,
		Usage:     p.finalUsage,
	}
}

// EventStreamProcessor handles typed SSE event streams in the messages
// format: message_start carries the model and input token count, text
// arrives in content_block_delta events, output tokens in message_delta,
// and message_stop ends the stream.
type EventStreamProcessor struct {
	reader         *bufio.Reader
	contentBuilder strings.Builder
	model          string
	inputTokens    int
	outputTokens   int
	trace          *logging.HTTPLogger
}

// NewEventStreamProcessor creates a new typed event stream processor
func NewEventStreamProcessor(r io.Reader) *EventStreamProcessor {
	return &EventStreamProcessor{
		reader: bufio.NewReader(r),
	}
}

// SetTrace enables per-event debug logging. A nil logger disables it.
func (p *EventStreamProcessor) SetTrace(trace *logging.HTTPLogger) {
	p.trace = trace
}

// Process reads and processes the event stream, calling onChunk for each
// text fragment as it arrives
func (p *EventStreamProcessor) Process(ctx context.Context, onChunk func(content string)) error {
	start := time.Now()
	chunkCount := 0
	totalBytes := 0
	defer func() {
		if p.trace != nil {
			p.trace.LogStreamEnd(time.Since(start), totalBytes, chunkCount)
		}
	}()

	for {
		// Check for context cancellation
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Event type is repeated in the data payload, which is the one
		// we dispatch on
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		chunkCount++
		totalBytes += len(data)
		if p.trace != nil {
			p.trace.LogStreamChunk([]byte(data), chunkCount)
		}

		var event anthropicEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			logging.DefaultLogger.Debug("skipping malformed stream event", logging.Fields{
				"error": err.Error(),
			})
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				p.model = event.Message.Model
				p.inputTokens = event.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				p.contentBuilder.WriteString(event.Delta.Text)
				onChunk(event.Delta.Text)
			}
		case "message_delta":
			if event.Usage != nil {
				p.outputTokens = event.Usage.OutputTokens
			}
		case "message_stop":
			return nil
		case "error":
			if event.Error != nil {
				return fmt.Errorf("stream error: %s: %s", event.Error.Type, event.Error.Message)
			}
			return fmt.Errorf("stream error")
		}
	}

	return nil
}

// Content returns the accumulated response text
func (p *EventStreamProcessor) Content() string {
	return p.contentBuilder.String()
}

// BuildMetadata constructs the final response metadata from accumulated data
func (p *EventStreamProcessor) BuildMetadata() *Metadata {
	return &Metadata{
		Model: p.model,
		Usage: Usage{
			PromptTokens:     p.inputTokens,
			CompletionTokens: p.outputTokens,
			TotalTokens:      p.inputTokens + p.outputTokens,
		},
	}
}
