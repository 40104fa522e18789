package provider

import (
	"context"
	"strings"
	"testing"
)

func TestSSEProcessor_Process_SimpleContent(t *testing.T) {
	input := `data: {"id":"test-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}

data: {"id":"test-1","choices":[{"index":0,"delta":{"content":" World"}}]}

data: [DONE]
`
	processor := NewSSEProcessor(strings.NewReader(input))

	var chunks []string
	err := processor.Process(context.Background(), func(content string) {
		chunks = append(chunks, content)
	})

	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	if len(chunks) != 2 {
		t.Errorf("Process() got %d chunks, want 2", len(chunks))
	}

	if processor.Content() != "Hello World" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hello World")
	}
}

func TestSSEProcessor_Process_Citations(t *testing.T) {
	input := `data: {"id":"test-1","citations":["https://a.example"],"choices":[{"index":0,"delta":{"content":"One"}}]}

data: {"id":"test-1","citations":["https://a.example","https://b.example"],"choices":[{"index":0,"delta":{"content":" two"}}]}

data: [DONE]
`
	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})
	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	meta := processor.BuildMetadata()
	if len(meta.Citations) != 2 {
		t.Fatalf("BuildMetadata().Citations length = %d, want 2", len(meta.Citations))
	}
	if meta.Citations[1] != "https://b.example" {
		t.Errorf("BuildMetadata().Citations[1] = %q, want %q", meta.Citations[1], "https://b.example")
	}
}

func TestSSEProcessor_BuildMetadata(t *testing.T) {
	input := `data: {"id":"resp-123","model":"sonar","choices":[{"index":0,"delta":{"content":"Test response"}}]}

data: {"id":"resp-123","usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}

data: [DONE]
`
	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})
	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	meta := processor.BuildMetadata()

	if meta.Model != "sonar" {
		t.Errorf("BuildMetadata().Model = %q, want %q", meta.Model, "sonar")
	}
	if meta.Usage.TotalTokens != 15 {
		t.Errorf("BuildMetadata().Usage.TotalTokens = %d, want %d", meta.Usage.TotalTokens, 15)
	}
	if processor.Content() != "Test response" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Test response")
	}
}

func TestSSEProcessor_Process_EmptyLines(t *testing.T) {
	input := `

data: {"id":"test-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}



data: [DONE]

`
	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})

	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	if processor.Content() != "Hello" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hello")
	}
}

func TestSSEProcessor_Process_ContextCancelled(t *testing.T) {
	input := `data: {"id":"test-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}

data: [DONE]
`
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(ctx, func(content string) {})

	if err == nil {
		t.Error("Process() expected error for cancelled context, got nil")
	}
}

func TestSSEProcessor_Process_InvalidJSON(t *testing.T) {
	input := `data: {"id":"test-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}

data: invalid json here

data: {"id":"test-1","choices":[{"index":0,"delta":{"content":" World"}}]}

data: [DONE]
`
	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})

	// Should not error, just skip invalid JSON
	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	// Should still have parsed the valid content
	if processor.Content() != "Hello World" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hello World")
	}
}

func TestSSEProcessor_Process_NonDataLines(t *testing.T) {
	input := `event: message
id: 123
data: {"id":"test-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}

retry: 3000

data: [DONE]
`
	processor := NewSSEProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})

	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	if processor.Content() != "Hello" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hello")
	}
}

func TestEventStreamProcessor_Process(t *testing.T) {
	input := `event: message_start
data: {"type":"message_start","message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":25,"output_tokens":1}}}

event: ping
data: {"type":"ping"}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":12}}

event: message_stop
data: {"type":"message_stop"}
`
	processor := NewEventStreamProcessor(strings.NewReader(input))

	var chunks []string
	err := processor.Process(context.Background(), func(content string) {
		chunks = append(chunks, content)
	})

	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	if len(chunks) != 2 {
		t.Errorf("Process() got %d chunks, want 2", len(chunks))
	}

	if processor.Content() != "Hello there" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hello there")
	}

	meta := processor.BuildMetadata()
	if meta.Model != "claude-sonnet-4-5" {
		t.Errorf("BuildMetadata().Model = %q, want %q", meta.Model, "claude-sonnet-4-5")
	}
	if meta.Usage.PromptTokens != 25 {
		t.Errorf("BuildMetadata().Usage.PromptTokens = %d, want 25", meta.Usage.PromptTokens)
	}
	if meta.Usage.CompletionTokens != 12 {
		t.Errorf("BuildMetadata().Usage.CompletionTokens = %d, want 12", meta.Usage.CompletionTokens)
	}
	if meta.Usage.TotalTokens != 37 {
		t.Errorf("BuildMetadata().Usage.TotalTokens = %d, want 37", meta.Usage.TotalTokens)
	}
}

func TestEventStreamProcessor_Process_ErrorEvent(t *testing.T) {
	input := `event: message_start
data: {"type":"message_start","message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":5,"output_tokens":0}}}

event: error
data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}
`
	processor := NewEventStreamProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})

	if err == nil {
		t.Fatal("Process() expected error for error event, got nil")
	}
	if !strings.Contains(err.Error(), "overloaded_error") {
		t.Errorf("Process() error = %v, want mention of overloaded_error", err)
	}
}

func TestEventStreamProcessor_Process_ContextCancelled(t *testing.T) {
	input := `event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}
`
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	processor := NewEventStreamProcessor(strings.NewReader(input))

	err := processor.Process(ctx, func(content string) {})

	if err == nil {
		t.Error("Process() expected error for cancelled context, got nil")
	}
}

func TestEventStreamProcessor_Process_InvalidJSON(t *testing.T) {
	input := `data: not json

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}

event: message_stop
data: {"type":"message_stop"}
`
	processor := NewEventStreamProcessor(strings.NewReader(input))

	err := processor.Process(context.Background(), func(content string) {})

	// Should not error, just skip invalid JSON
	if err != nil {
		t.Errorf("Process() unexpected error: %v", err)
	}

	if processor.Content() != "Hi" {
		t.Errorf("Content() = %q, want %q", processor.Content(), "Hi")
	}
}
