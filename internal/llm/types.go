// Package llm provides the model backend client used by the orchestration
// engine. The engine depends only on the Client interface; the Anthropic
// implementation handles transport, rate limiting, and retries.
package llm

import (
	"context"
)

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Completion is the model's response to one CompleteWithTools call. Text and
// ToolCalls may both be present; an empty ToolCalls slice means the text is
// the final answer.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Options tunes one completion call.
type Options struct {
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// Client is the model backend contract. Implementations must be safe to call
// repeatedly; transient-failure retry and per-attempt timeouts are the
// implementation's responsibility. After retries are exhausted the call
// returns a terminal error, which callers must not retry further.
type Client interface {
	CompleteWithTools(ctx context.Context, messages []Message, toolDefs []ToolDefinition, opts Options) (*Completion, error)
	CheckConnection(ctx context.Context) error
}
