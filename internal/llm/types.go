// Package llm provides chat clients for the supported model providers.
// Each provider speaks its own wire format; conversion happens at the
// provider boundary and the rest of the codebase only sees the neutral
// types below.
package llm

import (
	"encoding/json"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message is a chat message in provider-neutral form.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool result messages
	Name       string     `json:"name,omitempty"`         // tool name on tool result messages
}

// ToolCall is a tool invocation requested by the model. Arguments is the
// raw JSON object exactly as the provider produced it; validation happens
// at execution time.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatResponse is the unified response from any provider.
type ChatResponse struct {
	Model   string
	Role    string
	Content string

	// ToolCalls preserves the order the model emitted them.
	ToolCalls []ToolCall

	InputTokens  int
	OutputTokens int
}

// HasToolCalls reports whether the model asked for any tool executions.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}
