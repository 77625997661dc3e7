package chat

import "time"

// Message is one entry of a conversation. The same shape is accepted as
// caller-supplied history and returned as the assistant's reply.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued function call. The argument payload stays a
// raw JSON string until the orchestrator decodes it for dispatch.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Result is the outcome of one chat turn.
type Result struct {
	Message        Message  `json:"message"`
	ConversationID string   `json:"conversationId"`
	ToolsExecuted  []string `json:"toolsExecuted,omitempty"`
}
