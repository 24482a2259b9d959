package domain

import (
	"context"
	"encoding/json"
)

// StreamEventType identifies the kind of event arriving on a response stream.
type StreamEventType string

const (
	EventConversationID StreamEventType = "conversation_id"
	EventText           StreamEventType = "text"
	EventToolStart      StreamEventType = "tool_start"
	EventToolEnd        StreamEventType = "tool_end"
	EventDone           StreamEventType = "done"
	EventError          StreamEventType = "error"
)

// StreamEvent is one element of the response stream for a submitted turn.
// Only the fields relevant to Type are populated.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Text           string          `json:"text,omitempty"`
	ToolID         string          `json:"tool_id,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// SubmitRequest is the content of one user turn sent to the backend.
// Text and Audio are mutually exclusive per turn.
type SubmitRequest struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Text           string           `json:"text,omitempty"`
	Audio          *AudioAttachment `json:"audio,omitempty"`
}

// StreamOpener opens a response stream for one user turn. The returned
// channel is closed after the terminal done or error event (or on ctx
// cancellation). An error return means the stream never started.
type StreamOpener interface {
	OpenStream(ctx context.Context, req SubmitRequest) (<-chan StreamEvent, error)
}

// ConversationSummary is one row of the history listing.
type ConversationSummary struct {
	ID         string `json:"conversation_id"`
	Label      string `json:"label,omitempty"`
	LastActive string `json:"last_active,omitempty"` // ISO timestamp, fractional seconds optional
}

// StoredTurn is one turn of a persisted transcript as the backend returns it.
type StoredTurn struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp string           `json:"timestamp,omitempty"`
	ToolCalls []StoredToolCall `json:"tool_calls,omitempty"`
}

// StoredToolCall is a finished tool invocation inside a stored turn.
type StoredToolCall struct {
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
}

// PendingItem is a deferred recurring-expense occurrence awaiting an
// explicit confirm or skip. The server id is the identity; local state
// beyond queue membership is just the per-row busy flag in the usecase.
type PendingItem struct {
	ID          string  `json:"pending_id"`
	ExpenseName string  `json:"expense_name"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
}
