package domain

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role constants for message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Well-known tool names produced by the backend agent.
const (
	ToolSaveExpense        = "save_expense"
	ToolBudgetStatus       = "get_budget_status"
	ToolRecentExpenses     = "get_recent_expenses"
	ToolSearchExpenses     = "search_expenses"
	ToolQueryExpenses      = "query_expenses"
	ToolBudgetRemaining    = "get_budget_remaining"
	ToolSpendingByCategory = "get_spending_by_category"
	ToolSpendingSummary    = "get_spending_summary"
	ToolLargestExpenses    = "get_largest_expenses"
	ToolComparePeriods     = "compare_periods"
	ToolCreateRecurring    = "create_recurring_expense"
	ToolListRecurring      = "list_recurring_expenses"
)

// AudioAttachment describes a recorded voice note attached to a user message.
type AudioAttachment struct {
	Duration  time.Duration `json:"duration"`
	Samples   []float32     `json:"samples,omitempty"` // normalized amplitude samples for waveform display
	MediaPath string        `json:"media_path,omitempty"`
}

// ToolCall is a single backend capability invocation within an assistant
// turn. Result stays nil between the tool-start and tool-end events.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Done reports whether the tool-end event for this call has arrived.
func (tc ToolCall) Done() bool { return tc.Result != nil }

// Message is a single turn in a conversation. Assistant messages split
// their prose around the tool calls: TextBefore holds narration emitted
// before the first tool started, TextAfter everything emitted afterwards
// (or the whole reply when no tool ran).
type Message struct {
	ID         string           `json:"id"`
	Role       string           `json:"role"`
	TextBefore string           `json:"text_before,omitempty"`
	TextAfter  string           `json:"text_after,omitempty"`
	ToolCalls  []ToolCall       `json:"tool_calls,omitempty"`
	Audio      *AudioAttachment `json:"audio,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewID generates a ULID for messages and locally assigned tool-call ids.
func NewID() string {
	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// NewUserMessage creates an immutable user turn.
func NewUserMessage(text string, audio *AudioAttachment) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		TextAfter: text,
		Audio:     audio,
		Timestamp: time.Now(),
	}
}

// NewAssistantPlaceholder creates the empty assistant turn that a response
// stream mutates in place until its done event.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        NewID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
	}
}

// IsEmpty reports whether the message produced neither text nor tool calls.
// Empty placeholders are dropped from the log when a stream finishes.
func (m Message) IsEmpty() bool {
	return m.TextBefore == "" && m.TextAfter == "" && len(m.ToolCalls) == 0 && m.Audio == nil
}

// Text returns the user-entered text of a user turn.
func (m Message) Text() string { return m.TextAfter }

// HasBudgetPattern reports whether this turn carries both a save-expense
// and a budget-status call. The pair renders as one annotated card.
func (m Message) HasBudgetPattern() bool {
	var save, status bool
	for _, tc := range m.ToolCalls {
		switch tc.Name {
		case ToolSaveExpense:
			save = true
		case ToolBudgetStatus:
			status = true
		}
	}
	return save && status
}

// VisibleToolCalls returns the tool calls to render as cards. When the
// budget pattern holds, the budget-status call is folded into the
// save-expense card (see BudgetWarning) instead of appearing on its own.
func (m Message) VisibleToolCalls() []ToolCall {
	if !m.HasBudgetPattern() {
		return m.ToolCalls
	}
	visible := make([]ToolCall, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		if tc.Name == ToolBudgetStatus {
			continue
		}
		visible = append(visible, tc)
	}
	return visible
}

// BudgetWarning extracts the non-empty advisory from this turn's decoded
// budget-status result, or "" when there is none.
func (m Message) BudgetWarning() string {
	for _, tc := range m.ToolCalls {
		if tc.Name != ToolBudgetStatus || !tc.Done() {
			continue
		}
		if res, ok := DecodeToolResult(tc.Name, tc.Result).(*BudgetStatusResult); ok {
			return res.Warning
		}
	}
	return ""
}
