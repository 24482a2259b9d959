package domain

import (
	"encoding/json"
	"testing"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Coffee $5", nil)

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want user", msg.Role)
	}
	if msg.Text() != "Coffee $5" {
		t.Errorf("Text = %q, want Coffee $5", msg.Text())
	}
	if len(msg.ID) != 26 {
		t.Errorf("ID should be a 26-char ULID, got %q (%d chars)", msg.ID, len(msg.ID))
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set at creation")
	}
	if msg.ToolCalls != nil {
		t.Error("user messages never carry tool calls")
	}
}

func TestPlaceholderIsEmpty(t *testing.T) {
	msg := NewAssistantPlaceholder()
	if !msg.IsEmpty() {
		t.Error("fresh placeholder should be empty")
	}

	msg.TextAfter = "done"
	if msg.IsEmpty() {
		t.Error("message with text is not empty")
	}

	msg = NewAssistantPlaceholder()
	msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: "t1", Name: ToolSaveExpense})
	if msg.IsEmpty() {
		t.Error("message with a tool call is not empty")
	}
}

func TestHasBudgetPattern(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.ToolCalls = []ToolCall{
		{ID: "t1", Name: ToolSaveExpense},
	}
	if msg.HasBudgetPattern() {
		t.Error("save alone is not the budget pattern")
	}

	msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: "t2", Name: ToolBudgetStatus})
	if !msg.HasBudgetPattern() {
		t.Error("save + budget status should match the pattern")
	}
}

func TestVisibleToolCallsFoldsBudgetStatus(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.ToolCalls = []ToolCall{
		{ID: "t1", Name: ToolSaveExpense},
		{ID: "t2", Name: ToolBudgetStatus},
		{ID: "t3", Name: ToolRecentExpenses},
	}

	visible := msg.VisibleToolCalls()
	if len(visible) != 2 {
		t.Fatalf("visible = %d calls, want 2", len(visible))
	}
	for _, tc := range visible {
		if tc.Name == ToolBudgetStatus {
			t.Error("budget status should be folded into the save card")
		}
	}
}

func TestVisibleToolCallsWithoutPattern(t *testing.T) {
	// A lone budget-status call stays visible: there is no save card to
	// attach its warning to.
	msg := NewAssistantPlaceholder()
	msg.ToolCalls = []ToolCall{{ID: "t1", Name: ToolBudgetStatus}}

	visible := msg.VisibleToolCalls()
	if len(visible) != 1 || visible[0].Name != ToolBudgetStatus {
		t.Errorf("visible = %+v, want the lone budget-status call", visible)
	}
}

func TestBudgetWarning(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"budget_warning": "⚠ COFFEE at 90%"})

	msg := NewAssistantPlaceholder()
	msg.ToolCalls = []ToolCall{
		{ID: "t1", Name: ToolSaveExpense, Result: json.RawMessage(`{"expense_name":"Coffee","amount":5}`)},
		{ID: "t2", Name: ToolBudgetStatus, Result: payload},
	}

	if got := msg.BudgetWarning(); got != "⚠ COFFEE at 90%" {
		t.Errorf("BudgetWarning = %q", got)
	}
}

func TestBudgetWarningAbsent(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.ToolCalls = []ToolCall{
		{ID: "t2", Name: ToolBudgetStatus, Result: json.RawMessage(`{}`)},
	}
	if got := msg.BudgetWarning(); got != "" {
		t.Errorf("BudgetWarning = %q, want empty", got)
	}

	// Not yet finished: no warning either.
	msg.ToolCalls[0].Result = nil
	if got := msg.BudgetWarning(); got != "" {
		t.Errorf("BudgetWarning on unfinished call = %q, want empty", got)
	}
}

func TestToolCallDone(t *testing.T) {
	tc := ToolCall{ID: "t1", Name: ToolSaveExpense}
	if tc.Done() {
		t.Error("call without a result is not done")
	}
	tc.Result = json.RawMessage(`{}`)
	if !tc.Done() {
		t.Error("call with a result is done")
	}
}
