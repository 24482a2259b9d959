package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeSaveExpense(t *testing.T) {
	payload := json.RawMessage(`{"expense_id":"e1","expense_name":"Coffee","amount":5,"category":"COFFEE"}`)

	res, ok := DecodeToolResult(ToolSaveExpense, payload).(*SaveExpenseResult)
	if !ok {
		t.Fatalf("expected *SaveExpenseResult, got %T", DecodeToolResult(ToolSaveExpense, payload))
	}
	if res.ExpenseName != "Coffee" || res.Amount != 5 || res.Category != "COFFEE" {
		t.Errorf("decoded = %+v", res)
	}
}

func TestDecodeSaveExpenseMissingRequired(t *testing.T) {
	// Missing expense_name/amount degrades to the generic indicator.
	res := DecodeToolResult(ToolSaveExpense, json.RawMessage(`{}`))
	gen, ok := res.(*GenericResult)
	if !ok {
		t.Fatalf("expected *GenericResult, got %T", res)
	}
	if gen.Tool != ToolSaveExpense {
		t.Errorf("Tool = %q", gen.Tool)
	}
}

func TestDecodeUnknownTool(t *testing.T) {
	res := DecodeToolResult("time_travel", json.RawMessage(`{"year":1985}`))
	if _, ok := res.(*GenericResult); !ok {
		t.Fatalf("expected *GenericResult, got %T", res)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	res := DecodeToolResult(ToolSaveExpense, json.RawMessage(`{"expense_name":`))
	if _, ok := res.(*GenericResult); !ok {
		t.Fatalf("expected *GenericResult, got %T", res)
	}

	res = DecodeToolResult(ToolSaveExpense, nil)
	if _, ok := res.(*GenericResult); !ok {
		t.Fatalf("expected *GenericResult for empty payload, got %T", res)
	}
}

func TestDecodeExpenseListVariants(t *testing.T) {
	payload := json.RawMessage(`{"expenses":[{"name":"Lunch","amount":12.5,"date":"2026-08-01"}],"count":1,"total":12.5}`)

	for _, tool := range []string{ToolRecentExpenses, ToolSearchExpenses, ToolQueryExpenses} {
		res, ok := DecodeToolResult(tool, payload).(*ExpenseListResult)
		if !ok {
			t.Fatalf("%s: expected *ExpenseListResult", tool)
		}
		if res.Kind() != tool {
			t.Errorf("Kind = %q, want %q", res.Kind(), tool)
		}
		if len(res.Expenses) != 1 || res.Expenses[0].Name != "Lunch" {
			t.Errorf("%s: decoded = %+v", tool, res)
		}
	}
}

func TestDecodeBudgetRemainingSingle(t *testing.T) {
	payload := json.RawMessage(`{"category":"COFFEE","spending":45,"cap":50,"percentage":90,"remaining":5}`)

	res, ok := DecodeToolResult(ToolBudgetRemaining, payload).(*BudgetRemainingResult)
	if !ok {
		t.Fatal("expected *BudgetRemainingResult")
	}
	if res.Remaining != 5 || res.Categories != nil {
		t.Errorf("decoded = %+v", res)
	}
}

func TestDecodeBudgetRemainingBreakdown(t *testing.T) {
	payload := json.RawMessage(`{"categories":[{"category":"COFFEE","spending":45,"cap":50,"percentage":90,"remaining":5}],"total":5}`)

	res, ok := DecodeToolResult(ToolBudgetRemaining, payload).(*BudgetRemainingResult)
	if !ok {
		t.Fatal("expected *BudgetRemainingResult")
	}
	if len(res.Categories) != 1 || res.Categories[0].Category != "COFFEE" {
		t.Errorf("decoded = %+v", res)
	}
}

func TestDecodeBudgetRemainingNeitherShape(t *testing.T) {
	res := DecodeToolResult(ToolBudgetRemaining, json.RawMessage(`{"spending":45}`))
	if _, ok := res.(*GenericResult); !ok {
		t.Fatalf("expected *GenericResult, got %T", res)
	}
}

func TestDecodePeriodComparison(t *testing.T) {
	payload := json.RawMessage(`{
		"period1": {"start":"2026-07-01","end":"2026-07-31","total":420,"count":31},
		"period2": {"start":"2026-08-01","end":"2026-08-30","total":390,"count":28},
		"comparison": {"difference":-30,"percentage_change":-7.1}
	}`)

	res, ok := DecodeToolResult(ToolComparePeriods, payload).(*PeriodComparisonResult)
	if !ok {
		t.Fatal("expected *PeriodComparisonResult")
	}
	if res.Comparison.Difference != -30 {
		t.Errorf("Difference = %v", res.Comparison.Difference)
	}
	if res.Comparison.PercentageChange == nil || *res.Comparison.PercentageChange != -7.1 {
		t.Errorf("PercentageChange = %v", res.Comparison.PercentageChange)
	}
}

func TestDecodeRecurringList(t *testing.T) {
	payload := json.RawMessage(`{"count":1,"recurring_expenses":[
		{"template_id":"r1","expense_name":"Rent","amount":1200,"category":"HOUSING","frequency":"monthly","schedule":"0 9 1 * *"}
	]}`)

	res, ok := DecodeToolResult(ToolListRecurring, payload).(*RecurringListResult)
	if !ok {
		t.Fatal("expected *RecurringListResult")
	}
	if res.Count != 1 || res.Templates[0].ExpenseName != "Rent" {
		t.Errorf("decoded = %+v", res)
	}
}

func TestNextOccurrence(t *testing.T) {
	tmpl := RecurringTemplate{Schedule: "0 9 1 * *"}
	from := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	next, ok := tmpl.NextOccurrence(from)
	if !ok {
		t.Fatal("expected a next occurrence")
	}
	want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextOccurrenceUnparseable(t *testing.T) {
	for _, schedule := range []string{"", "whenever", "* * *"} {
		tmpl := RecurringTemplate{Schedule: schedule}
		if _, ok := tmpl.NextOccurrence(time.Now()); ok {
			t.Errorf("schedule %q should not parse", schedule)
		}
	}
}

func TestWarningSeverityTiers(t *testing.T) {
	cases := []struct {
		line string
		want WarningSeverity
	}{
		{"OVER BUDGET on COFFEE", SeverityOver},
		{"COFFEE at 95% of cap", SeverityCritical},
		{"COFFEE hit 100%", SeverityCritical},
		{"⚠ COFFEE is close to its cap", SeverityCaution},
		{"COFFEE at 90%", SeverityCaution},
		{"You spent $5 on coffee", SeverityInfo},
	}
	for _, tc := range cases {
		if got := classifyWarning(tc.line); got != tc.want {
			t.Errorf("classifyWarning(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestBudgetStatusLines(t *testing.T) {
	res := &BudgetStatusResult{Warning: "OVER BUDGET on DINING\n\n⚠ COFFEE at 90%\nAll good elsewhere"}

	lines := res.Lines()
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3 (blank line dropped)", len(lines))
	}
	if lines[0].Severity != SeverityOver || lines[1].Severity != SeverityCaution || lines[2].Severity != SeverityInfo {
		t.Errorf("severities = %v %v %v", lines[0].Severity, lines[1].Severity, lines[2].Severity)
	}

	if (&BudgetStatusResult{}).Lines() != nil {
		t.Error("empty warning yields no lines")
	}
}
