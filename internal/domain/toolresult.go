package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"
	"github.com/robfig/cron/v3"
)

// ToolResult is the closed set of decoded tool payloads. Renderers
// type-switch over the concrete types; *GenericResult is the fallback for
// unknown tools and payloads that fail shape validation, so decoding can
// never stop the conversation.
type ToolResult interface {
	Kind() string
}

// ExpenseEntry is one expense row inside list-shaped results.
type ExpenseEntry struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category,omitempty"`
	Date     string  `json:"date,omitempty"`
}

// SaveExpenseResult confirms a saved expense.
type SaveExpenseResult struct {
	ExpenseID   string  `json:"expense_id,omitempty"`
	ExpenseName string  `json:"expense_name"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
}

func (*SaveExpenseResult) Kind() string { return ToolSaveExpense }

// WarningSeverity orders budget-warning lines from informational to
// over-budget. Classification is presentational only.
type WarningSeverity int

const (
	SeverityInfo WarningSeverity = iota
	SeverityCaution
	SeverityCritical
	SeverityOver
)

// WarningLine is one classified line of a budget advisory.
type WarningLine struct {
	Text     string
	Severity WarningSeverity
}

// BudgetStatusResult carries the free-text budget advisory, possibly empty.
type BudgetStatusResult struct {
	Warning string `json:"budget_warning,omitempty"`
}

func (*BudgetStatusResult) Kind() string { return ToolBudgetStatus }

// Lines splits the advisory into non-empty lines, each classified by keyword.
func (r *BudgetStatusResult) Lines() []WarningLine {
	if r.Warning == "" {
		return nil
	}
	var lines []WarningLine
	for _, raw := range strings.Split(r.Warning, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, WarningLine{Text: line, Severity: classifyWarning(line)})
	}
	return lines
}

func classifyWarning(line string) WarningSeverity {
	switch {
	case strings.Contains(line, "OVER BUDGET"):
		return SeverityOver
	case strings.Contains(line, "95%") || strings.Contains(line, "100%"):
		return SeverityCritical
	case strings.Contains(line, "⚠") || strings.Contains(line, "90%"):
		return SeverityCaution
	default:
		return SeverityInfo
	}
}

// ExpenseListResult covers the recent/search/query expense tools.
type ExpenseListResult struct {
	Expenses  []ExpenseEntry `json:"expenses,omitempty"`
	Count     int            `json:"count,omitempty"`
	Total     float64        `json:"total,omitempty"`
	Query     string         `json:"query,omitempty"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`

	tool string
}

func (r *ExpenseListResult) Kind() string { return r.tool }

// CategoryBudget is the remaining-budget figure for one category.
type CategoryBudget struct {
	Category   string  `json:"category,omitempty"`
	Spending   float64 `json:"spending"`
	Cap        float64 `json:"cap"`
	Percentage float64 `json:"percentage"`
	Remaining  float64 `json:"remaining"`
}

// BudgetRemainingResult is either one category's figures or a per-category
// breakdown; Categories is nil in the single-category form.
type BudgetRemainingResult struct {
	CategoryBudget
	Categories []CategoryBudget `json:"categories,omitempty"`
	Total      float64          `json:"total,omitempty"`
}

func (*BudgetRemainingResult) Kind() string { return ToolBudgetRemaining }

// CategoryTotal is one row of a spending breakdown.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// SpendingByCategoryResult is a per-category spending breakdown.
type SpendingByCategoryResult struct {
	Breakdown []CategoryTotal `json:"breakdown"`
	Total     float64         `json:"total"`
	StartDate string          `json:"start_date,omitempty"`
	EndDate   string          `json:"end_date,omitempty"`
}

func (*SpendingByCategoryResult) Kind() string { return ToolSpendingByCategory }

// SpendingSummaryResult aggregates spending over a period.
type SpendingSummaryResult struct {
	Total                 float64 `json:"total"`
	Count                 int     `json:"count"`
	AveragePerTransaction float64 `json:"average_per_transaction"`
	StartDate             string  `json:"start_date,omitempty"`
	EndDate               string  `json:"end_date,omitempty"`
}

func (*SpendingSummaryResult) Kind() string { return ToolSpendingSummary }

// LargestExpensesResult lists the biggest expenses of a period.
type LargestExpensesResult struct {
	Expenses  []ExpenseEntry `json:"largest_expenses"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Category  string         `json:"category,omitempty"`
}

func (*LargestExpensesResult) Kind() string { return ToolLargestExpenses }

// PeriodTotals is the aggregate for one side of a period comparison.
type PeriodTotals struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end,omitempty"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// PeriodComparisonResult compares spending across two periods.
type PeriodComparisonResult struct {
	Period1    PeriodTotals `json:"period1"`
	Period2    PeriodTotals `json:"period2"`
	Comparison struct {
		Difference       float64  `json:"difference"`
		PercentageChange *float64 `json:"percentage_change,omitempty"`
	} `json:"comparison"`
	Category string `json:"category,omitempty"`
}

func (*PeriodComparisonResult) Kind() string { return ToolComparePeriods }

// RecurringTemplate is one recurring-expense template.
type RecurringTemplate struct {
	TemplateID  string  `json:"template_id,omitempty"`
	ExpenseName string  `json:"expense_name"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Frequency   string  `json:"frequency"`
	Schedule    string  `json:"schedule,omitempty"` // cron expression, when the backend provides one
}

// NextOccurrence computes the template's next firing after from, when
// Schedule holds a parseable cron expression.
func (t RecurringTemplate) NextOccurrence(from time.Time) (time.Time, bool) {
	if t.Schedule == "" {
		return time.Time{}, false
	}
	sched, err := cron.ParseStandard(t.Schedule)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(from), true
}

// RecurringCreatedResult confirms a created recurring-expense template.
type RecurringCreatedResult struct {
	RecurringTemplate
}

func (*RecurringCreatedResult) Kind() string { return ToolCreateRecurring }

// RecurringListResult lists recurring-expense templates.
type RecurringListResult struct {
	Count     int                 `json:"count"`
	Templates []RecurringTemplate `json:"recurring_expenses"`
}

func (*RecurringListResult) Kind() string { return ToolListRecurring }

// GenericResult is the degraded "completed" indicator for unknown tools
// and payloads that fail validation.
type GenericResult struct {
	Tool string
}

func (*GenericResult) Kind() string { return "generic" }

// decoderEntry pairs a payload schema with a constructor for its typed result.
type decoderEntry struct {
	schema *jsonschema.Schema
	decode func(payload json.RawMessage) (ToolResult, error)
}

var decodeTable = map[string]decoderEntry{
	ToolSaveExpense: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["expense_name", "amount"],
			"properties": {
				"expense_name": {"type": "string"},
				"amount": {"type": "number"}
			}
		}`),
		decode: decodeInto[SaveExpenseResult](),
	},
	ToolBudgetStatus: {
		schema: mustCompileSchema(`{
			"type": "object",
			"properties": {"budget_warning": {"type": "string"}}
		}`),
		decode: decodeInto[BudgetStatusResult](),
	},
	ToolRecentExpenses: {schema: expenseListSchema, decode: decodeExpenseList(ToolRecentExpenses)},
	ToolSearchExpenses: {schema: expenseListSchema, decode: decodeExpenseList(ToolSearchExpenses)},
	ToolQueryExpenses:  {schema: expenseListSchema, decode: decodeExpenseList(ToolQueryExpenses)},
	ToolBudgetRemaining: {
		schema: mustCompileSchema(`{
			"type": "object",
			"anyOf": [
				{"required": ["spending", "cap", "percentage", "remaining"]},
				{"required": ["categories"]}
			]
		}`),
		decode: decodeInto[BudgetRemainingResult](),
	},
	ToolSpendingByCategory: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["breakdown", "total"],
			"properties": {
				"breakdown": {
					"type": "array",
					"items": {"type": "object", "required": ["category", "total", "count"]}
				},
				"total": {"type": "number"}
			}
		}`),
		decode: decodeInto[SpendingByCategoryResult](),
	},
	ToolSpendingSummary: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["total", "count", "average_per_transaction"],
			"properties": {
				"total": {"type": "number"},
				"count": {"type": "integer"},
				"average_per_transaction": {"type": "number"}
			}
		}`),
		decode: decodeInto[SpendingSummaryResult](),
	},
	ToolLargestExpenses: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["largest_expenses"],
			"properties": {"largest_expenses": {"type": "array"}}
		}`),
		decode: decodeInto[LargestExpensesResult](),
	},
	ToolComparePeriods: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["period1", "period2", "comparison"],
			"properties": {
				"period1": {"type": "object", "required": ["total", "count"]},
				"period2": {"type": "object", "required": ["total", "count"]},
				"comparison": {"type": "object", "required": ["difference"]}
			}
		}`),
		decode: decodeInto[PeriodComparisonResult](),
	},
	ToolCreateRecurring: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["expense_name", "amount", "category", "frequency"]
		}`),
		decode: decodeInto[RecurringCreatedResult](),
	},
	ToolListRecurring: {
		schema: mustCompileSchema(`{
			"type": "object",
			"required": ["count", "recurring_expenses"],
			"properties": {
				"count": {"type": "integer"},
				"recurring_expenses": {"type": "array"}
			}
		}`),
		decode: decodeInto[RecurringListResult](),
	},
}

var expenseListSchema = mustCompileSchema(`{
	"type": "object",
	"properties": {
		"expenses": {
			"type": "array",
			"items": {"type": "object", "required": ["name", "amount"]}
		}
	}
}`)

func mustCompileSchema(src string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic("toolresult: bad schema: " + err.Error())
	}
	return schema
}

func decodeInto[T any]() func(json.RawMessage) (ToolResult, error) {
	return func(payload json.RawMessage) (ToolResult, error) {
		var out T
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, err
		}
		return any(&out).(ToolResult), nil
	}
}

func decodeExpenseList(tool string) func(json.RawMessage) (ToolResult, error) {
	return func(payload json.RawMessage) (ToolResult, error) {
		out := &ExpenseListResult{tool: tool}
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// DecodeToolResult decodes a tool's result payload against that tool's
// known shape. Unknown names and invalid payloads yield *GenericResult;
// this function never fails.
func DecodeToolResult(name string, payload json.RawMessage) ToolResult {
	entry, ok := decodeTable[name]
	if !ok || len(payload) == 0 {
		return &GenericResult{Tool: name}
	}

	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return &GenericResult{Tool: name}
	}
	if !entry.schema.Validate(parsed).IsValid() {
		return &GenericResult{Tool: name}
	}

	res, err := entry.decode(payload)
	if err != nil {
		return &GenericResult{Tool: name}
	}
	return res
}

// KnownTool reports whether name has an entry in the decode table.
func KnownTool(name string) bool {
	_, ok := decodeTable[name]
	return ok
}
