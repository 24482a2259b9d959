package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"penny-ai/internal/domain"
)

var (
	styleUser       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	styleAssistant  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleCard       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	styleCardTitle  = lipgloss.NewStyle().Bold(true)
	styleDim        = lipgloss.NewStyle().Faint(true)
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleRunning    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleSpinner    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleHints      = lipgloss.NewStyle().Faint(true)
	stylePendingBar = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	styleSelected   = lipgloss.NewStyle().Reverse(true)

	warnStyles = map[domain.WarningSeverity]lipgloss.Style{
		domain.SeverityInfo:     lipgloss.NewStyle().Faint(true),
		domain.SeverityCaution:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		domain.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		domain.SeverityOver:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

func (m Model) renderConversation() string {
	var b strings.Builder
	for _, msg := range m.deps.Conversation.Messages() {
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(styleUser.Render("you ") + m.renderUserText(msg) + "\n\n")
		case domain.RoleAssistant:
			b.WriteString(m.renderAssistant(msg))
		}
	}
	return b.String()
}

func (m Model) renderUserText(msg domain.Message) string {
	if msg.Audio != nil {
		return fmt.Sprintf("🎤 voice note (%s)", msg.Audio.Duration.Round(time.Second))
	}
	return msg.Text()
}

func (m Model) renderAssistant(msg domain.Message) string {
	var b strings.Builder
	b.WriteString(styleAssistant.Render("penny") + "\n")

	if msg.TextBefore != "" {
		b.WriteString(m.renderProse(msg.TextBefore))
	}

	warning := msg.BudgetWarning()
	for _, tc := range msg.VisibleToolCalls() {
		card := m.renderCard(tc, warning)
		b.WriteString(card + "\n")
	}

	if msg.TextAfter != "" {
		b.WriteString(m.renderProse(msg.TextAfter))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderProse(text string) string {
	if m.md != nil {
		if out, err := m.md.Render(text); err == nil {
			return out
		}
	}
	return text + "\n"
}

// renderCard renders one tool call. The budget warning rides on the
// save-expense card when the turn matched the budget pattern.
func (m Model) renderCard(tc domain.ToolCall, warning string) string {
	if !tc.Done() {
		return styleCard.Render(styleDim.Render(tc.Name + " …"))
	}

	var body string
	switch res := domain.DecodeToolResult(tc.Name, tc.Result).(type) {
	case *domain.SaveExpenseResult:
		body = styleCardTitle.Render("Saved: "+res.ExpenseName) + fmt.Sprintf("  $%.2f", res.Amount)
		if res.Category != "" {
			body += styleDim.Render("  " + res.Category)
		}
		if tc.Name == domain.ToolSaveExpense && warning != "" {
			for _, line := range (&domain.BudgetStatusResult{Warning: warning}).Lines() {
				body += "\n" + warnStyles[line.Severity].Render(line.Text)
			}
		}

	case *domain.BudgetStatusResult:
		lines := res.Lines()
		if len(lines) == 0 {
			body = styleDim.Render("budget: all clear")
			break
		}
		rendered := make([]string, len(lines))
		for i, line := range lines {
			rendered[i] = warnStyles[line.Severity].Render(line.Text)
		}
		body = strings.Join(rendered, "\n")

	case *domain.ExpenseListResult:
		body = styleCardTitle.Render(expenseListTitle(res))
		for _, e := range res.Expenses {
			body += fmt.Sprintf("\n%-20s $%8.2f  %s", e.Name, e.Amount, styleDim.Render(e.Category))
		}
		if res.Total != 0 {
			body += styleDim.Render(fmt.Sprintf("\ntotal $%.2f", res.Total))
		}

	case *domain.BudgetRemainingResult:
		if res.Categories == nil {
			body = renderCategoryBudget(res.CategoryBudget)
		} else {
			rows := make([]string, len(res.Categories))
			for i, cb := range res.Categories {
				rows[i] = renderCategoryBudget(cb)
			}
			body = strings.Join(rows, "\n")
		}

	case *domain.SpendingByCategoryResult:
		body = styleCardTitle.Render("Spending by category")
		for _, row := range res.Breakdown {
			body += fmt.Sprintf("\n%-20s $%8.2f  %s", row.Category, row.Total, styleDim.Render(fmt.Sprintf("%d txns", row.Count)))
		}
		body += styleDim.Render(fmt.Sprintf("\ntotal $%.2f", res.Total))

	case *domain.SpendingSummaryResult:
		body = styleCardTitle.Render("Spending summary") +
			fmt.Sprintf("\n$%.2f across %d transactions ($%.2f avg)", res.Total, res.Count, res.AveragePerTransaction)

	case *domain.LargestExpensesResult:
		body = styleCardTitle.Render("Largest expenses")
		for i, e := range res.Expenses {
			body += fmt.Sprintf("\n%d. %-18s $%8.2f", i+1, e.Name, e.Amount)
		}

	case *domain.PeriodComparisonResult:
		body = styleCardTitle.Render("Period comparison") +
			fmt.Sprintf("\n%s: $%.2f (%d txns)", periodLabel(res.Period1, "before"), res.Period1.Total, res.Period1.Count) +
			fmt.Sprintf("\n%s: $%.2f (%d txns)", periodLabel(res.Period2, "after"), res.Period2.Total, res.Period2.Count) +
			fmt.Sprintf("\ndifference $%+.2f", res.Comparison.Difference)
		if res.Comparison.PercentageChange != nil {
			body += styleDim.Render(fmt.Sprintf(" (%+.1f%%)", *res.Comparison.PercentageChange))
		}

	case *domain.RecurringCreatedResult:
		body = styleCardTitle.Render("Recurring: "+res.ExpenseName) +
			fmt.Sprintf("\n$%.2f %s, %s", res.Amount, res.Category, res.Frequency)

	case *domain.RecurringListResult:
		body = styleCardTitle.Render(fmt.Sprintf("Recurring expenses (%d)", res.Count))
		for _, tmpl := range res.Templates {
			body += fmt.Sprintf("\n%-18s $%8.2f  %s", tmpl.ExpenseName, tmpl.Amount, tmpl.Frequency)
			if next, ok := tmpl.NextOccurrence(time.Now()); ok {
				body += styleDim.Render("  next " + next.Format("Jan 2"))
			}
		}

	default:
		body = styleDim.Render(tc.Name + " ✓ completed")
	}

	return styleCard.Render(body)
}

func expenseListTitle(res *domain.ExpenseListResult) string {
	switch res.Kind() {
	case domain.ToolSearchExpenses:
		if res.Query != "" {
			return fmt.Sprintf("Expenses matching %q", res.Query)
		}
		return "Matching expenses"
	case domain.ToolQueryExpenses:
		return "Expenses"
	default:
		return "Recent expenses"
	}
}

func renderCategoryBudget(cb domain.CategoryBudget) string {
	label := cb.Category
	if label == "" {
		label = "overall"
	}
	line := fmt.Sprintf("%-14s $%.2f of $%.2f (%.0f%%), $%.2f left",
		label, cb.Spending, cb.Cap, cb.Percentage, cb.Remaining)
	if cb.Percentage >= 100 {
		return warnStyles[domain.SeverityOver].Render(line)
	}
	if cb.Percentage >= 90 {
		return warnStyles[domain.SeverityCaution].Render(line)
	}
	return line
}

func periodLabel(p domain.PeriodTotals, fallback string) string {
	if p.Start != "" && p.End != "" {
		return p.Start + " – " + p.End
	}
	return fallback
}

func (m Model) renderHistoryPicker() string {
	var b strings.Builder
	b.WriteString(styleCardTitle.Render("Conversations") + "\n\n")
	if len(m.history) == 0 {
		b.WriteString(styleDim.Render("nothing here yet") + "\n")
	}
	for i, s := range m.history {
		label := s.Label
		if label == "" {
			label = s.ID
		}
		line := label
		if s.LastActive != "" {
			line += styleDim.Render("  " + s.LastActive)
		}
		if i == m.cursor {
			line = styleSelected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + styleHints.Render("enter load · x delete · esc back"))
	return b.String()
}

func (m Model) renderPendingList() string {
	items := m.deps.Pending.Items()

	var b strings.Builder
	b.WriteString(styleCardTitle.Render("Pending recurring expenses") + "\n\n")
	if len(items) == 0 {
		b.WriteString(styleDim.Render("all caught up") + "\n")
	}
	for i, item := range items {
		line := fmt.Sprintf("%-18s $%8.2f  %s", item.ExpenseName, item.Amount, styleDim.Render(item.Category))
		if m.deps.Pending.Busy(item.ID) {
			line += styleRunning.Render("  …")
		}
		if i == m.cursor {
			line = styleSelected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + styleError.Render(m.status))
	}
	b.WriteString("\n" + styleHints.Render("y confirm · n skip · esc back"))
	return b.String()
}
