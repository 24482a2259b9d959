package chat

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"penny-ai/internal/domain"
	"penny-ai/internal/usecase"
)

type mode int

const (
	modeChat mode = iota
	modeHistory
	modePending
)

// Deps are the engine pieces injected into the chat model.
type Deps struct {
	Conversation *usecase.Conversation
	History      *usecase.History
	Pending      *usecase.PendingQueue
	Logger       *slog.Logger
	HistoryLimit int
	Markdown     bool
}

// Model is the root Bubble Tea model.
type Model struct {
	deps Deps

	view    viewport.Model
	input   textarea.Model
	spin    spinner.Model
	md      *glamour.TermRenderer
	width   int
	height  int
	mode    mode
	cursor  int
	history []domain.ConversationSummary
	status  string
	quit    bool
}

// New creates the chat model.
func New(deps Deps) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleSpinner

	input := textarea.New()
	input.Placeholder = `Try "Coffee $5"`
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	var md *glamour.TermRenderer
	if deps.Markdown {
		md, _ = glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 50
	}

	return Model{
		deps:  deps,
		view:  viewport.New(80, 20),
		input: input,
		spin:  s,
		md:    md,
	}
}

// Init fetches the pending queue and starts listening to the engine.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		refreshPendingCmd(m.deps.Pending),
		waitForEngine(m.deps.Conversation),
	)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 5
		m.input.SetWidth(msg.Width - 2)
		m.redraw()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EngineUpdatedMsg:
		m.redraw()
		// Keep listening; the channel outlives each wakeup.
		return m, waitForEngine(m.deps.Conversation)

	case SubmitResultMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		}
		m.redraw()
		return m, nil

	case HistoryListMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			m.mode = modeChat
			return m, nil
		}
		m.history = msg.Summaries
		m.cursor = 0
		return m, nil

	case HistoryActionMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		} else {
			m.mode = modeChat
		}
		m.redraw()
		return m, nil

	case HistoryDeletedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			return m, nil
		}
		for i, s := range m.history {
			if s.ID == msg.ID {
				m.history = append(m.history[:i], m.history[i+1:]...)
				break
			}
		}
		if m.cursor >= len(m.history) && m.cursor > 0 {
			m.cursor--
		}
		m.redraw()
		return m, nil

	case PendingRefreshedMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		}
		m.redraw()
		return m, nil

	case PendingActionMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		}
		if m.cursor >= len(m.deps.Pending.Items()) {
			m.cursor = 0
		}
		m.redraw()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeHistory:
		return m.handleHistoryKey(msg)
	case modePending:
		return m.handlePendingKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.quit = true
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || !m.deps.Conversation.CanSend() {
			return m, nil
		}
		m.input.Reset()
		m.status = ""
		return m, submitCmd(m.deps.Conversation, text)

	case "ctrl+r":
		if !m.deps.Conversation.CanSend() {
			return m, nil
		}
		m.status = ""
		return m, regenerateCmd(m.deps.Conversation)

	case "ctrl+n":
		if err := m.deps.History.New(); err != nil {
			m.status = err.Error()
		}
		m.redraw()
		return m, nil

	case "ctrl+h":
		m.mode = modeHistory
		m.history = nil
		return m, listHistoryCmd(m.deps.History, m.deps.HistoryLimit)

	case "ctrl+p":
		m.mode = modePending
		m.cursor = 0
		return m, refreshPendingCmd(m.deps.Pending)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+h":
		m.mode = modeChat
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.history)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.history) {
			return m, loadHistoryCmd(m.deps.History, m.history[m.cursor].ID)
		}
	case "x", "delete":
		// The row stays until the backend confirms; see HistoryDeletedMsg.
		if m.cursor < len(m.history) {
			return m, deleteHistoryCmd(m.deps.History, m.history[m.cursor].ID)
		}
	}
	return m, nil
}

func (m Model) handlePendingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.deps.Pending.Items()
	switch msg.String() {
	case "esc", "ctrl+p":
		m.mode = modeChat
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "y", "enter":
		if m.cursor < len(items) {
			return m, confirmPendingCmd(m.deps.Pending, items[m.cursor].ID)
		}
	case "n", "s":
		if m.cursor < len(items) {
			return m, skipPendingCmd(m.deps.Pending, items[m.cursor].ID)
		}
	}
	return m, nil
}

func (m *Model) redraw() {
	m.view.SetContent(m.renderConversation())
	m.view.GotoBottom()
}

// View renders the full frame.
func (m Model) View() string {
	if m.quit {
		return ""
	}

	switch m.mode {
	case modeHistory:
		return m.renderHistoryPicker()
	case modePending:
		return m.renderPendingList()
	}

	var b strings.Builder
	b.WriteString(m.view.View())
	b.WriteString("\n")

	if tools := m.deps.Conversation.RunningTools(); len(tools) > 0 {
		b.WriteString(styleRunning.Render(m.spin.View()+" "+strings.Join(tools, ", ")) + "\n")
	} else if m.deps.Conversation.Streaming() {
		b.WriteString(styleRunning.Render(m.spin.View()+" thinking") + "\n")
	} else {
		b.WriteString("\n")
	}

	if errText := m.deps.Conversation.LastError(); errText != "" {
		b.WriteString(styleError.Render("✗ "+errText) + "\n")
	} else if m.status != "" {
		b.WriteString(styleError.Render(m.status) + "\n")
	} else if n := len(m.deps.Pending.Items()); n > 0 {
		b.WriteString(stylePendingBar.Render(pluralPending(n)+" awaiting confirmation — ctrl+p") + "\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n" + styleHints.Render("enter send · ctrl+r regenerate · ctrl+n new · ctrl+h history · ctrl+p pending · esc quit"))
	return b.String()
}

func pluralPending(n int) string {
	if n == 1 {
		return "1 recurring expense"
	}
	return fmt.Sprintf("%d recurring expenses", n)
}
