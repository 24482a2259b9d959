package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"penny-ai/internal/usecase"
)

// waitForEngine blocks on the conversation's update channel and converts
// each wakeup into an EngineUpdatedMsg.
func waitForEngine(conv *usecase.Conversation) tea.Cmd {
	return func() tea.Msg {
		<-conv.Updates()
		return EngineUpdatedMsg{}
	}
}

func submitCmd(conv *usecase.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		return SubmitResultMsg{Err: conv.Submit(context.Background(), text)}
	}
}

func regenerateCmd(conv *usecase.Conversation) tea.Cmd {
	return func() tea.Msg {
		return SubmitResultMsg{Err: conv.Regenerate(context.Background())}
	}
}

func listHistoryCmd(history *usecase.History, limit int) tea.Cmd {
	return func() tea.Msg {
		summaries, err := history.List(context.Background(), limit)
		return HistoryListMsg{Summaries: summaries, Err: err}
	}
}

func loadHistoryCmd(history *usecase.History, id string) tea.Cmd {
	return func() tea.Msg {
		return HistoryActionMsg{Err: history.Load(context.Background(), id)}
	}
}

func deleteHistoryCmd(history *usecase.History, id string) tea.Cmd {
	return func() tea.Msg {
		return HistoryDeletedMsg{ID: id, Err: history.Delete(context.Background(), id)}
	}
}

func refreshPendingCmd(pending *usecase.PendingQueue) tea.Cmd {
	return func() tea.Msg {
		return PendingRefreshedMsg{Err: pending.Refresh(context.Background())}
	}
}

func confirmPendingCmd(pending *usecase.PendingQueue, id string) tea.Cmd {
	return func() tea.Msg {
		return PendingActionMsg{ID: id, Err: pending.Confirm(context.Background(), id)}
	}
}

func skipPendingCmd(pending *usecase.PendingQueue, id string) tea.Cmd {
	return func() tea.Msg {
		return PendingActionMsg{ID: id, Err: pending.Skip(context.Background(), id)}
	}
}
