// Package chat implements the Bubble Tea terminal front-end for penny.
// It renders engine state and forwards intents; every state transition
// lives in the usecase layer.
package chat

import "penny-ai/internal/domain"

// EngineUpdatedMsg signals that the conversation log or status changed and
// the view should re-read its snapshot.
type EngineUpdatedMsg struct{}

// HistoryListMsg carries the history picker contents.
type HistoryListMsg struct {
	Summaries []domain.ConversationSummary
	Err       error
}

// HistoryActionMsg reports the outcome of a load.
type HistoryActionMsg struct {
	Err error
}

// HistoryDeletedMsg reports the outcome of deleting one conversation. The
// picker drops the row only once the backend confirmed.
type HistoryDeletedMsg struct {
	ID  string
	Err error
}

// PendingRefreshedMsg signals the pending queue was re-fetched.
type PendingRefreshedMsg struct {
	Err error
}

// PendingActionMsg reports the outcome of a confirm or skip.
type PendingActionMsg struct {
	ID  string
	Err error
}

// SubmitResultMsg reports a submission that failed before streaming started.
type SubmitResultMsg struct {
	Err error
}
