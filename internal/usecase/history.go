package usecase

import (
	"context"
	"log/slog"
	"time"

	"penny-ai/internal/domain"
)

// HistoryAPI is the backend surface for persisted conversations.
type HistoryAPI interface {
	ListConversations(ctx context.Context, limit int) ([]domain.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) ([]domain.StoredTurn, error)
	// DeleteConversation treats a missing id as success.
	DeleteConversation(ctx context.Context, id string) error
}

// History lists, loads and deletes persisted conversations and rehydrates
// the active Conversation from stored transcripts. Load is a one-shot
// fetch-then-replace; the active log is untouched on any failure.
type History struct {
	api    HistoryAPI
	conv   *Conversation
	logger *slog.Logger
}

// NewHistory creates a history manager bound to the active conversation.
func NewHistory(api HistoryAPI, conv *Conversation, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{api: api, conv: conv, logger: logger}
}

// List returns up to limit summaries, most recent first. Read-only.
func (h *History) List(ctx context.Context, limit int) ([]domain.ConversationSummary, error) {
	summaries, err := h.api.ListConversations(ctx, limit)
	if err != nil {
		return nil, domain.WrapOp("History.List", err)
	}
	return summaries, nil
}

// Load fetches a transcript and replaces the active log wholly and
// atomically. A zero-turn transcript leaves the current conversation
// untouched: a just-created conversation may not be persisted yet, and
// loading it back must not wipe the live log.
func (h *History) Load(ctx context.Context, id string) error {
	turns, err := h.api.GetConversation(ctx, id)
	if err != nil {
		return domain.WrapOp("History.Load", err)
	}
	if len(turns) == 0 {
		h.logger.Debug("skipping empty transcript", "conversation", id)
		return domain.NewDomainError("History.Load", domain.ErrEmptyTranscript, id)
	}

	msgs := make([]domain.Message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, turnToMessage(turn))
	}
	return h.conv.ReplaceLog(id, msgs)
}

// Delete removes a conversation from history. Deleting the active
// conversation also resets the live log to a fresh empty one.
func (h *History) Delete(ctx context.Context, id string) error {
	if err := h.api.DeleteConversation(ctx, id); err != nil {
		return domain.WrapOp("History.Delete", err)
	}
	if h.conv.ConversationID() == id {
		return h.conv.Reset()
	}
	return nil
}

// New starts a fresh empty conversation, independent of persisted history.
func (h *History) New() error {
	return h.conv.Reset()
}

func turnToMessage(turn domain.StoredTurn) domain.Message {
	msg := domain.Message{
		ID:        domain.NewID(),
		Role:      turn.Role,
		TextAfter: turn.Content,
		Timestamp: parseTurnTimestamp(turn.Timestamp),
	}
	for _, tc := range turn.ToolCalls {
		id := tc.ID
		if id == "" {
			id = domain.NewID()
		}
		msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{ID: id, Name: tc.Name, Result: tc.Result})
	}
	return msg
}

// Timestamp formats accepted from the backend, most precise first.
var turnTimestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTurnTimestamp(s string) time.Time {
	for _, layout := range turnTimestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
