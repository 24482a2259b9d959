package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny-ai/internal/domain"
	"penny-ai/internal/usecase"
)

type stubOpener struct{}

func (stubOpener) OpenStream(context.Context, domain.SubmitRequest) (<-chan domain.StreamEvent, error) {
	ch := make(chan domain.StreamEvent)
	close(ch)
	return ch, nil
}

type stubHistoryAPI struct {
	deleteErr error
	deleted   []string
}

func (s *stubHistoryAPI) ListConversations(context.Context, int) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (s *stubHistoryAPI) GetConversation(context.Context, string) ([]domain.StoredTurn, error) {
	return nil, nil
}

func (s *stubHistoryAPI) DeleteConversation(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubPendingAPI struct{}

func (stubPendingAPI) ListPending(context.Context) ([]domain.PendingItem, error) { return nil, nil }
func (stubPendingAPI) ConfirmPending(context.Context, string) error              { return nil }
func (stubPendingAPI) SkipPending(context.Context, string) error                 { return nil }

func newHistoryPickerModel(api *stubHistoryAPI) Model {
	conv := usecase.NewConversation(stubOpener{}, nil)
	m := New(Deps{
		Conversation: conv,
		History:      usecase.NewHistory(api, conv, nil),
		Pending:      usecase.NewPendingQueue(stubPendingAPI{}, nil),
	})
	m.mode = modeHistory
	m.history = []domain.ConversationSummary{
		{ID: "c1", Label: "groceries"},
		{ID: "c2", Label: "rent"},
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHistoryDeleteRemovesRowOnConfirm(t *testing.T) {
	api := &stubHistoryAPI{}
	m := newHistoryPickerModel(api)

	updated, cmd := m.handleHistoryKey(keyMsg("x"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	require.Len(t, m.history, 2, "the row waits for backend confirmation")

	msg := cmd()
	deleted, ok := msg.(HistoryDeletedMsg)
	require.True(t, ok)
	require.NoError(t, deleted.Err)
	assert.Equal(t, []string{"c1"}, api.deleted)

	updated, _ = m.Update(msg)
	m = updated.(Model)
	require.Len(t, m.history, 1)
	assert.Equal(t, "c2", m.history[0].ID)
}

func TestHistoryDeleteFailureKeepsRow(t *testing.T) {
	api := &stubHistoryAPI{deleteErr: errors.New("boom")}
	m := newHistoryPickerModel(api)

	updated, cmd := m.handleHistoryKey(keyMsg("x"))
	m = updated.(Model)
	require.NotNil(t, cmd)

	updated, _ = m.Update(cmd())
	m = updated.(Model)
	assert.Len(t, m.history, 2, "a failed delete must not drop the row")
	assert.NotEmpty(t, m.status)
}

func TestHistoryDeleteClampsCursor(t *testing.T) {
	api := &stubHistoryAPI{}
	m := newHistoryPickerModel(api)
	m.cursor = 1

	updated, cmd := m.handleHistoryKey(keyMsg("x"))
	m = updated.(Model)

	updated, _ = m.Update(cmd())
	m = updated.(Model)
	require.Len(t, m.history, 1)
	assert.Equal(t, 0, m.cursor, "cursor stays in range after the last row goes")
}
