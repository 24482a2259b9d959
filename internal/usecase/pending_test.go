package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny-ai/internal/domain"
)

type fakePendingAPI struct {
	mu         sync.Mutex
	items      []domain.PendingItem
	listErr    error
	confirmErr error
	skipErr    error
	confirmed  []string
	skipped    []string

	// block, when set, stalls Confirm calls until released.
	block chan struct{}
}

func (f *fakePendingAPI) ListPending(context.Context) ([]domain.PendingItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakePendingAPI) ConfirmPending(_ context.Context, id string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, id)
	return nil
}

func (f *fakePendingAPI) SkipPending(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipErr != nil {
		return f.skipErr
	}
	f.skipped = append(f.skipped, id)
	return nil
}

func pendingFixture() []domain.PendingItem {
	return []domain.PendingItem{
		{ID: "p1", ExpenseName: "Rent", Amount: 1200, Category: "HOUSING"},
		{ID: "p2", ExpenseName: "Gym", Amount: 40, Category: "HEALTH"},
	}
}

func TestPendingRefresh(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture()}
	q := NewPendingQueue(api, nil)

	require.NoError(t, q.Refresh(context.Background()))
	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Rent", items[0].ExpenseName)
}

func TestPendingRefreshFailure(t *testing.T) {
	api := &fakePendingAPI{listErr: errors.New("boom")}
	q := NewPendingQueue(api, nil)

	require.Error(t, q.Refresh(context.Background()))
	assert.Empty(t, q.Items())
}

func TestPendingConfirmRemovesOptimistically(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture()}
	q := NewPendingQueue(api, nil)
	require.NoError(t, q.Refresh(context.Background()))

	require.NoError(t, q.Confirm(context.Background(), "p1"))

	assert.Equal(t, []string{"p1"}, api.confirmed)
	items := q.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
	assert.False(t, q.Busy("p1"))
}

func TestPendingSkip(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture()}
	q := NewPendingQueue(api, nil)
	require.NoError(t, q.Refresh(context.Background()))

	require.NoError(t, q.Skip(context.Background(), "p2"))
	assert.Equal(t, []string{"p2"}, api.skipped)
	require.Len(t, q.Items(), 1)
}

func TestPendingConfirmFailureKeepsItem(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture(), confirmErr: errors.New("500")}
	q := NewPendingQueue(api, nil)
	require.NoError(t, q.Refresh(context.Background()))

	require.Error(t, q.Confirm(context.Background(), "p1"))

	// The item stays for a user-driven retry; the row is usable again.
	assert.Len(t, q.Items(), 2)
	assert.False(t, q.Busy("p1"))
}

func TestPendingConfirmUnknownID(t *testing.T) {
	q := NewPendingQueue(&fakePendingAPI{}, nil)
	err := q.Confirm(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrPendingNotFound)
}

func TestPendingRowBusyBlocksSecondAction(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture(), block: make(chan struct{})}
	q := NewPendingQueue(api, nil)
	require.NoError(t, q.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- q.Confirm(context.Background(), "p1") }()

	// Wait until the row is marked busy, then a second action on the same
	// row is rejected while a different row stays actionable.
	require.Eventually(t, func() bool { return q.Busy("p1") }, 2*time.Second, time.Millisecond)

	err := q.Skip(context.Background(), "p1")
	require.ErrorIs(t, err, domain.ErrPendingBusy)

	require.NoError(t, q.Skip(context.Background(), "p2"))

	close(api.block)
	require.NoError(t, <-done)
	assert.Empty(t, q.Items())
}

func TestPendingRefreshPreservesBusyFlag(t *testing.T) {
	api := &fakePendingAPI{items: pendingFixture(), block: make(chan struct{})}
	q := NewPendingQueue(api, nil)
	require.NoError(t, q.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- q.Confirm(context.Background(), "p1") }()
	require.Eventually(t, func() bool { return q.Busy("p1") }, 2*time.Second, time.Millisecond)

	require.NoError(t, q.Refresh(context.Background()))
	assert.True(t, q.Busy("p1"), "in-flight row stays busy across a refresh")

	close(api.block)
	require.NoError(t, <-done)
}
