package usecase

import (
	"context"
	"log/slog"
	"sync"

	"penny-ai/internal/domain"
)

// PendingAPI is the backend surface for deferred recurring occurrences.
type PendingAPI interface {
	ListPending(ctx context.Context) ([]domain.PendingItem, error)
	ConfirmPending(ctx context.Context, id string) error
	SkipPending(ctx context.Context, id string) error
}

// PendingQueue tracks recurring-expense occurrences awaiting confirm or
// skip. Confirm and skip are optimistic: success removes the item locally
// with no tombstone, failure leaves it in place for a user-driven retry.
// The server is authoritative on the next Refresh.
//
// Items act independently: an in-flight confirm on one row never blocks
// another row, but a row rejects a second confirm/skip while its own
// request is outstanding.
type PendingQueue struct {
	mu     sync.Mutex
	items  []domain.PendingItem
	busy   map[string]bool
	api    PendingAPI
	logger *slog.Logger
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue(api PendingAPI, logger *slog.Logger) *PendingQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingQueue{busy: make(map[string]bool), api: api, logger: logger}
}

// Refresh replaces the queue with server truth. Called on initial load and
// after each successful save_expense, since saving can surface newly-due
// occurrences. Busy flags of in-flight rows survive the refresh.
func (q *PendingQueue) Refresh(ctx context.Context) error {
	items, err := q.api.ListPending(ctx)
	if err != nil {
		return domain.WrapOp("PendingQueue.Refresh", err)
	}

	q.mu.Lock()
	q.items = make([]domain.PendingItem, len(items))
	copy(q.items, items)
	q.mu.Unlock()
	return nil
}

// Items returns a copy of the queue in server order.
func (q *PendingQueue) Items() []domain.PendingItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := make([]domain.PendingItem, len(q.items))
	copy(cp, q.items)
	return cp
}

// Busy reports whether the item has a confirm/skip request outstanding.
func (q *PendingQueue) Busy(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy[id]
}

// Confirm confirms one occurrence.
func (q *PendingQueue) Confirm(ctx context.Context, id string) error {
	return q.resolve(ctx, "PendingQueue.Confirm", id, q.api.ConfirmPending)
}

// Skip skips one occurrence.
func (q *PendingQueue) Skip(ctx context.Context, id string) error {
	return q.resolve(ctx, "PendingQueue.Skip", id, q.api.SkipPending)
}

func (q *PendingQueue) resolve(ctx context.Context, op, id string, call func(context.Context, string) error) error {
	q.mu.Lock()
	if !q.contains(id) {
		q.mu.Unlock()
		return domain.NewDomainError(op, domain.ErrPendingNotFound, id)
	}
	if q.busy[id] {
		q.mu.Unlock()
		return domain.NewDomainError(op, domain.ErrPendingBusy, id)
	}
	q.busy[id] = true
	q.mu.Unlock()

	err := call(ctx, id)

	q.mu.Lock()
	delete(q.busy, id)
	if err == nil {
		q.remove(id)
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("pending action failed", "op", op, "pending_id", id, "error", err)
		return domain.WrapOp(op, err)
	}
	return nil
}

// contains and remove run under q.mu.
func (q *PendingQueue) contains(id string) bool {
	for _, item := range q.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (q *PendingQueue) remove(id string) {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
