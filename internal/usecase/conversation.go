package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"penny-ai/internal/domain"
)

// Conversation is the streaming state machine for one active conversation.
// It is the sole writer of its message log: stream events arrive on a
// consumer goroutine and are applied one at a time under the lock, so no
// two events ever touch the log concurrently. Readers get copies.
//
// States are idle and streaming. Submit moves idle -> streaming; the
// terminal done or error event moves streaming -> idle. A new submission
// is rejected while streaming (no mid-flight cancellation), except that
// Regenerate truncates and restarts.
type Conversation struct {
	mu           sync.RWMutex
	id           string // backend conversation id, "" until the first conversation_id event
	msgs         []domain.Message
	streaming    bool
	gen          uint64 // bumped per opened stream; stale consumers check it and bail
	runningTools []string
	lastErr      string

	opener domain.StreamOpener
	logger *slog.Logger

	// notify is signalled (non-blocking) after every applied event so a
	// front-end can re-read the snapshot. Buffered by one: coalescing
	// redundant wakeups is fine, losing the last one is not.
	notify chan struct{}

	// onSaveExpense fires after a save_expense tool completes; the pending
	// queue hooks this to refresh newly-due recurring occurrences.
	onSaveExpense func()
}

// NewConversation creates an idle conversation with an empty log.
func NewConversation(opener domain.StreamOpener, logger *slog.Logger) *Conversation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversation{
		opener: opener,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
}

// Updates returns a channel signalled whenever the log or status changed.
func (c *Conversation) Updates() <-chan struct{} { return c.notify }

// SetSaveExpenseHook registers a callback fired after each completed
// save_expense tool call. Must be set before the first Submit.
func (c *Conversation) SetSaveExpenseHook(fn func()) { c.onSaveExpense = fn }

// ConversationID returns the bound backend id, or "" for a fresh conversation.
func (c *Conversation) ConversationID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Streaming reports whether a response stream is active.
func (c *Conversation) Streaming() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.streaming
}

// CanSend reports whether a new submission would be accepted.
func (c *Conversation) CanSend() bool { return !c.Streaming() }

// Messages returns a copy of the message log. Tool-call slices are copied
// too: the consumer goroutine writes results into the live log in place,
// and a snapshot must never observe those writes.
func (c *Conversation) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]domain.Message, len(c.msgs))
	copy(cp, c.msgs)
	for i := range cp {
		if len(cp[i].ToolCalls) == 0 {
			continue
		}
		calls := make([]domain.ToolCall, len(cp[i].ToolCalls))
		copy(calls, cp[i].ToolCalls)
		cp[i].ToolCalls = calls
	}
	return cp
}

// RunningTools returns the names of tools currently executing, in start order.
func (c *Conversation) RunningTools() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]string, len(c.runningTools))
	copy(cp, c.runningTools)
	return cp
}

// LastError returns the most recent surfaced error message, or "".
func (c *Conversation) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ClearError resets the surfaced error.
func (c *Conversation) ClearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
	c.wake()
}

// Submit sends a text turn. The trimmed text must be non-empty.
func (c *Conversation) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.NewDomainError("Conversation.Submit", domain.ErrEmptyInput, "")
	}
	return c.submit(ctx, domain.NewUserMessage(text, nil))
}

// SubmitAudio sends a voice turn. Text and audio are exclusive per turn.
func (c *Conversation) SubmitAudio(ctx context.Context, audio *domain.AudioAttachment) error {
	if audio == nil {
		return domain.NewDomainError("Conversation.SubmitAudio", domain.ErrEmptyInput, "")
	}
	return c.submit(ctx, domain.NewUserMessage("", audio))
}

func (c *Conversation) submit(ctx context.Context, user domain.Message) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return domain.NewDomainError("Conversation.Submit", domain.ErrStreaming, "")
	}
	c.msgs = append(c.msgs, user, domain.NewAssistantPlaceholder())
	c.streaming = true
	c.gen++
	gen := c.gen
	c.lastErr = ""
	req := domain.SubmitRequest{
		ConversationID: c.id,
		Text:           user.Text(),
		Audio:          user.Audio,
	}
	c.mu.Unlock()
	c.wake()

	return c.open(ctx, req, gen)
}

// Regenerate re-runs the last user turn: the log is truncated back to (and
// including) that turn, a fresh placeholder is appended, and the stream is
// reopened with the same content. The user turn itself is not touched.
func (c *Conversation) Regenerate(ctx context.Context) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return domain.NewDomainError("Conversation.Regenerate", domain.ErrStreaming, "")
	}
	idx := -1
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].Role == domain.RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.NewDomainError("Conversation.Regenerate", domain.ErrNoUserTurn, "")
	}
	user := c.msgs[idx]
	c.msgs = append(c.msgs[:idx+1], domain.NewAssistantPlaceholder())
	c.streaming = true
	c.gen++
	gen := c.gen
	c.lastErr = ""
	req := domain.SubmitRequest{
		ConversationID: c.id,
		Text:           user.Text(),
		Audio:          user.Audio,
	}
	c.mu.Unlock()
	c.wake()

	return c.open(ctx, req, gen)
}

// open starts the stream and hands it to the consumer goroutine. On an
// open failure streaming never starts: the empty placeholder is dropped,
// the user turn stays, and the error is surfaced.
func (c *Conversation) open(ctx context.Context, req domain.SubmitRequest, gen uint64) error {
	events, err := c.opener.OpenStream(ctx, req)
	if err != nil {
		c.mu.Lock()
		if n := len(c.msgs); n > 0 && c.msgs[n-1].Role == domain.RoleAssistant && c.msgs[n-1].IsEmpty() {
			c.msgs = c.msgs[:n-1]
		}
		c.streaming = false
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.wake()
		return domain.WrapOp("Conversation.open", err)
	}

	go c.consume(events, gen)
	return nil
}

// consume applies stream events sequentially until the channel closes.
// gen pins the consumer to the stream it was started for: once a newer
// stream has been opened, leftover events and the late close of this one
// are no-ops.
func (c *Conversation) consume(events <-chan domain.StreamEvent, gen uint64) {
	for ev := range events {
		c.apply(ev, gen)
	}

	// A stream that closes without a terminal event is treated as a
	// transport failure so the UI never hangs in streaming.
	c.mu.Lock()
	if c.streaming && gen == c.gen {
		c.streaming = false
		c.runningTools = nil
		c.lastErr = domain.ErrStreamClosed.Error()
		c.mu.Unlock()
		c.wake()
		return
	}
	c.mu.Unlock()
}

// apply mutates the open placeholder (the last log entry) for one event.
// All ordering invariants live here. Events from a superseded stream
// generation are dropped.
func (c *Conversation) apply(ev domain.StreamEvent, gen uint64) {
	c.mu.Lock()

	if !c.streaming || gen != c.gen || len(c.msgs) == 0 {
		c.mu.Unlock()
		return
	}
	cur := &c.msgs[len(c.msgs)-1]

	switch ev.Type {
	case domain.EventConversationID:
		if c.id == "" {
			c.id = ev.ConversationID
		}

	case domain.EventText:
		// Narration before the first tool renders above the cards,
		// everything after renders below them.
		if len(cur.ToolCalls) == 0 {
			cur.TextBefore += ev.Text
		} else {
			cur.TextAfter += ev.Text
		}

	case domain.EventToolStart:
		id := ev.ToolID
		if id == "" {
			id = domain.NewID()
		}
		cur.ToolCalls = append(cur.ToolCalls, domain.ToolCall{ID: id, Name: ev.ToolName})
		c.runningTools = append(c.runningTools, ev.ToolName)

	case domain.EventToolEnd:
		c.removeRunning(ev.ToolName)
		for i := range cur.ToolCalls {
			if cur.ToolCalls[i].ID == ev.ToolID {
				cur.ToolCalls[i].Result = ev.Result
				if ev.ToolName == domain.ToolSaveExpense && c.onSaveExpense != nil {
					defer c.onSaveExpense()
				}
				break
			}
		}
		// An unmatched id is a no-op.

	case domain.EventDone:
		if cur.IsEmpty() {
			c.msgs = c.msgs[:len(c.msgs)-1]
		}
		c.streaming = false
		c.runningTools = nil

	case domain.EventError:
		c.lastErr = ev.Error
		c.streaming = false
		c.runningTools = nil
		c.logger.Warn("stream error", "conversation", c.id, "error", ev.Error)
	}

	c.mu.Unlock()
	c.wake()
}

func (c *Conversation) removeRunning(name string) {
	for i, n := range c.runningTools {
		if n == name {
			c.runningTools = append(c.runningTools[:i], c.runningTools[i+1:]...)
			return
		}
	}
}

// Reset clears the log and unbinds the conversation id. Rejected while
// streaming; callers gate navigation away from an in-flight stream.
func (c *Conversation) Reset() error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return domain.NewDomainError("Conversation.Reset", domain.ErrStreaming, "")
	}
	c.id = ""
	c.msgs = nil
	c.runningTools = nil
	c.lastErr = ""
	c.mu.Unlock()
	c.wake()
	return nil
}

// ReplaceLog swaps in a rehydrated message log wholesale. Used by the
// history manager; never merges with in-flight state.
func (c *Conversation) ReplaceLog(id string, msgs []domain.Message) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return domain.NewDomainError("Conversation.ReplaceLog", domain.ErrStreaming, "")
	}
	c.id = id
	c.msgs = msgs
	c.runningTools = nil
	c.lastErr = ""
	c.mu.Unlock()
	c.wake()
	return nil
}

func (c *Conversation) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
