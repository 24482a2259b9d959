package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrEmptyInput           = fmt.Errorf("empty input")
	ErrStreaming            = fmt.Errorf("a response stream is already active")
	ErrNotStreaming         = fmt.Errorf("no response stream is active")
	ErrNoUserTurn           = fmt.Errorf("conversation has no user turn")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrEmptyTranscript      = fmt.Errorf("transcript has no turns")
	ErrPendingNotFound      = fmt.Errorf("pending item not found")
	ErrPendingBusy          = fmt.Errorf("pending item has a request in flight")
	ErrTransport            = fmt.Errorf("backend unreachable")
	ErrStreamClosed         = fmt.Errorf("event stream closed unexpectedly")
	ErrConfigLoad           = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "History.Load")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryable reports whether err is a transient transport error the user
// may reasonably retry by hand. No automatic retry happens anywhere.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrStreamClosed)
}
