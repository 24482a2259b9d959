// Package gateway is the HTTP client for the penny backend: conversation
// history, pending confirmations, and the response event stream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"penny-ai/internal/domain"
	"penny-ai/internal/infra/config"
	"penny-ai/internal/infra/tracer"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// Client talks to the backend REST surface. All calls are routed through a
// circuit breaker: when the backend fails repeatedly the circuit opens and
// calls fail fast without hammering it. An optional rate limiter throttles
// request starts. The client implements usecase.HistoryAPI,
// usecase.PendingAPI and domain.StreamOpener.
type Client struct {
	base      *url.URL
	transport string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a gateway client from server configuration.
func New(cfg config.ServerConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	cbTimeout := cfg.Breaker.Timeout
	if cbTimeout == 0 {
		cbTimeout = defaultCBTimeout
	}
	interval := cfg.Breaker.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	transport := cfg.Transport
	if transport == "" {
		transport = "sse"
	}

	return &Client{
		base:      base,
		transport: transport,
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/" + strings.Join(parts, "/")
	return u.String()
}

// do sends one request through the limiter and breaker. Transport-level
// failures come back wrapped in domain.ErrTransport.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrTransport)
		}
		return nil, err
	}
	return resp, nil
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListConversations implements usecase.HistoryAPI.
func (c *Client) ListConversations(ctx context.Context, limit int) ([]domain.ConversationSummary, error) {
	ctx, span := tracer.StartSpan(ctx, "gateway.list_conversations")
	defer span.End()

	rawURL := c.endpoint("conversations")
	if limit > 0 {
		rawURL += "?limit=" + strconv.Itoa(limit)
	}

	var body struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
	}
	if err := c.getJSON(ctx, rawURL, &body); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	return body.Conversations, nil
}

// GetConversation implements usecase.HistoryAPI.
func (c *Client) GetConversation(ctx context.Context, id string) ([]domain.StoredTurn, error) {
	ctx, span := tracer.StartSpan(ctx, "gateway.get_conversation")
	span.SetAttributes(tracer.StringAttr("conversation.id", id))
	defer span.End()

	resp, err := c.do(ctx, http.MethodGet, c.endpoint("conversations", url.PathEscape(id)), nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewDomainError("gateway.GetConversation", domain.ErrConversationNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var body struct {
		Turns []domain.StoredTurn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	return body.Turns, nil
}

// DeleteConversation implements usecase.HistoryAPI. A missing id counts as
// success: the conversation is gone either way.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	ctx, span := tracer.StartSpan(ctx, "gateway.delete_conversation")
	span.SetAttributes(tracer.StringAttr("conversation.id", id))
	defer span.End()

	resp, err := c.do(ctx, http.MethodDelete, c.endpoint("conversations", url.PathEscape(id)), nil)
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return nil
}

// ListPending implements usecase.PendingAPI.
func (c *Client) ListPending(ctx context.Context) ([]domain.PendingItem, error) {
	ctx, span := tracer.StartSpan(ctx, "gateway.list_pending")
	defer span.End()

	var body struct {
		Pending []domain.PendingItem `json:"pending"`
	}
	if err := c.getJSON(ctx, c.endpoint("pending"), &body); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	return body.Pending, nil
}

// ConfirmPending implements usecase.PendingAPI.
func (c *Client) ConfirmPending(ctx context.Context, id string) error {
	return c.pendingAction(ctx, id, "confirm")
}

// SkipPending implements usecase.PendingAPI.
func (c *Client) SkipPending(ctx context.Context, id string) error {
	return c.pendingAction(ctx, id, "skip")
}

func (c *Client) pendingAction(ctx context.Context, id, action string) error {
	ctx, span := tracer.StartSpan(ctx, "gateway.pending_"+action)
	span.SetAttributes(tracer.StringAttr("pending.id", id))
	defer span.End()

	resp, err := c.do(ctx, http.MethodPost, c.endpoint("pending", url.PathEscape(id), action), nil)
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewDomainError("gateway.pendingAction", domain.ErrPendingNotFound, id)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return nil
}

// OpenStream implements domain.StreamOpener using the configured transport.
func (c *Client) OpenStream(ctx context.Context, req domain.SubmitRequest) (<-chan domain.StreamEvent, error) {
	if c.transport == "websocket" {
		return c.openWebSocket(ctx, req)
	}
	return c.openSSE(ctx, req)
}

func (c *Client) openSSE(ctx context.Context, req domain.SubmitRequest) (<-chan domain.StreamEvent, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// The stream outlives the regular request timeout: a dedicated client
	// with no timeout, bounded only by ctx.
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("chat"), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := (&http.Client{}).Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrTransport)
		}
		return nil, err
	}

	return parseEventStream(ctx, resp.Body), nil
}
