package gateway

import (
	"context"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"penny-ai/internal/domain"
)

// openWebSocket opens the alternate WebSocket framing of the event stream:
// one JSON SubmitRequest out, a JSON StreamEvent per message back.
func (c *Client) openWebSocket(ctx context.Context, req domain.SubmitRequest) (<-chan domain.StreamEvent, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	wsURL := c.endpoint("chat", "ws")
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	if err := wsjson.Write(ctx, conn, req); err != nil {
		conn.Close(websocket.StatusInternalError, "write failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	ch := make(chan domain.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var ev domain.StreamEvent
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				// Closed without a terminal event; the state machine
				// reports the broken stream.
				return
			}
			if ev.Type == "" {
				continue
			}

			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}

			if ev.Type == domain.EventDone || ev.Type == domain.EventError {
				return
			}
		}
	}()
	return ch, nil
}
