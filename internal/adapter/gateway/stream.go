package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"penny-ai/internal/domain"
)

// parseEventStream reads SSE-formatted lines from body and converts each
// data payload into a domain.StreamEvent. The returned channel is closed
// after a terminal done/error event, when the body ends, or when ctx is
// cancelled. Unparseable lines are skipped: a bad event must never kill
// the stream.
func parseEventStream(ctx context.Context, body io.ReadCloser) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Bytes()

			// Skip empty lines and comments.
			if len(line) == 0 || line[0] == ':' {
				continue
			}

			// We only care about "data: ..." lines.
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			data := bytes.TrimPrefix(line, []byte("data: "))

			// Common termination signal.
			if bytes.Equal(data, []byte("[DONE]")) {
				ch <- domain.StreamEvent{Type: domain.EventDone}
				return
			}

			var ev domain.StreamEvent
			if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
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
		// An I/O error below leaves the channel closing without a terminal
		// event; the state machine surfaces that as a broken stream.
	}()
	return ch
}
