package eventapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StreamMessage is one change notification from the /realtime stream.
// Type is one of event.created|updated|deleted, booking.created|cancelled.
type StreamMessage struct {
	Type string `json:"type"`
}

// IsMutation reports whether the message describes an event or booking
// change worth a reload.
func (m StreamMessage) IsMutation() bool {
	return strings.HasPrefix(m.Type, "event.") || strings.HasPrefix(m.Type, "booking.")
}

// SubscribeRealtime consumes the service's push stream until the context
// is cancelled or the connection drops, invoking onMessage per parsed
// message. Both SSE ("data: {...}") and newline-delimited JSON framing
// are accepted.
func (c *Client) SubscribeRealtime(ctx context.Context, onMessage func(StreamMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/realtime", nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if t := c.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setStatus(StatusDisconnected)
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}
	c.setStatus(StatusConnected)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 16*1024), 256*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(data)
		}
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var msg StreamMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		onMessage(msg)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
