package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-realtime/core/metrics"
)

// connection is a single websocket to the realtime endpoint. Reads happen
// only on the bridge read loop; writes are serialized by writeMu.
type connection struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	writeWait time.Duration
	metrics   *metrics.Metrics

	closeOnce sync.Once
	closeErr  error
}

func dial(ctx context.Context, options BridgeOptions, apiKey, model string) (*connection, error) {
	endpoint, err := url.Parse(options.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime endpoint %q: %w", options.Endpoint, err)
	}
	queryParams := endpoint.Query()
	queryParams.Set("model", model)
	endpoint.RawQuery = queryParams.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)

	logger.Debug("connecting to realtime endpoint", "url", endpoint.Redacted())
	ws, resp, err := options.Dialer.DialContext(ctx, endpoint.String(), headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open socket connection: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	return &connection{
		ws:        ws,
		writeWait: options.WriteWait,
		metrics:   options.Metrics,
	}, nil
}

func (c *connection) send(messageType string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", messageType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", messageType, err)
	}
	c.metrics.MessageSent(messageType)
	return nil
}

func (c *connection) read() ([]byte, error) {
	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage {
			return msg, nil
		}
	}
}

// close sends a normal closure frame and releases the socket. Safe to call
// more than once.
func (c *connection) close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		writeErr := c.ws.WriteControl(websocket.CloseMessage, msg, deadline)

		if errors.Is(writeErr, websocket.ErrCloseSent) || errors.Is(writeErr, net.ErrClosed) {
			writeErr = nil
		}
		c.closeErr = errors.Join(writeErr, c.ws.Close())
	})
	return c.closeErr
}

// isNormalClosure reports whether err is the remote side ending the
// connection on purpose.
func isNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
