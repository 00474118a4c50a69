package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport pushes event frames over a WebSocket. It exists for
// dashboards behind proxies that buffer or break event streams; the hub
// treats it exactly like the SSE leg: outbound only, a failed write kills it.
type WebSocketTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closed   bool
	closedMu sync.RWMutex
}

var _ Transport = (*WebSocketTransport)(nil)

func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// Send writes the payload as one text frame. The event name travels inside
// the payload's "type" field, so the frame is the payload verbatim.
func (t *WebSocketTransport) Send(ctx context.Context, event string, data []byte) error {
	return t.write(ctx, func() error {
		return t.conn.WriteMessage(websocket.TextMessage, data)
	})
}

func (t *WebSocketTransport) KeepAlive(ctx context.Context) error {
	return t.write(ctx, func() error {
		return t.conn.WriteMessage(websocket.PingMessage, nil)
	})
}

func (t *WebSocketTransport) write(ctx context.Context, frame func() error) error {
	if t.Closed() {
		return fmt.Errorf("websocket transport is closed")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		t.markClosed()
		return fmt.Errorf("websocket set deadline: %w", err)
	}

	if err := frame(); err != nil {
		t.markClosed()
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

func (t *WebSocketTransport) Close() error {
	t.closedMu.Lock()
	if t.closed {
		t.closedMu.Unlock()
		return nil
	}
	t.closed = true
	t.closedMu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	t.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return t.conn.Close()
}

func (t *WebSocketTransport) Closed() bool {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.closed
}

func (t *WebSocketTransport) markClosed() {
	t.closedMu.Lock()
	t.closed = true
	t.closedMu.Unlock()
}
