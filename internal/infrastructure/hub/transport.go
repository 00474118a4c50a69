package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/sse"
)

// Transport is a single outbound byte stream to one client. A failed write is
// the sole failure signal; there is no inbound channel. Implementations are
// exclusively owned by one Connection and must tolerate Close being called
// more than once.
type Transport interface {
	// Send writes one named event with a JSON payload.
	Send(ctx context.Context, event string, data []byte) error
	// KeepAlive writes a comment-only probe that carries no event.
	KeepAlive(ctx context.Context) error
	Close() error
	// Closed reports whether the stream is known dead, either closed
	// deliberately or broken by a failed write.
	Closed() bool
}

// SSETransport streams text/event-stream frames over an open HTTP response.
type SSETransport struct {
	writer http.ResponseWriter

	writeMu sync.Mutex

	closed   bool
	closedMu sync.RWMutex
}

var _ Transport = (*SSETransport)(nil)

// NewSSETransport prepares w for event streaming and writes the SSE headers.
func NewSSETransport(w http.ResponseWriter) *SSETransport {
	t := &SSETransport{writer: w}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // nginx buffers SSE otherwise

	return t
}

func (t *SSETransport) Send(ctx context.Context, event string, data []byte) error {
	return t.write(ctx, func() error {
		return sse.Encode(t.writer, sse.Event{
			Event: event,
			Data:  string(data),
		})
	})
}

func (t *SSETransport) KeepAlive(ctx context.Context) error {
	return t.write(ctx, func() error {
		_, err := fmt.Fprint(t.writer, ": keep-alive\n\n")
		return err
	})
}

// write performs one frame write and flush under the write lock, bounded by
// ctx. The response writer itself cannot be interrupted, so a stuck write is
// abandoned to its goroutine and the transport is marked dead.
func (t *SSETransport) write(ctx context.Context, frame func() error) error {
	if t.Closed() {
		return fmt.Errorf("sse transport is closed")
	}

	done := make(chan error, 1)
	go func() {
		t.writeMu.Lock()
		defer t.writeMu.Unlock()

		if err := frame(); err != nil {
			done <- err
			return
		}
		if flusher, ok := t.writer.(http.Flusher); ok {
			flusher.Flush()
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.markClosed()
			return fmt.Errorf("sse write failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		t.markClosed()
		return fmt.Errorf("sse write aborted: %w", ctx.Err())
	}
}

// Close marks the stream dead. The underlying response is owned by the HTTP
// handler and ends when the handler returns.
func (t *SSETransport) Close() error {
	t.markClosed()
	return nil
}

func (t *SSETransport) Closed() bool {
	t.closedMu.RLock()
	defer t.closedMu.RUnlock()
	return t.closed
}

func (t *SSETransport) markClosed() {
	t.closedMu.Lock()
	t.closed = true
	t.closedMu.Unlock()
}
