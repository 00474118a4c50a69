package hub

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

func newTestLogger() logger.Logger {
	log := logger.NewLogrusLogger(logger.NewDefaultConfig())
	log.SetOutput(io.Discard)
	return log
}

func newTestRegistry(limits Limits) *Registry {
	return NewRegistry(Options{
		Limits: limits,
		// Long enough that no heartbeat fires unless a test wants it to.
		HeartbeatInterval: time.Hour,
		WriteTimeout:      time.Second,
		Logger:            newTestLogger(),
	})
}

type fakeFrame struct {
	event string
	data  []byte
}

// fakeTransport records frames and can be told to fail, mirroring how the
// real transports mark themselves dead on a failed write.
type fakeTransport struct {
	mu         sync.Mutex
	frames     []fakeFrame
	keepAlives int
	failSend   bool
	failProbe  bool
	closed     bool
	closeCalls int
}

func (t *fakeTransport) Send(ctx context.Context, event string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	if t.failSend {
		t.closed = true
		return fmt.Errorf("write failed")
	}
	t.frames = append(t.frames, fakeFrame{event: event, data: data})
	return nil
}

func (t *fakeTransport) KeepAlive(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport is closed")
	}
	if t.failProbe {
		t.closed = true
		return fmt.Errorf("probe failed")
	}
	t.keepAlives++
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCalls++
	return nil
}

func (t *fakeTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) sentFrames() []fakeFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]fakeFrame(nil), t.frames...)
}

func (t *fakeTransport) probeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keepAlives
}

func (t *fakeTransport) markDead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// fakeRecorder counts analytics calls.
type fakeRecorder struct {
	mu        sync.Mutex
	attempts  int
	delivered int
	failed    int
}

func (r *fakeRecorder) LogAttempt(subjectID, tenantID, eventType, connectionID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	return fmt.Sprintf("attempt-%d", r.attempts)
}

func (r *fakeRecorder) MarkDelivered(attemptID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered++
}

func (r *fakeRecorder) MarkFailed(attemptID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}
