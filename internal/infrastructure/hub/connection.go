package hub

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// State is a connection's position in the Open -> Closing -> Closed machine.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason names the trigger that fired a teardown. Every trigger
// converges on the same idempotent Teardown; the reason only feeds logs,
// analytics and metrics.
type CloseReason string

const (
	CloseReasonClient        CloseReason = "client_closed"
	CloseReasonHeartbeat     CloseReason = "heartbeat_failed"
	CloseReasonBroadcast     CloseReason = "broadcast_write_failed"
	CloseReasonExpired       CloseReason = "max_duration_exceeded"
	CloseReasonDeadTransport CloseReason = "dead_transport"
	CloseReasonEvicted       CloseReason = "evicted"
	CloseReasonShutdown      CloseReason = "shutdown"
)

// Connection is one open push stream: a Transport plus its identity and the
// lifecycle machinery around it. Connections are created only by
// Registry.Register and destroyed only by Teardown.
type Connection struct {
	id          string
	tenantID    string
	subjectID   string
	transport   Transport
	connectedAt time.Time

	// seq breaks connectedAt ties when the limiter picks an eviction
	// victim; registration order is strictly increasing.
	seq uint64

	state atomic.Int32

	// ctx is cancelled as part of teardown; the heartbeat ticks off it and
	// handlers block on it.
	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	logger   logger.Logger
}

func newConnection(tenantID, subjectID string, transport Transport, seq uint64, r *Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	id := ulid.Make().String()
	return &Connection{
		id:          id,
		tenantID:    tenantID,
		subjectID:   subjectID,
		transport:   transport,
		connectedAt: time.Now(),
		seq:         seq,
		ctx:         ctx,
		cancel:      cancel,
		registry:    r,
		logger: r.logger.WithFields(logger.Fields{
			"connection_id": id,
			"tenant_id":     tenantID,
			"subject_id":    subjectID,
		}),
	}
}

func (c *Connection) ID() string             { return c.id }
func (c *Connection) TenantID() string       { return c.tenantID }
func (c *Connection) SubjectID() string      { return c.subjectID }
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

func (c *Connection) State() State {
	return State(c.state.Load())
}

// Done is closed once teardown has begun. Handlers block on it to keep the
// underlying response open for the connection's lifetime.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Teardown releases everything the connection owns: its heartbeat, its
// transport and its registry entry. It reports whether this call performed
// the teardown; any concurrent or repeated call is a no-op. All close
// triggers - client disconnect, heartbeat failure, broadcast write failure,
// reaper sweep, eviction, shutdown - land here.
func (c *Connection) Teardown(reason CloseReason) bool {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return false
	}

	c.cancel()
	if err := c.transport.Close(); err != nil {
		c.logger.Warnf("transport close: %v", err)
	}
	c.registry.remove(c.id)
	c.state.Store(int32(StateClosed))

	c.logger.WithField("reason", string(reason)).Info("connection closed")
	return true
}
