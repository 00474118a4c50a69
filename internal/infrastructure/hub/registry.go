package hub

import (
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// Options configures a Registry.
type Options struct {
	Limits Limits

	// HeartbeatInterval is the keep-alive probe period per connection.
	HeartbeatInterval time.Duration
	// WriteTimeout bounds each heartbeat write.
	WriteTimeout time.Duration

	Logger  logger.Logger
	Metrics *Metrics
}

// Registry is the shared table of open connections, with secondary indexes
// by tenant and by subject. It is the only shared mutable structure in the
// hub: register, unregister and all reads serialize on its lock, and fan-out
// only ever sees point-in-time snapshots. The Registry never writes to a
// transport itself.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Connection
	byTenant  map[string]map[string]*Connection
	bySubject map[string]map[string]*Connection
	nextSeq   uint64
	closed    bool

	limits            Limits
	heartbeatInterval time.Duration
	writeTimeout      time.Duration

	logger  logger.Logger
	metrics *Metrics
}

func NewRegistry(opts Options) *Registry {
	if opts.Limits.MaxPerSubject <= 0 {
		opts.Limits.MaxPerSubject = DefaultMaxPerSubject
	}
	if opts.Limits.MaxPerTenant <= 0 {
		opts.Limits.MaxPerTenant = DefaultMaxPerTenant
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	return &Registry{
		conns:             make(map[string]*Connection),
		byTenant:          make(map[string]map[string]*Connection),
		bySubject:         make(map[string]map[string]*Connection),
		limits:            opts.Limits,
		heartbeatInterval: opts.HeartbeatInterval,
		writeTimeout:      opts.WriteTimeout,
		logger:            opts.Logger.WithField("component", "registry"),
		metrics:           opts.Metrics,
	}
}

// Register admits a new connection for the given identity, applying the
// limiter atomically: cap validation, eviction-victim selection and the
// insert happen under one lock hold, so a concurrent registration for the
// same subject or tenant can never push a count above its cap. The evicted
// victim's transport is closed after the lock is released, through the
// shared idempotent teardown.
func (r *Registry) Register(tenantID, subjectID string, transport Transport) (*Connection, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return nil, oops.Errorf("registry is closed")
	}

	victim, err := r.admitLocked(tenantID, subjectID)
	if err != nil {
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.LimitRejections.Inc()
		}
		return nil, err
	}
	if victim != nil {
		r.removeLocked(victim.id)
	}

	r.nextSeq++
	conn := newConnection(tenantID, subjectID, transport, r.nextSeq, r)
	r.conns[conn.id] = conn
	indexPut(r.byTenant, tenantID, conn)
	indexPut(r.bySubject, subjectID, conn)

	if r.metrics != nil {
		r.metrics.OpenConnections.Inc()
		r.metrics.Registrations.Inc()
	}

	r.mu.Unlock()

	if victim != nil {
		victim.Teardown(CloseReasonEvicted)
		if r.metrics != nil {
			r.metrics.Evictions.Inc()
		}
	}

	go conn.runHeartbeat(r.heartbeatInterval, r.writeTimeout)

	conn.logger.Info("connection registered")
	return conn, nil
}

// Unregister tears down the connection with the given id. It reports whether
// this call removed an entry; repeated and concurrent calls for the same id
// are safe and return false.
func (r *Registry) Unregister(id string) bool {
	r.mu.RLock()
	conn := r.conns[id]
	r.mu.RUnlock()

	if conn == nil {
		return false
	}
	return conn.Teardown(CloseReasonClient)
}

// ListByTenant returns a point-in-time copy of the tenant's connections, so
// fan-out iteration is unaffected by concurrent register/unregister.
func (r *Registry) ListByTenant(tenantID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.byTenant[tenantID]))
	for _, conn := range r.byTenant[tenantID] {
		conns = append(conns, conn)
	}
	return conns
}

// Snapshot returns a point-in-time copy of every open connection.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) CountByTenant(tenantID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTenant[tenantID])
}

func (r *Registry) CountBySubject(subjectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySubject[subjectID])
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close refuses further registrations and tears down every connection.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, conn := range r.Snapshot() {
		conn.Teardown(CloseReasonShutdown)
	}
	r.logger.Info("registry closed")
}

// remove deletes the entry and its index rows. Called from Teardown; a
// second call for the same id is a no-op.
func (r *Registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	conn, ok := r.conns[id]
	if !ok {
		return false
	}

	delete(r.conns, id)
	indexDel(r.byTenant, conn.tenantID, id)
	indexDel(r.bySubject, conn.subjectID, id)

	if r.metrics != nil {
		r.metrics.OpenConnections.Dec()
	}
	return true
}

func indexPut(index map[string]map[string]*Connection, key string, conn *Connection) {
	bucket := index[key]
	if bucket == nil {
		bucket = make(map[string]*Connection)
		index[key] = bucket
	}
	bucket[conn.id] = conn
}

func indexDel(index map[string]map[string]*Connection, key, id string) {
	bucket := index[key]
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(index, key)
	}
}
