package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStoresConnection(t *testing.T) {
	registry := newTestRegistry(DefaultLimits())
	defer registry.Close()

	conn, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
	require.NoError(t, err)

	assert.NotEmpty(t, conn.ID())
	assert.Equal(t, "tenant-1", conn.TenantID())
	assert.Equal(t, "subject-1", conn.SubjectID())
	assert.Equal(t, StateOpen, conn.State())
	assert.False(t, conn.ConnectedAt().IsZero())

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, 1, registry.CountByTenant("tenant-1"))
	assert.Equal(t, 1, registry.CountBySubject("subject-1"))

	snapshot := registry.ListByTenant("tenant-1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, conn.ID(), snapshot[0].ID())
}

func TestUnregisterIsIdempotent(t *testing.T) {
	registry := newTestRegistry(DefaultLimits())
	defer registry.Close()

	transport := &fakeTransport{}
	conn, err := registry.Register("tenant-1", "subject-1", transport)
	require.NoError(t, err)

	assert.True(t, registry.Unregister(conn.ID()))
	assert.False(t, registry.Unregister(conn.ID()))

	assert.Equal(t, StateClosed, conn.State())
	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 1, transport.closeCalls)

	assert.False(t, registry.Unregister("no-such-id"))
}

func TestSubjectCapEvictsOldest(t *testing.T) {
	registry := newTestRegistry(Limits{MaxPerSubject: 5, MaxPerTenant: 50})
	defer registry.Close()

	transports := make([]*fakeTransport, 6)
	conns := make([]*Connection, 6)
	for i := 0; i < 6; i++ {
		transports[i] = &fakeTransport{}
		conn, err := registry.Register("tenant-1", "subject-1", transports[i])
		require.NoError(t, err)
		conns[i] = conn
	}

	assert.Equal(t, 5, registry.CountBySubject("subject-1"))
	assert.Equal(t, StateClosed, conns[0].State())
	assert.True(t, transports[0].Closed())

	remaining := registry.ListByTenant("tenant-1")
	ids := make(map[string]bool, len(remaining))
	for _, conn := range remaining {
		ids[conn.ID()] = true
	}
	assert.False(t, ids[conns[0].ID()], "oldest connection should be evicted")
	for _, conn := range conns[1:] {
		assert.True(t, ids[conn.ID()])
		assert.Equal(t, StateOpen, conn.State())
	}
}

func TestTenantCapRejects(t *testing.T) {
	registry := newTestRegistry(Limits{MaxPerSubject: 1, MaxPerTenant: 2})
	defer registry.Close()

	_, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
	require.NoError(t, err)
	_, err = registry.Register("tenant-1", "subject-2", &fakeTransport{})
	require.NoError(t, err)

	transport := &fakeTransport{}
	_, err = registry.Register("tenant-1", "subject-3", transport)
	require.Error(t, err)
	assert.True(t, IsLimitExceeded(err))

	// Rejection must not mutate the registry.
	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, 2, registry.CountByTenant("tenant-1"))
	assert.Equal(t, 0, registry.CountBySubject("subject-3"))

	// Other tenants are unaffected.
	_, err = registry.Register("tenant-2", "subject-3", &fakeTransport{})
	require.NoError(t, err)
}

func TestEvictionFreesTenantSlot(t *testing.T) {
	// With both caps at 1, re-registering the same subject must evict the
	// old connection and admit the new one in a single atomic step rather
	// than rejecting on the tenant cap.
	registry := newTestRegistry(Limits{MaxPerSubject: 1, MaxPerTenant: 1})
	defer registry.Close()

	first, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
	require.NoError(t, err)

	second, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
	require.NoError(t, err)

	assert.Equal(t, StateClosed, first.State())
	assert.Equal(t, StateOpen, second.State())
	assert.Equal(t, 1, registry.CountByTenant("tenant-1"))
	assert.Equal(t, 1, registry.CountBySubject("subject-1"))
}

func TestConcurrentRegistrationsHoldSubjectCap(t *testing.T) {
	registry := newTestRegistry(Limits{MaxPerSubject: 5, MaxPerTenant: 50})
	defer registry.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, registry.CountBySubject("subject-1"))
	assert.Equal(t, 5, registry.Len())
}

func TestCloseTearsDownEverything(t *testing.T) {
	registry := newTestRegistry(DefaultLimits())

	conns := make([]*Connection, 3)
	for i := range conns {
		conn, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
		require.NoError(t, err)
		conns[i] = conn
	}

	registry.Close()

	assert.Equal(t, 0, registry.Len())
	for _, conn := range conns {
		assert.Equal(t, StateClosed, conn.State())
	}

	_, err := registry.Register("tenant-1", "subject-1", &fakeTransport{})
	require.Error(t, err)
	assert.False(t, IsLimitExceeded(err))
}
