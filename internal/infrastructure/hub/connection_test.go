package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeardownRunsExactlyOnce(t *testing.T) {
	registry := newTestRegistry(DefaultLimits())
	defer registry.Close()

	transport := &fakeTransport{}
	conn, err := registry.Register("tenant-1", "subject-1", transport)
	require.NoError(t, err)

	reasons := []CloseReason{
		CloseReasonClient,
		CloseReasonHeartbeat,
		CloseReasonBroadcast,
		CloseReasonExpired,
		CloseReasonEvicted,
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	performed := 0
	for i := 0; i < 10; i++ {
		reason := reasons[i%len(reasons)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if conn.Teardown(reason) {
				mu.Lock()
				performed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, performed)
	assert.Equal(t, 1, transport.closeCalls)
	assert.Equal(t, StateClosed, conn.State())
	assert.Equal(t, 0, registry.Len())

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done should be closed after teardown")
	}
}

func TestHeartbeatFailureTriggersTeardown(t *testing.T) {
	registry := NewRegistry(Options{
		Limits:            DefaultLimits(),
		HeartbeatInterval: 5 * time.Millisecond,
		WriteTimeout:      time.Second,
		Logger:            newTestLogger(),
	})
	defer registry.Close()

	transport := &fakeTransport{failProbe: true}
	conn, err := registry.Register("tenant-1", "subject-1", transport)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return conn.State() == StateClosed
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 1, transport.closeCalls)
}

func TestHeartbeatProbesTransport(t *testing.T) {
	registry := NewRegistry(Options{
		Limits:            DefaultLimits(),
		HeartbeatInterval: 5 * time.Millisecond,
		WriteTimeout:      time.Second,
		Logger:            newTestLogger(),
	})
	defer registry.Close()

	transport := &fakeTransport{}
	conn, err := registry.Register("tenant-1", "subject-1", transport)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return transport.probeCount() >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateOpen, conn.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
}
