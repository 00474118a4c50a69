package hub

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// Reaper is the process-wide sweep that force-closes connections past their
// maximum lifetime and removes connections whose transport is already dead.
// It races freely with every other teardown trigger; Teardown's once-guard
// makes the second closer a no-op.
type Reaper struct {
	registry    *Registry
	interval    time.Duration
	maxDuration time.Duration

	running atomic.Bool
	logger  logger.Logger
	metrics *Metrics
}

func NewReaper(
	registry *Registry,
	interval, maxDuration time.Duration,
	log logger.Logger,
	metrics *Metrics,
) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxDuration <= 0 {
		maxDuration = time.Hour
	}
	return &Reaper{
		registry:    registry,
		interval:    interval,
		maxDuration: maxDuration,
		logger:      log.WithField("component", "reaper"),
		metrics:     metrics,
	}
}

// Start launches the sweep loop. It runs until ctx is cancelled.
func (rp *Reaper) Start(ctx context.Context) error {
	if !rp.running.CompareAndSwap(false, true) {
		return oops.Errorf("reaper is already running")
	}

	go func() {
		defer rp.running.Store(false)

		ticker := time.NewTicker(rp.interval)
		defer ticker.Stop()

		rp.logger.Infof("reaper started, sweeping every %s", rp.interval)
		for {
			select {
			case <-ticker.C:
				rp.Sweep(time.Now())
			case <-ctx.Done():
				rp.logger.Info("reaper stopped")
				return
			}
		}
	}()

	return nil
}

// Sweep walks a snapshot of all connections and tears down the expired and
// the dead. Exported so tests drive sweeps deterministically instead of
// waiting on wall-clock ticks. Returns the number of connections reaped by
// this call.
func (rp *Reaper) Sweep(now time.Time) int {
	reaped := 0
	for _, conn := range rp.registry.Snapshot() {
		switch {
		case now.Sub(conn.ConnectedAt()) > rp.maxDuration:
			if conn.Teardown(CloseReasonExpired) {
				reaped++
				if rp.metrics != nil {
					rp.metrics.Reaped.WithLabelValues(string(CloseReasonExpired)).Inc()
				}
			}
		case conn.transport.Closed():
			if conn.Teardown(CloseReasonDeadTransport) {
				reaped++
				if rp.metrics != nil {
					rp.metrics.Reaped.WithLabelValues(string(CloseReasonDeadTransport)).Inc()
				}
			}
		}
	}

	if reaped > 0 {
		rp.logger.Infof("sweep reaped %d connections", reaped)
	}
	return reaped
}
