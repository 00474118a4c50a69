package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blernix/tableback-sub000/internal/infrastructure/analytics"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// Broadcaster fans one domain event out to every connection registered for a
// tenant. It reads registry snapshots only, so fan-out never contends with
// the registration path.
type Broadcaster struct {
	registry *Registry
	recorder analytics.Recorder

	// writeTimeout bounds each per-connection write so one slow client
	// cannot stall delivery to the rest of the snapshot.
	writeTimeout time.Duration

	logger  logger.Logger
	metrics *Metrics
}

func NewBroadcaster(
	registry *Registry,
	recorder analytics.Recorder,
	writeTimeout time.Duration,
	log logger.Logger,
	metrics *Metrics,
) *Broadcaster {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if recorder == nil {
		recorder = analytics.NopRecorder{}
	}
	return &Broadcaster{
		registry:     registry,
		recorder:     recorder,
		writeTimeout: writeTimeout,
		logger:       log.WithField("component", "broadcaster"),
		metrics:      metrics,
	}
}

// Emit stamps the event, snapshots the tenant's connections and writes the
// event to each. A write failure tears down that connection only and
// iteration continues. Returns the number of connections that received the
// event.
func (b *Broadcaster) Emit(ctx context.Context, tenantID string, event *Event) int {
	event.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Errorf("marshal %s event: %v", event.Type, err)
		return 0
	}

	snapshot := b.registry.ListByTenant(tenantID)
	delivered := 0

	for _, conn := range snapshot {
		attemptID := b.recorder.LogAttempt(conn.SubjectID(), tenantID, string(event.Type), conn.ID())

		wctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
		err := conn.transport.Send(wctx, string(event.Type), payload)
		cancel()

		if err != nil {
			b.recorder.MarkFailed(attemptID, err.Error())
			conn.logger.Warnf("broadcast write failed: %v", err)
			conn.Teardown(CloseReasonBroadcast)
			if b.metrics != nil {
				b.metrics.EventsFailed.WithLabelValues(string(event.Type)).Inc()
			}
			continue
		}

		b.recorder.MarkDelivered(attemptID)
		delivered++
		if b.metrics != nil {
			b.metrics.EventsDelivered.WithLabelValues(string(event.Type)).Inc()
		}
	}

	b.logger.WithFields(logger.Fields{
		"tenant_id":  tenantID,
		"event_type": string(event.Type),
		"delivered":  delivered,
		"snapshot":   len(snapshot),
	}).Info("event emitted")
	return delivered
}
