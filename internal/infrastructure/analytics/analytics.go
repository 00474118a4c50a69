package analytics

import (
	"github.com/oklog/ulid/v2"

	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
)

// Recorder tracks per-connection delivery attempts around each fan-out
// write. The hub calls it fire-and-forget: implementations must not block,
// and nothing they return or fail at may affect delivery to other
// connections.
type Recorder interface {
	// LogAttempt records that a write to one connection is about to happen
	// and returns an attempt id to settle later.
	LogAttempt(subjectID, tenantID, eventType, connectionID string) string
	MarkDelivered(attemptID string)
	MarkFailed(attemptID, reason string)
}

// logRecorder settles attempts into the structured log. It stands in for the
// external analytics collector in deployments that don't run one.
type logRecorder struct {
	logger logger.Logger
}

func NewLogRecorder(log logger.Logger) Recorder {
	return &logRecorder{logger: log.WithField("component", "analytics")}
}

func (r *logRecorder) LogAttempt(subjectID, tenantID, eventType, connectionID string) string {
	attemptID := ulid.Make().String()
	r.logger.WithFields(logger.Fields{
		"attempt_id":    attemptID,
		"subject_id":    subjectID,
		"tenant_id":     tenantID,
		"event_type":    eventType,
		"connection_id": connectionID,
	}).Debug("delivery attempt")
	return attemptID
}

func (r *logRecorder) MarkDelivered(attemptID string) {
	r.logger.WithField("attempt_id", attemptID).Debug("delivery succeeded")
}

func (r *logRecorder) MarkFailed(attemptID, reason string) {
	r.logger.WithFields(logger.Fields{
		"attempt_id": attemptID,
		"reason":     reason,
	}).Debug("delivery failed")
}

// NopRecorder discards everything.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) LogAttempt(subjectID, tenantID, eventType, connectionID string) string {
	return ""
}
func (NopRecorder) MarkDelivered(attemptID string)      {}
func (NopRecorder) MarkFailed(attemptID, reason string) {}
