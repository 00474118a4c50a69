package hub

import (
	"github.com/samber/oops"
)

const (
	DefaultMaxPerSubject = 5
	DefaultMaxPerTenant  = 50
)

// Limits caps concurrent open connections per subject and per tenant. A
// subject over its cap loses its oldest connection to admit the new one; a
// tenant over its cap has the registration rejected outright.
type Limits struct {
	MaxPerSubject int
	MaxPerTenant  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPerSubject: DefaultMaxPerSubject,
		MaxPerTenant:  DefaultMaxPerTenant,
	}
}

// admitLocked validates a candidate registration against the caps and, when
// the subject is at its cap, selects the eviction victim. It mutates nothing:
// a tenant-cap rejection leaves the table untouched, and the caller removes
// the victim in the same critical section that inserts the newcomer. Must be
// called with the registry write lock held.
func (r *Registry) admitLocked(tenantID, subjectID string) (*Connection, error) {
	var victim *Connection
	if len(r.bySubject[subjectID]) >= r.limits.MaxPerSubject {
		victim = r.oldestForSubjectLocked(subjectID)
	}

	tenantCount := len(r.byTenant[tenantID])
	if victim != nil && victim.tenantID == tenantID {
		tenantCount--
	}
	if tenantCount >= r.limits.MaxPerTenant {
		return nil, oops.
			Code(CodeTenantLimitExceeded).
			With("tenant_id", tenantID).
			With("max_per_tenant", r.limits.MaxPerTenant).
			Errorf("tenant %s is at its connection cap (%d)", tenantID, r.limits.MaxPerTenant)
	}

	return victim, nil
}

// oldestForSubjectLocked picks the subject's connection with the smallest
// connectedAt, falling back to registration order when timestamps collide.
func (r *Registry) oldestForSubjectLocked(subjectID string) *Connection {
	var oldest *Connection
	for _, conn := range r.bySubject[subjectID] {
		if oldest == nil {
			oldest = conn
			continue
		}
		if conn.connectedAt.Before(oldest.connectedAt) ||
			(conn.connectedAt.Equal(oldest.connectedAt) && conn.seq < oldest.seq) {
			oldest = conn
		}
	}
	return oldest
}
