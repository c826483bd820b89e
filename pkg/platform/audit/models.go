// Package audit captures the decision trail screenings leave behind. Events
// are transport-agnostic; stores persist them and sinks fan them out to
// external systems.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// such as screening policy changes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. These can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture one screening outcome or
// administrative action. The screened text itself is never stored, only its
// hash.
type Event struct {
	Category       EventCategory `json:"category"`
	Timestamp      time.Time     `json:"timestamp"`
	Action         string        `json:"action"`
	RequestID      string        `json:"request_id,omitempty"`
	ListType       string        `json:"list_type,omitempty"`
	Decision       string        `json:"decision,omitempty"`
	RiskLevel      string        `json:"risk_level,omitempty"`
	Reasoning      string        `json:"reasoning,omitempty"`
	QueryHash      string        `json:"query_hash,omitempty"`
	BestEntityID   string        `json:"best_entity_id,omitempty"`
	CandidateCount int           `json:"candidate_count,omitempty"`
	ActorID        string        `json:"actor_id,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	ProcessingTime time.Duration `json:"processing_time_ns,omitempty"`
}

// AuditEvent names the actions the service records.
type AuditEvent string

const (
	EventScreeningDecided AuditEvent = "screening_decided"
	EventScreeningBlocked AuditEvent = "screening_blocked"
	EventPolicyUpdated    AuditEvent = "policy_updated"
	EventCacheInvalidated AuditEvent = "index_cache_invalidated"
)

// eventCategories maps each audit event to its category. Screening outcomes
// are regulatory evidence; policy changes feed security monitoring.
var eventCategories = map[AuditEvent]EventCategory{
	EventScreeningDecided: CategoryCompliance,
	EventScreeningBlocked: CategoryCompliance,
	EventPolicyUpdated:    CategorySecurity,
	EventCacheInvalidated: CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// HashQuery hashes the screened text for the trail. Raw query text is PII
// and never leaves the request scope.
func HashQuery(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink forwards audit events to an external system (message broker, SIEM).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
