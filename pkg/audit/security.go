// Package audit provides security audit logging for SIEM consumption.
// It logs workflow decisions and denied mutations on catalog content in
// structured JSON format for easy parsing and alerting.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventImplementationApproved is logged when an elevated actor moves an implementation to active.
	EventImplementationApproved SecurityEventType = "implementation_approved"
	// EventImplementationRejected is logged when an elevated actor moves an implementation to rejected.
	EventImplementationRejected SecurityEventType = "implementation_rejected"
	// EventImplementationDemoted is logged when an author's edit sends active content back to review.
	EventImplementationDemoted SecurityEventType = "implementation_demoted"
	// EventStatusOverride is logged when an elevated edit sets a status outside the review flow.
	EventStatusOverride SecurityEventType = "status_override"
	// EventAccessDenied is logged when a principal attempts a mutation it has no rights to.
	EventAccessDenied SecurityEventType = "access_denied"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  SecurityEventType `json:"event_type"`
	ActorID    string            `json:"actor_id,omitempty"`
	ActorRole  string            `json:"actor_role"`
	ResourceID string            `json:"resource_id"`
	PatternID  string            `json:"pattern_id,omitempty"`
	Details    any               `json:"details,omitempty"`
	Severity   string            `json:"severity"` // info, warning, critical
}

// StatusChange describes a workflow transition.
type StatusChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SecurityAuditor logs security events for SIEM consumption.
// A nil *SecurityAuditor discards every event.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

// LogStatusChange records a workflow transition of an implementation.
// Transitions to active or rejected by an elevated actor are approvals and
// rejections; active to pending is a demotion. Anything else is an override.
func (a *SecurityAuditor) LogStatusChange(actor models.Principal, impl *models.PatternImplementation, from, to string) {
	if a == nil || from == to {
		return
	}

	eventType := EventStatusOverride
	message := "Implementation status overridden"
	switch {
	case from == models.ImplementationStatusPending && to == models.ImplementationStatusActive:
		eventType, message = EventImplementationApproved, "Implementation approved"
	case from == models.ImplementationStatusPending && to == models.ImplementationStatusRejected:
		eventType, message = EventImplementationRejected, "Implementation rejected"
	case from == models.ImplementationStatusActive && to == models.ImplementationStatusPending && !actor.IsElevated():
		eventType, message = EventImplementationDemoted, "Implementation demoted to pending after author edit"
	}

	event := SecurityEvent{
		Timestamp:  a.now().UTC(),
		EventType:  eventType,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		ResourceID: impl.UUID.String(),
		PatternID:  impl.PatternID,
		Details:    StatusChange{From: from, To: to},
		Severity:   "info",
	}

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Info(message,
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(eventType)),
		zap.String("actor_id", actor.ID),
		zap.String("implementation_id", impl.UUID.String()),
		zap.String("pattern_id", impl.PatternID),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("severity", "info"),
	)
}

// LogAccessDenied records a mutation attempt rejected by the authorization policy.
// This is logged at WARN level: repeated denials from one principal are worth alerting on.
func (a *SecurityAuditor) LogAccessDenied(actor models.Principal, operation, resourceID, reason string) {
	if a == nil {
		return
	}

	event := SecurityEvent{
		Timestamp:  a.now().UTC(),
		EventType:  EventAccessDenied,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		ResourceID: resourceID,
		Details: map[string]string{
			"operation": operation,
			"reason":    reason,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Access denied",
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(EventAccessDenied)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", actor.Role),
		zap.String("operation", operation),
		zap.String("resource_id", resourceID),
		zap.String("reason", reason),
		zap.String("severity", "warning"),
	)
}
