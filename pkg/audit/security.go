// Package audit provides security audit logging for SIEM consumption.
// Events are written as structured JSON under the "security_audit" logger.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a user-supplied identifier.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventStatementRejected is logged when a statement is refused before reaching the cluster.
	EventStatementRejected SecurityEventType = "statement_rejected"
	// EventQueryExecution is logged for statements run on a compute cluster.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	ProjectID uuid.UUID         `json:"project_id"`
	UserEmail string            `json:"user_email,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails describes a flagged identifier.
type InjectionDetails struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

// SecurityAuditor logs security events.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func userEmail(ctx context.Context) string {
	if user, ok := auth.GetUser(ctx); ok {
		return user.Email
	}
	return ""
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, projectID uuid.UUID, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		ProjectID: projectID,
		UserEmail: userEmail(ctx),
		Details:   details,
		Severity:  severity,
	}
	// Marshaling these known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogInjectionAttempt records an identifier flagged as SQL injection.
// Logged at ERROR level with "critical" severity.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, projectID uuid.UUID, details InjectionDetails) {
	event, eventJSON := a.event(ctx, EventSQLInjectionAttempt, projectID, "critical", details)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", eventJSON),
		zap.String("project_id", projectID.String()),
		zap.String("kind", details.Kind),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("user_email", event.UserEmail),
		zap.String("severity", event.Severity),
	)
}

// LogStatementRejected records a statement refused by validation, such as a
// write sent to the read-only endpoint.
func (a *SecurityAuditor) LogStatementRejected(ctx context.Context, projectID uuid.UUID, statement, reason string) {
	event, eventJSON := a.event(ctx, EventStatementRejected, projectID, "warning", map[string]string{
		"statement": logging.SanitizeQuery(statement),
		"reason":    reason,
	})

	a.logger.Warn("Statement rejected",
		zap.String("event_json", eventJSON),
		zap.String("project_id", projectID.String()),
		zap.String("reason", reason),
		zap.String("user_email", event.UserEmail),
		zap.String("severity", event.Severity),
	)
}

// LogQueryExecution records a statement run on a cluster. High volume.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, projectID uuid.UUID, statement string, rows int) {
	event, eventJSON := a.event(ctx, EventQueryExecution, projectID, "info", map[string]any{
		"statement": logging.SanitizeQuery(statement),
		"rows":      rows,
	})

	a.logger.Info("Query executed",
		zap.String("event_json", eventJSON),
		zap.String("project_id", projectID.String()),
		zap.Int("rows", rows),
		zap.String("user_email", event.UserEmail),
		zap.String("severity", event.Severity),
	)
}
