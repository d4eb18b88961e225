package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types emitted by the auth flows. The set is closed on purpose:
// dashboards and alerting match on these exact strings.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventUserRegistered = "user_registered"
	EventPasswordChange = "password_change"
	EventAccountCreated = "account_created"
	EventAccountStatus  = "account_status_changed"
	EventAccountDeleted = "account_deleted"
)

// Login failure reasons carried in FailureReason. invalid_credentials covers
// both unknown email and wrong password so the audit log cannot be used for
// account enumeration either.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountLocked      = "account_locked"
	ReasonAccountDeactivated = "account_deactivated"
)

// AuditEvent is one security-relevant occurrence. Raw credentials and tokens
// never belong in any field here.
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes the security audit trail as structured log records,
// distinguishable from operational logging by the audit_type attribute.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records a login outcome. Failures log at WARN so a burst of
// them stands out at the default level.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = appendNonEmpty(attrs, "user_id", event.UserID)
	attrs = appendNonEmpty(attrs, "ip_address", event.IPAddress)
	attrs = appendNonEmpty(attrs, "user_agent", event.UserAgent)
	attrs = appendNonEmpty(attrs, "failure_reason", event.FailureReason)

	al.logger.LogAttrs(context.Background(), levelFor(event.Success), "audit", attrs...)
}

// LogPasswordChange records a password mutation (change, reset) and whether
// the caller proved the current credential first.
func (al *AuditLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "password"),
		slog.String("event_type", EventPasswordChange),
		slog.Bool("success", success),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)

	al.logger.LogAttrs(context.Background(), levelFor(success), "audit", attrs...)
}

// LogAccountAction records account-lifecycle events: registration, admin
// creation, activation toggles, deletion.
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

func levelFor(success bool) slog.Level {
	if success {
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
