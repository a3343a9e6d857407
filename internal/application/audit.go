package application

import (
	"context"
	"log/slog"

	"github.com/bnema/mailbot/internal/ports"
)

// Audit event names.
const (
	EventCircuitFailure      = "circuit.failure"
	EventCircuitOpened       = "circuit.opened"
	EventCircuitReset        = "circuit.reset"
	EventTokenRefreshed      = "token.refreshed"
	EventTokenReauthRequired = "token.reauth_required"
	EventTokenSaved          = "token.saved"
	EventSessionStarted      = "session.started"
	EventSessionReplaced     = "session.replaced"
	EventSessionStep         = "session.step"
	EventSessionSubmitted    = "session.submitted"
	EventSessionFailed       = "session.failed"
	EventSessionCancelled    = "session.cancelled"
	EventSessionExpired      = "session.expired"
	EventDigestRun           = "digest.run"
	EventChatRejected        = "chat.rejected"
	EventQueryAnswered       = "query.answered"
	EventQueryFailed         = "query.failed"
	EventDaemonStarted       = "daemon.started"
	EventDaemonStopped       = "daemon.stopped"
)

// recordAudit never fails the caller: an unwritable audit log is logged and
// otherwise ignored.
func recordAudit(ctx context.Context, audit ports.AuditLog, logger *slog.Logger, event string, fields map[string]any) {
	if err := audit.Record(ctx, event, fields); err != nil {
		logger.Warn("audit record failed", "event", event, "error", err)
	}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
