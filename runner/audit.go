package runner

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// auditContextKey is the context key AuditContext is stored under.
type auditContextKey struct{}

// AuditContext carries scope-local caller identity for log correlation only — never
// for access control. It is generalized from the teacher's
// internal/database.AuthContext, which the teacher also used purely for audit
// logging rather than authorization; here that boundary is load-bearing: the
// visibility engine (C2) is a pure function of (backend, schema, table, column) and
// never consults this context, so a caller cannot widen or narrow what a query can
// see by what it puts in AuditContext.
type AuditContext struct {
	CallerID   string
	CallerRole string
}

// WithAudit attaches an AuditContext to ctx for the lifetime of one Run call.
func WithAudit(ctx context.Context, caller AuditContext) context.Context {
	return context.WithValue(ctx, auditContextKey{}, &caller)
}

// auditFromContext extracts the AuditContext, if any.
func auditFromContext(ctx context.Context) *AuditContext {
	auth, ok := ctx.Value(auditContextKey{}).(*AuditContext)
	if !ok {
		return nil
	}
	return auth
}

// newQueryID generates a correlation ID for one Run call, threaded into its audit
// log line and returned in Result.Meta so a caller can tie a result back to the log
// line that recorded it.
func newQueryID() string {
	return uuid.NewString()
}

// logQuery emits one structured audit line for a completed Run, with or without a
// caller identity attached.
func logQuery(ctx context.Context, backend, status, queryID string) {
	ev := log.Info()
	if auth := auditFromContext(ctx); auth != nil {
		ev = ev.Str("caller_id", auth.CallerID).Str("caller_role", auth.CallerRole)
	}
	ev.Str("backend", backend).Str("status", status).Str("query_id", queryID).Msg("query run")
}
