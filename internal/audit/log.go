// Package audit emits append-only structured events for security-relevant
// actions: logins, registrations, bootstrap seeding and admin mutations.
package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"idfort.org/internal/iam"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Logger writes audit entries through the shared structured logger.
type Logger struct {
	log zerolog.Logger
}

// New builds an audit logger on top of the given zerolog sink.
func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("type", "audit").Logger()}
}

// Event records an audit entry enriched with request and actor context.
func (l *Logger) Event(ctx context.Context, event string, fields map[string]string) {
	if l == nil || strings.TrimSpace(event) == "" {
		return
	}
	e := l.log.Info().Str("event", event)
	if rid := requestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if actor, ok := iam.ActorFromContext(ctx); ok {
		e = e.Str("actor_id", actor.ID)
	}
	for k, v := range fields {
		e = e.Str(k, v)
	}
	e.Msg("audit")
}
