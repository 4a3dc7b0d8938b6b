// Package audit writes an append-only trail of money-moving operations to
// the structured log, enriched with the request and caller identity carried
// in the context.
package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	userIDKey    ctxKey = "audit_user_id"
)

// WithRequestID attaches the request identifier for later audit entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the attached request id, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID attaches the authenticated caller for later audit entries.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the attached caller id, if any.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// Event emits one audit entry. fields should identify the affected entities
// (transaction id, account ids, amount); request and user ids come from ctx.
func Event(ctx context.Context, log *zap.Logger, event string, fields map[string]string) {
	zf := make([]zap.Field, 0, len(fields)+3)
	zf = append(zf, zap.String("audit_event", event))
	if rid := RequestIDFromContext(ctx); rid != "" {
		zf = append(zf, zap.String("request_id", rid))
	}
	if uid := UserIDFromContext(ctx); uid != "" {
		zf = append(zf, zap.String("user_id", uid))
	}
	for k, v := range fields {
		zf = append(zf, zap.String(k, v))
	}
	log.Info("audit", zf...)
}
