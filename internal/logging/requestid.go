// Package logging provides request ID context propagation and a minimal
// level switch on top of the standard logger.
package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "requestId"

// GenerateRequestID creates an 8-character request ID.
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Prefix renders "[id] " for the request in ctx, or "" when there is none.
func Prefix(ctx context.Context) string {
	if id := GetRequestID(ctx); id != "" {
		return "[" + id + "] "
	}
	return ""
}

var debugEnabled atomic.Bool

// SetLevel configures whether Debugf output is emitted.
func SetLevel(level string) {
	debugEnabled.Store(strings.EqualFold(level, "debug"))
}

// Debugf logs only when the level is debug.
func Debugf(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf("🔍 "+format, args...)
	}
}
