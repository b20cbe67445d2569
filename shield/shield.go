// CLAUDE:SUMMARY Reusable HTTP middleware — security headers, request ids with per-request loggers, body limits.
// Package shield provides reusable HTTP middleware for the API surface:
// security headers, request-id injection with a per-request structured
// logger, and JSON body limits.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.RequestID(logger))
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxJSONBody(1 << 20))
package shield

import (
	"context"
	"log/slog"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
