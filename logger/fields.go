package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldJobID     = "job_id"
	FieldSite      = "site"
	FieldHook      = "hook"
	FieldRequestID = "request_id"

	// Components
	FieldComponent = "component"

	// Scheduling
	FieldNextRun    = "nextrun"
	FieldInterval   = "interval"
	FieldSchedule   = "schedule"
	FieldOutcome    = "outcome"
	FieldGeneration = "generation"

	// Operations
	FieldOperation = "operation"
	FieldQuery     = "query"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
	FieldLimit = "limit"

	// Status
	FieldStatus = "status"

	FieldSymbol = "symbol" // glyph from package sym
)

// Context keys for propagating logging context
type contextKey string

const (
	siteKey      contextKey = "logger_site"
	requestIDKey contextKey = "logger_request_id"
)

// WithSite adds a tenant to the context for logging
func WithSite(ctx context.Context, site int64) context.Context {
	return context.WithValue(ctx, siteKey, site)
}

// WithRequestID adds a host request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if site, ok := ctx.Value(siteKey).(int64); ok && site > 0 {
		fields = append(fields, FieldSite, site)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}

	return fields
}

// FromContext returns base (or the global Logger when base is nil) with
// fields extracted from ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	store := jobs.NewStore(db, c, reg, logger.ComponentLogger("jobs"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
