package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across cadence.
const (
	// Identity and context
	FieldFireID     = "fire_id"
	FieldArtifactID = "artifact_id"
	FieldRequestID  = "request_id"

	// Components
	FieldComponent = "component"
	FieldAdapter   = "adapter"

	// Scheduling
	FieldTrigger    = "trigger"
	FieldGeneration = "generation"
	FieldSource     = "source" // trigger or post_now
	FieldNextFire   = "next_fire"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldInterval   = "interval"

	// Errors
	FieldError = "error"
	FieldStep  = "step"

	// Counts
	FieldCount      = "count"
	FieldQueueDepth = "queue_depth"
	FieldPostsToday = "posts_today"

	// Status
	FieldStatus = "status"
	FieldState  = "state"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"

	FieldSymbol = "symbol" // glyph from package sym (꩜, ⊔, ...)
)

type contextKey string

const (
	fireIDKey    contextKey = "logger_fire_id"
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithFireID adds a fire ID to the context for logging
func WithFireID(ctx context.Context, fireID string) context.Context {
	return context.WithValue(ctx, fireIDKey, fireID)
}

// WithRequestID adds an operator request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context as key-value pairs
// suitable for Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if fireID, ok := ctx.Value(fireIDKey).(string); ok && fireID != "" {
		fields = append(fields, FieldFireID, fireID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base enriched with the fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named child of the global logger.
//
//	type Monitor struct {
//	    logger *zap.SugaredLogger
//	}
//
//	m.logger = logger.ComponentLogger("pulse.monitor")
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
