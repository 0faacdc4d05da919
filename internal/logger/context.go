package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context.
var logContextKey = contextKey{}

// LogContext holds connection/request-scoped logging fields that a handler
// or the streaming responder attaches to every log line it emits for one
// request (spec §4.1/§4.3: every request carries a stream_id and an
// opcode).
type LogContext struct {
	TraceID      string    // OpenTelemetry trace ID
	SpanID       string    // OpenTelemetry span ID
	ConnectionID string    // Connection identifier
	StreamID     uint16    // Wire stream_id
	Opcode       string    // Request opcode name
	ClientIP     string    // Client IP address (without port)
	StartTime    time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a connection from clientIP.
func NewLogContext(connectionID, clientIP string) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:      lc.TraceID,
		SpanID:       lc.SpanID,
		ConnectionID: lc.ConnectionID,
		StreamID:     lc.StreamID,
		Opcode:       lc.Opcode,
		ClientIP:     lc.ClientIP,
		StartTime:    lc.StartTime,
	}
}

// WithRequest returns a copy with the stream_id and opcode set for the
// request currently being dispatched.
func (lc *LogContext) WithRequest(streamID uint16, opcode string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StreamID = streamID
		clone.Opcode = opcode
		clone.StartTime = time.Now()
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
