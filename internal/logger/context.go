package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // Correlation trace ID
	Worker    string    // Worker name (ingestor, health, sink, ...)
	Station   string    // Ground station ID
	Packet    string    // Packet name being processed
	ClientIP  string    // Client IP address (admin API)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the named worker
func NewLogContext(worker string) *LogContext {
	return &LogContext{
		Worker:    worker,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	out := *lc
	return &out
}

// WithStation returns a copy with the station set
func (lc *LogContext) WithStation(station string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Station = station
	}
	return clone
}

// WithPacket returns a copy with the packet name set
func (lc *LogContext) WithPacket(packet string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Packet = packet
	}
	return clone
}

// WithTrace returns a copy with the trace ID set
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
