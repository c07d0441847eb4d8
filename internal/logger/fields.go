package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs from the
// bridge, decoders, workers, and the admin API can be aggregated and queried
// with the same vocabulary.
const (
	// ========================================================================
	// Tracing & correlation
	// ========================================================================
	KeyTraceID   = "trace_id"   // Request/trace ID for correlation
	KeyRequestID = "request_id" // HTTP request ID (chi middleware)

	// ========================================================================
	// Ground stations & brokers
	// ========================================================================
	KeyStation   = "station"   // Ground station identifier (gs-blr-01, ...)
	KeyBroker    = "broker"    // Broker role: A (local) or B (station)
	KeyTopic     = "topic"     // MQTT or logical topic name
	KeyDirection = "direction" // Message direction: rx, tx
	KeyBand      = "band"      // Radio band: sband, xband

	// ========================================================================
	// Telemetry packets & decoding
	// ========================================================================
	KeyPacket   = "packet"    // Full packet name (RAW__TLM__...)
	KeyTable    = "table"     // Target database table (core packet name)
	KeyRows     = "rows"      // Number of decoded rows / inserted rows
	KeyInstance = "instance"  // Segment instance index within a packet
	KeyQueueID  = "queue_id"  // Queue/submodule ID byte from the header
	KeyPayload  = "payload"   // Hex payload (truncated by the caller)
	KeyConsumed = "consumed"  // Bytes consumed by a decode pass
	KeyExpected = "expected"  // Bytes expected by a decode pass

	// ========================================================================
	// Bus (AMQP)
	// ========================================================================
	KeyExchange   = "exchange"    // AMQP exchange name
	KeyQueue      = "queue"       // AMQP queue name
	KeyRoutingKey = "routing_key" // AMQP routing key

	// ========================================================================
	// Alerts
	// ========================================================================
	KeyMetric    = "metric"    // Metric name under evaluation
	KeySeverity  = "severity"  // Alert severity: RED, AMBER, YELLOW
	KeyValue     = "value"     // Observed metric value
	KeyAlertID   = "alert_id"  // Database ID of a persisted alert
	KeySubmodule = "submodule" // Spacecraft submodule name

	// ========================================================================
	// Client identification (admin API)
	// ========================================================================
	KeyClientIP = "client_ip" // Client IP address
	KeyRoles    = "roles"     // Roles presented in X-User-Roles

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyWorker     = "worker"      // Worker name: ingestor, health, sink, ...
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyBytes      = "bytes"       // Byte count for a message or frame
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyURL        = "url"         // Upstream URL (broker, websocket, SMTP)
	KeyStatus     = "status"      // HTTP status or connection status
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for a correlation trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// Station returns a slog.Attr for a ground station ID
func Station(id string) slog.Attr {
	return slog.String(KeyStation, id)
}

// Broker returns a slog.Attr for the broker role (A or B)
func Broker(role string) slog.Attr {
	return slog.String(KeyBroker, role)
}

// Topic returns a slog.Attr for an MQTT or logical topic
func Topic(t string) slog.Attr {
	return slog.String(KeyTopic, t)
}

// Direction returns a slog.Attr for message direction (rx or tx)
func Direction(d string) slog.Attr {
	return slog.String(KeyDirection, d)
}

// Band returns a slog.Attr for a radio band
func Band(b string) slog.Attr {
	return slog.String(KeyBand, b)
}

// Packet returns a slog.Attr for a full packet name
func Packet(name string) slog.Attr {
	return slog.String(KeyPacket, name)
}

// Table returns a slog.Attr for a target database table
func Table(name string) slog.Attr {
	return slog.String(KeyTable, name)
}

// Rows returns a slog.Attr for a row count
func Rows(n int) slog.Attr {
	return slog.Int(KeyRows, n)
}

// Instance returns a slog.Attr for a segment instance index
func Instance(i int) slog.Attr {
	return slog.Int(KeyInstance, i)
}

// QueueID returns a slog.Attr for the header queue/submodule ID byte
func QueueID(id uint8) slog.Attr {
	return slog.Int(KeyQueueID, int(id))
}

// PayloadHex returns a slog.Attr for a binary payload rendered as hex
func PayloadHex(b []byte) slog.Attr {
	return slog.String(KeyPayload, fmt.Sprintf("%x", b))
}

// Exchange returns a slog.Attr for an AMQP exchange
func Exchange(name string) slog.Attr {
	return slog.String(KeyExchange, name)
}

// Queue returns a slog.Attr for an AMQP queue
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// RoutingKey returns a slog.Attr for an AMQP routing key
func RoutingKey(key string) slog.Attr {
	return slog.String(KeyRoutingKey, key)
}

// Metric returns a slog.Attr for a metric name
func Metric(name string) slog.Attr {
	return slog.String(KeyMetric, name)
}

// Severity returns a slog.Attr for an alert severity
func Severity(s string) slog.Attr {
	return slog.String(KeySeverity, s)
}

// Value returns a slog.Attr for an observed metric value
func Value(v float64) slog.Attr {
	return slog.Float64(KeyValue, v)
}

// AlertID returns a slog.Attr for a persisted alert's database ID
func AlertID(id int64) slog.Attr {
	return slog.Int64(KeyAlertID, id)
}

// Submodule returns a slog.Attr for a spacecraft submodule name
func Submodule(name string) slog.Attr {
	return slog.String(KeySubmodule, name)
}

// ClientIP returns a slog.Attr for a client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Roles returns a slog.Attr for the roles presented by a request
func Roles(roles string) slog.Attr {
	return slog.String(KeyRoles, roles)
}

// Worker returns a slog.Attr for a worker name
func Worker(name string) slog.Attr {
	return slog.String(KeyWorker, name)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Bytes returns a slog.Attr for a byte count
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// URL returns a slog.Attr for an upstream URL
func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}
