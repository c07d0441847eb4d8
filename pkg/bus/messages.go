package bus

import (
	"time"

	"github.com/netrasat/groundcore/pkg/decoder"
)

// Wire envelopes shared by the workers on both sides of a queue.

// DecodedMeta identifies the packet a batch of rows came from.
type DecodedMeta struct {
	PacketName   string `json:"packet_name"`
	TimestampUTC string `json:"timestamp_utc"`
}

// DecodedEnvelope is the message published to the decoded exchange: one
// decode result, meta plus the ordered rows.
type DecodedEnvelope struct {
	Meta DecodedMeta    `json:"meta"`
	Data []*decoder.Row `json:"data"`
}

// NewDecodedEnvelope stamps an envelope with the current UTC time.
func NewDecodedEnvelope(packet string, rows []*decoder.Row) DecodedEnvelope {
	return DecodedEnvelope{
		Meta: DecodedMeta{
			PacketName:   packet,
			TimestampUTC: time.Now().UTC().Format(time.RFC3339),
		},
		Data: rows,
	}
}

// PersistFailure wraps a decoded envelope that could not be written to the
// database, parked on the persistence dead-letter queue.
type PersistFailure struct {
	Envelope     DecodedEnvelope `json:"envelope"`
	Error        string          `json:"error"`
	TimestampUTC string          `json:"timestamp_utc"`
}

// NewPersistFailure builds a persistence dead letter.
func NewPersistFailure(env DecodedEnvelope, err error) PersistFailure {
	return PersistFailure{
		Envelope:     env,
		Error:        err.Error(),
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
}

// DeadLetter records a packet that could not be decoded, with the payload
// preserved for replay.
type DeadLetter struct {
	PacketName   string `json:"packet_name"`
	PayloadHex   string `json:"hex_payload"`
	Error        string `json:"error,omitempty"`
	TimestampUTC string `json:"timestamp_utc"`
}

// NewDeadLetter builds a dead letter; err may be nil for schema misses.
func NewDeadLetter(packet, payloadHex string, err error) DeadLetter {
	dl := DeadLetter{
		PacketName:   packet,
		PayloadHex:   payloadHex,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		dl.Error = err.Error()
	}
	return dl
}
