package ingest

import (
	"encoding/json"
	"fmt"
)

// The stream endpoint speaks the Action Cable framing: a subscribe command
// opens the streaming channel, an "add" action carries the packet list, and
// data frames arrive with the records batched under "message".

// streamingChannel is the channel identifier, itself a JSON string.
const streamingChannel = `{"channel":"StreamingChannel"}`

type clientCommand struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
	Data       string `json:"data,omitempty"`
}

func subscribeCommand() clientCommand {
	return clientCommand{Command: "subscribe", Identifier: streamingChannel}
}

// addPacketsCommand builds the "add" action subscribing the given packets
// for live streaming (no start or end time).
func addPacketsCommand(scope, token string, packets []string) (clientCommand, error) {
	data, err := json.Marshal(map[string]any{
		"action":     "add",
		"scope":      scope,
		"token":      token,
		"packets":    packets,
		"start_time": nil,
		"end_time":   nil,
	})
	if err != nil {
		return clientCommand{}, fmt.Errorf("marshal add action: %w", err)
	}
	return clientCommand{
		Command:    "message",
		Identifier: streamingChannel,
		Data:       string(data),
	}, nil
}

// serverFrame is one frame from the stream server. Control frames carry a
// Type (welcome, ping, confirm_subscription, disconnect); data frames carry
// the record batch in Message.
type serverFrame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
}

const (
	frameWelcome    = "welcome"
	framePing       = "ping"
	frameConfirm    = "confirm_subscription"
	frameReject     = "reject_subscription"
	frameDisconnect = "disconnect"
)

// records decodes the data batch of a frame. Returns nil for an empty or
// absent batch.
func (f *serverFrame) records() ([]map[string]any, error) {
	if len(f.Message) == 0 {
		return nil, nil
	}
	var recs []map[string]any
	if err := json.Unmarshal(f.Message, &recs); err != nil {
		return nil, fmt.Errorf("decode record batch: %w", err)
	}
	return recs, nil
}

// packetName extracts the routing identity of one streamed record.
func packetName(rec map[string]any) (string, bool) {
	name, ok := rec["__packet"].(string)
	return name, ok && name != ""
}
