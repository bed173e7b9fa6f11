package commsutil

import (
	"encoding/json"
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Respond encodes v and replies to msg. Messages without a reply subject are
// ignored.
func Respond(msg *comms.Msg, v any) error {
	if msg.Reply == "" {
		return nil
	}
	data, err := EncodePayload(v)
	if err != nil {
		return fmt.Errorf("%s - encode reply: %w", codecLogPrefix, err)
	}
	return msg.Respond(data)
}

// Request sends in as JSON on subject and decodes the reply into out.
func Request(nc *comms.Conn, subject string, in, out any, timeout time.Duration) error {
	data, err := EncodePayload(in)
	if err != nil {
		return fmt.Errorf("%s - encode request: %w", codecLogPrefix, err)
	}
	msg, err := nc.Request(subject, data, timeout)
	if err != nil {
		return fmt.Errorf("%s - request %s: %w", codecLogPrefix, subject, err)
	}
	if err := DecodePayload(msg.Data, out); err != nil {
		return fmt.Errorf("%s - decode reply from %s: %w", codecLogPrefix, subject, err)
	}
	return nil
}
