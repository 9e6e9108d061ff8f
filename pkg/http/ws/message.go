package ws

import "encoding/json"

// Message is the envelope pushed to monitor connections. Payload carries the
// already-encoded event body.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
