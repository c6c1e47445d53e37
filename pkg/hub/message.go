// Package hub fans distance readings out to websocket subscribers
// through a single channel-owning goroutine.
package hub

// Message is one broadcast payload, written to subscribers as a websocket
// text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
