// Package hub fans messages out to websocket viewers. One goroutine owns the
// client set; producers never block on slow viewers.
package hub

import "github.com/teslashibe/go-motionblend/pkg/protocol"

// Message is one pre-encoded protocol envelope, written as a text frame.
type Message struct {
	Data []byte
}

// FromProtocol encodes a protocol envelope.
func FromProtocol(m *protocol.Message) (Message, error) {
	data, err := m.Bytes()
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
