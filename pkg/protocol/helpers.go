package protocol

import (
	"errors"
	"fmt"
	"time"
)

// ErrWrongType is returned when a payload is read as the wrong message type.
var ErrWrongType = errors.New("protocol: wrong message type")

func NewFrameMessage(f FrameData) (*Message, error) {
	return NewMessage(TypeFrame, f)
}

func NewTransitionMessage(t TransitionData) (*Message, error) {
	return NewMessage(TypeTransition, t)
}

func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage stamps the ping with the sender's clock.
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage answers ping id. Latency is measured on the responder's clock,
// so it is only meaningful when both ends share one.
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

func payload[T any](m *Message, want MessageType) (*T, error) {
	if m.Type != want {
		return nil, fmt.Errorf("%w: have %q, want %q", ErrWrongType, m.Type, want)
	}
	var data T
	if err := m.ParseData(&data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", want, err)
	}
	return &data, nil
}

func (m *Message) GetFrameData() (*FrameData, error) { return payload[FrameData](m, TypeFrame) }

func (m *Message) GetTransitionData() (*TransitionData, error) {
	return payload[TransitionData](m, TypeTransition)
}

func (m *Message) GetErrorData() (*ErrorData, error) { return payload[ErrorData](m, TypeError) }

func (m *Message) GetPingData() (*PingData, error) { return payload[PingData](m, TypePing) }

func (m *Message) GetPongData() (*PongData, error) { return payload[PongData](m, TypePong) }
