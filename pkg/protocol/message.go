// Package protocol defines the WebSocket messages streamed by the serving
// layer: played or generated frames, transition summaries and errors.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → client messages
	TypeFrame      MessageType = "frame"      // One pose frame
	TypeTransition MessageType = "transition" // A transition was generated
	TypeError      MessageType = "error"      // Request failure

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// Frame sources.
const (
	SourceTransition = "transition"
	SourceClip       = "clip"
)

// FrameData carries one frame as BVH channel values: root position then
// each joint's Euler angles in degrees, joints in depth-first hierarchy order.
type FrameData struct {
	Source   string    `json:"source"` // "transition" or "clip"
	ID       string    `json:"id"`     // transition id or clip name
	Index    int       `json:"index"`
	Total    int       `json:"total,omitempty"`
	State    string    `json:"state,omitempty"` // source_hold, blending, target_hold
	Weight   float64   `json:"weight"`
	Channels []float64 `json:"channels"`
}

// QualityMetrics mirrors the quality scores of a generated transition.
type QualityMetrics struct {
	Smoothness          float64 `json:"smoothness"`
	Naturalness         float64 `json:"naturalness"`
	StylePreservation   float64 `json:"style_preservation"`
	TemporalConsistency float64 `json:"temporal_consistency"`
}

// TransitionData summarizes a generated transition.
type TransitionData struct {
	ID        string         `json:"id"`
	Frames    int            `json:"frames"`
	FrameTime float64        `json:"frame_time"`
	Metrics   QualityMetrics `json:"quality_metrics"`
}

// ErrorData reports a failed request.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
