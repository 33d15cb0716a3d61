// Package protocol defines the WebSocket message types exchanged between
// the morph server and browser clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-morph/pkg/gesture"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Browser → Server messages
	TypeLandmarks MessageType = "landmarks" // Hand landmarks from browser-side tracking
	TypeCommand   MessageType = "command"   // Manual engine trigger

	// Server → Browser messages
	TypeState  MessageType = "state"  // Periodic status snapshot
	TypeIntent MessageType = "intent" // Resolved label changed
	TypeMode   MessageType = "mode"   // Engine mode changed
	TypeConfig MessageType = "config" // Tracking parameters for the browser

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all JSON WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the given type and data
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
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
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Time returns the message timestamp, or the zero time if unset.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Browser → Server Message Types
// =============================================================================

// LandmarksData contains every hand seen in one browser camera frame
type LandmarksData struct {
	Hands     [][]gesture.Landmark `json:"hands"`                // 21 {x,y,z} points per hand
	CaptureTS int64                `json:"capture_ts,omitempty"` // Unix milliseconds at capture
}

// HandLandmarks converts the payload to gesture.Landmarks values.
func (d *LandmarksData) HandLandmarks() []gesture.Landmarks {
	hands := make([]gesture.Landmarks, len(d.Hands))
	for i, h := range d.Hands {
		hands[i] = gesture.Landmarks(h)
	}
	return hands
}

// CommandData requests a manual engine action
type CommandData struct {
	Action string `json:"action"`          // "explode", "disperse", "idle", "orbit", "text"
	Label  string `json:"label,omitempty"` // Text for "text" and "orbit"
}

// =============================================================================
// Server → Browser Message Types
// =============================================================================

// StateData is a periodic snapshot of the director
type StateData struct {
	Mode       string          `json:"mode"`
	Label      string          `json:"label"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Fingers    gesture.Fingers `json:"fingers"`
	HasHand    bool            `json:"has_hand"`
	Combo      bool            `json:"combo"`
	Frame      uint64          `json:"frame"`
	Session    string          `json:"session,omitempty"`
}

// IntentData announces a new resolved label
type IntentData struct {
	Label      string  `json:"label"` // "" means the hand was lowered
	Previous   string  `json:"previous"`
	Combo      bool    `json:"combo"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
}

// ModeData announces an engine mode change
type ModeData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ConfigData carries tracking parameters for browser-side hand tracking
type ConfigData struct {
	DetectionConfidence float64 `json:"detection_confidence"`
	TrackingConfidence  float64 `json:"tracking_confidence"`
	MaxHands            int     `json:"max_hands"`
	SampleIntervalMs    int64   `json:"sample_interval_ms"`
	ParticleCount       int     `json:"particle_count"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

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
