package protocol

import (
	"github.com/teslashibe/go-morph/pkg/gesture"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message
func NewLandmarksMessage(hands []gesture.Landmarks, captureTS int64) (*Message, error) {
	data := LandmarksData{
		Hands:     make([][]gesture.Landmark, len(hands)),
		CaptureTS: captureTS,
	}
	for i, h := range hands {
		data.Hands[i] = []gesture.Landmark(h)
	}
	return NewMessage(TypeLandmarks, data)
}

// NewCommandMessage creates a command message
func NewCommandMessage(action, label string) (*Message, error) {
	return NewMessage(TypeCommand, CommandData{Action: action, Label: label})
}

// NewStateMessage creates a state message
func NewStateMessage(state StateData) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewIntentMessage creates an intent message
func NewIntentMessage(label, previous string, combo bool, g gesture.State) (*Message, error) {
	return NewMessage(TypeIntent, IntentData{
		Label:      label,
		Previous:   previous,
		Combo:      combo,
		Gesture:    g.Category.String(),
		Confidence: g.Confidence,
	})
}

// NewModeMessage creates a mode change message
func NewModeMessage(from, to string) (*Message, error) {
	return NewMessage(TypeMode, ModeData{From: from, To: to})
}

// NewConfigMessage creates a tracking configuration message
func NewConfigMessage(cfg ConfigData) (*Message, error) {
	return NewMessage(TypeConfig, cfg)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts landmarks from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommandData extracts a command from a message
func (m *Message) GetCommandData() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetIntentData extracts intent data from a message
func (m *Message) GetIntentData() (*IntentData, error) {
	var data IntentData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
