package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/protocol"
)

type recorder struct {
	messages [][]byte
	fail     error
}

func (r *recorder) WriteMessage(kind int, data []byte) error {
	if r.fail != nil {
		return r.fail
	}
	if kind != websocket.TextMessage {
		return errors.New("unexpected message type")
	}
	r.messages = append(r.messages, data)
	return nil
}

func TestReadFrames_CaptureTimestamps(t *testing.T) {
	hand := gesture.SyntheticFor(gesture.Victory)
	msg, err := protocol.NewLandmarksMessage([]gesture.Landmarks{hand}, 0)
	require.NoError(t, err)
	handsJSON := strings.TrimPrefix(string(msg.Data), "{")

	input := `{"capture_ts":1000,` + handsJSON + "\n" +
		"\n" +
		`{"capture_ts":1250,"hands":[]}` + "\n"

	frames, err := readFrames(strings.NewReader(input), time.Second)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, time.Duration(0), frames[0].at)
	assert.Equal(t, 250*time.Millisecond, frames[1].at)
	require.Len(t, frames[0].hands, 1)
	assert.Equal(t, gesture.Victory, gesture.Classify(frames[0].hands[0], time.Now()).Category)
	assert.Empty(t, frames[1].hands)
}

func TestReadFrames_Interval(t *testing.T) {
	input := "{\"hands\":[]}\n{\"hands\":[]}\n{\"hands\":[]}\n"
	frames, err := readFrames(strings.NewReader(input), 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, 200*time.Millisecond, frames[2].at)
}

func TestReadFrames_BadLine(t *testing.T) {
	_, err := readFrames(strings.NewReader("{\"hands\":[]}\nnope\n"), time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDemoFrames(t *testing.T) {
	interval := 100 * time.Millisecond
	frames := demoFrames(interval)
	require.NotEmpty(t, frames)

	var total time.Duration
	for _, step := range demoScript {
		total += step.hold
	}
	last := frames[len(frames)-1]
	assert.Less(t, last.at, total)

	for i := 1; i < len(frames); i++ {
		assert.GreaterOrEqual(t, frames[i].at, frames[i-1].at, "frames are ordered")
	}

	// Every scripted category shows up, classified back to itself
	seen := map[gesture.Category]bool{}
	for _, f := range frames {
		if len(f.hands) == 0 {
			seen[gesture.Unknown] = true
			continue
		}
		seen[gesture.Classify(f.hands[0], time.Now()).Category] = true
	}
	for _, step := range demoScript {
		assert.True(t, seen[step.category], step.category.String())
	}
}

func TestPlay(t *testing.T) {
	frames := []frame{
		{at: 0, hands: []gesture.Landmarks{gesture.SyntheticFor(gesture.Point)}},
		{at: 10 * time.Millisecond},
		{at: 20 * time.Millisecond},
	}

	var rec recorder
	start := time.Now()
	sent, err := play(context.Background(), &rec, frames, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "speed scales the schedule")

	msg, err := protocol.ParseMessage(rec.messages[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeLandmarks, msg.Type)
	data, err := msg.GetLandmarksData()
	require.NoError(t, err)
	assert.Len(t, data.Hands, 1)
	assert.NotZero(t, data.CaptureTS)
}

func TestPlay_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec recorder
	sent, err := play(ctx, &rec, []frame{{at: 0}, {at: time.Hour}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sent)
}

func TestPlay_WriteError(t *testing.T) {
	rec := recorder{fail: errors.New("broken pipe")}
	_, err := play(context.Background(), &rec, []frame{{at: 0}}, 1)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestDescribeEvent(t *testing.T) {
	intent, _ := protocol.NewIntentMessage("LOVE", "I", false, gesture.State{Category: gesture.Victory, Confidence: 0.9})
	combo, _ := protocol.NewIntentMessage("I LOVE YOU", "YOU", true, gesture.State{})
	lowered, _ := protocol.NewIntentMessage("", "LOVE", false, gesture.State{})
	mode, _ := protocol.NewModeMessage("idle", "morphing")
	state, _ := protocol.NewStateMessage(protocol.StateData{Mode: "idle"})

	tests := []struct {
		name string
		msg  *protocol.Message
		want string
	}{
		{"intent", intent, `intent: "LOVE" via victory (0.90)`},
		{"combo", combo, `intent: "I LOVE YOU" combo`},
		{"lowered", lowered, `intent: hand lowered (was "LOVE")`},
		{"mode", mode, "mode: idle -> morphing"},
		{"state ignored", state, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.msg.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, describeEvent(raw))
		})
	}

	assert.Empty(t, describeEvent([]byte("garbage")))
}
