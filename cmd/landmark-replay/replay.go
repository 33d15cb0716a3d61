package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/protocol"
)

// frame is one landmarks message scheduled at an offset from the start
type frame struct {
	at    time.Duration
	hands []gesture.Landmarks
}

// messageWriter is satisfied by *websocket.Conn
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// readFrames parses JSONL where every line is a landmarks payload
// ({"hands": [...], "capture_ts": ms}). Offsets come from capture_ts
// when present, otherwise lines are spaced by interval.
func readFrames(r io.Reader, interval time.Duration) ([]frame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		frames  []frame
		firstTS int64
		line    int
	)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var data protocol.LandmarksData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		at := time.Duration(len(frames)) * interval
		if data.CaptureTS > 0 {
			if firstTS == 0 {
				firstTS = data.CaptureTS
			}
			at = time.Duration(data.CaptureTS-firstTS) * time.Millisecond
		}
		frames = append(frames, frame{at: at, hands: data.HandLandmarks()})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// demoStep holds one category for a while. Unknown means no hand.
type demoStep struct {
	category gesture.Category
	hold     time.Duration
}

// demoScript spells HELLO, I, LOVE, YOU, lowers the hand, then pulses
// open palm and fist for the combo.
var demoScript = []demoStep{
	{gesture.OpenPalm, 2 * time.Second},
	{gesture.Unknown, time.Second},
	{gesture.Point, 2 * time.Second},
	{gesture.Victory, 2 * time.Second},
	{gesture.ThreeCount, 2 * time.Second},
	{gesture.Unknown, time.Second},
	{gesture.OpenPalm, 200 * time.Millisecond},
	{gesture.Fist, 200 * time.Millisecond},
	{gesture.OpenPalm, 200 * time.Millisecond},
	{gesture.Fist, 200 * time.Millisecond},
	{gesture.OpenPalm, 200 * time.Millisecond},
	{gesture.Fist, 200 * time.Millisecond},
	{gesture.OpenPalm, 200 * time.Millisecond},
	{gesture.Fist, 3 * time.Second},
	{gesture.Unknown, 2 * time.Second},
}

// demoFrames renders demoScript as synthetic hands every interval.
func demoFrames(interval time.Duration) []frame {
	var (
		frames []frame
		at     time.Duration
	)
	for _, step := range demoScript {
		var hands []gesture.Landmarks
		if step.category != gesture.Unknown {
			hands = []gesture.Landmarks{gesture.SyntheticFor(step.category)}
		}
		for t := time.Duration(0); t < step.hold; t += interval {
			frames = append(frames, frame{at: at + t, hands: hands})
		}
		at += step.hold
	}
	return frames
}

// play sends frames on their schedule, scaled by speed.
func play(ctx context.Context, w messageWriter, frames []frame, speed float64) (int, error) {
	if speed <= 0 {
		speed = 1
	}

	start := time.Now()
	sent := 0
	for _, f := range frames {
		due := start.Add(time.Duration(float64(f.at) / speed))
		if wait := time.Until(due); wait > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(wait):
			}
		}

		msg, err := protocol.NewLandmarksMessage(f.hands, time.Now().UnixMilli())
		if err != nil {
			return sent, err
		}
		data, err := msg.Bytes()
		if err != nil {
			return sent, err
		}
		if err := w.WriteMessage(websocket.TextMessage, data); err != nil {
			return sent, fmt.Errorf("send frame %d: %w", sent, err)
		}
		sent++
	}
	return sent, nil
}

// describeEvent renders an events-socket message for the terminal, or ""
// for messages not worth printing.
func describeEvent(data []byte) string {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return ""
	}

	switch msg.Type {
	case protocol.TypeIntent:
		in, err := msg.GetIntentData()
		if err != nil {
			return ""
		}
		if in.Label == "" {
			return fmt.Sprintf("intent: hand lowered (was %q)", in.Previous)
		}
		if in.Combo {
			return fmt.Sprintf("intent: %q combo", in.Label)
		}
		return fmt.Sprintf("intent: %q via %s (%.2f)", in.Label, in.Gesture, in.Confidence)
	case protocol.TypeMode:
		var m protocol.ModeData
		if err := msg.ParseData(&m); err != nil {
			return ""
		}
		return fmt.Sprintf("mode: %s -> %s", m.From, m.To)
	}
	return ""
}
