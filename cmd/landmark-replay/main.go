// landmark-replay - feed recorded or synthetic hand landmarks to morph
//
// Replays a JSONL recording (one landmarks payload per line) or a built-in
// gesture demo over /ws/landmarks, and prints intent and mode events from
// /ws/events while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-morph/internal/config"
	"github.com/teslashibe/go-morph/internal/log"
)

func main() {
	addr := flag.String("addr", "localhost:"+config.Port(), "morph server host:port")
	file := flag.String("file", "", "JSONL recording to replay (default: built-in demo)")
	fps := flag.Int("fps", 30, "Frame rate for the demo and for recordings without capture_ts")
	speed := flag.Float64("speed", 1, "Playback speed multiplier")
	loop := flag.Bool("loop", false, "Repeat until interrupted")
	events := flag.Bool("events", true, "Print intent and mode events")
	flag.Parse()

	log.Init(config.LogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *fps <= 0 {
		*fps = 30
	}
	interval := time.Second / time.Duration(*fps)

	frames, source, err := loadFrames(*file, interval)
	if err != nil {
		log.Error("load landmarks failed", "error", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		log.Error("nothing to replay", "source", source)
		os.Exit(1)
	}

	conn, err := dial(ctx, *addr, "/ws/landmarks")
	if err != nil {
		log.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	// The server sends its tracking config first; drain whatever it sends
	go drain(conn)

	if *events {
		if ev, err := dial(ctx, *addr, "/ws/events"); err != nil {
			log.Warn("events socket unavailable", "error", err)
		} else {
			defer ev.Close()
			go printEvents(ev)
		}
	}

	log.Info("replaying landmarks", "source", source, "frames", len(frames), "speed", *speed)
	for {
		sent, err := play(ctx, conn, frames, *speed)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error("replay failed", "sent", sent, "error", err)
			os.Exit(1)
		}
		log.Info("replay finished", "sent", sent)
		if !*loop {
			break
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func loadFrames(path string, interval time.Duration) ([]frame, string, error) {
	if path == "" {
		return demoFrames(interval), "demo", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, path, err
	}
	defer f.Close()

	frames, err := readFrames(f, interval)
	return frames, path, err
}

func dial(ctx context.Context, addr, path string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: path}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return conn, nil
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func printEvents(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if line := describeEvent(data); line != "" {
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05.000"), line)
		}
	}
}
