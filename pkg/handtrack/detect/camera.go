package detect

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-morph/internal/log"
	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/handtrack"
)

// maxMissedReads is how many consecutive failed reads end the capture loop.
const maxMissedReads = 30

// Camera captures frames from a local device and runs a Landmarker on
// each one. It implements handtrack.Source.
type Camera struct {
	config     handtrack.Config
	capture    *gocv.VideoCapture
	landmarker *Landmarker
	stream     *handtrack.Stream
}

// NewCamera opens the capture device named by cfg.Device.
func NewCamera(cfg handtrack.Config, landmarker *Landmarker) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", handtrack.ErrCameraUnavailable, cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d", handtrack.ErrCameraUnavailable, cfg.Device)
	}

	return &Camera{
		config:     cfg,
		capture:    capture,
		landmarker: landmarker,
		stream:     handtrack.NewStream(cfg),
	}, nil
}

// Samples returns the latest-value sample channel.
func (c *Camera) Samples() <-chan handtrack.Sample {
	return c.stream.Samples()
}

// Run captures at SampleInterval until ctx is done or the device stops
// delivering frames. The sample channel is closed on return.
func (c *Camera) Run(ctx context.Context) error {
	defer c.stream.Close()
	logger := log.Component("camera")

	frame := gocv.NewMat()
	defer frame.Close()

	ticker := time.NewTicker(c.config.SampleInterval)
	defer ticker.Stop()

	smoother := handtrack.NewSmoother(c.config)
	tracking := false
	missed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if ok := c.capture.Read(&frame); !ok || frame.Empty() {
			missed++
			if missed >= maxMissedReads {
				return fmt.Errorf("%w: %d consecutive empty reads", handtrack.ErrCameraUnavailable, missed)
			}
			continue
		}
		missed = 0

		// A tracked hand only needs to stay above the lower tracking threshold
		minScore := c.config.DetectionConfidence
		if tracking {
			minScore = c.config.TrackingConfidence
		}

		hand, err := c.landmarker.DetectMat(frame, minScore)
		if err != nil {
			logger.Warn("landmark detection failed", "error", err)
			continue
		}

		var detected gesture.Landmarks
		if hand != nil {
			detected = hand.Landmarks
		}
		tracking = hand != nil

		var hands []gesture.Landmarks
		if smoothed := smoother.Apply(detected); smoothed != nil {
			hands = append(hands, smoothed)
		}

		if err := c.stream.Push(hands, time.Now()); err != nil {
			return nil
		}
	}
}

// Close releases the capture device. Call after Run has returned.
func (c *Camera) Close() error {
	c.stream.Close()
	return c.capture.Close()
}
