// Package detect runs hand landmark detection locally with OpenCV.
package detect

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-morph/pkg/debug"
	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/handtrack"
)

// Output layer names of the hand landmark ONNX export.
const (
	LandmarksLayer = "xyz_x21"
	ScoreLayer     = "hand_score"
)

// Hand is one detected hand.
type Hand struct {
	Landmarks gesture.Landmarks
	Score     float64 // Hand presence in [0,1]
}

// Landmarker runs a 21-point hand landmark model on single frames.
type Landmarker struct {
	net    gocv.Net
	config handtrack.Config
	mu     sync.Mutex // Protects inference
	size   image.Point
}

// NewLandmarker loads the ONNX model named by cfg.ModelPath.
func NewLandmarker(cfg handtrack.Config) (*Landmarker, error) {
	// Check if model file exists first
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", handtrack.ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load hand landmark model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Landmarker{
		net:    net,
		config: cfg,
		size:   image.Pt(cfg.InputSize, cfg.InputSize),
	}, nil
}

// Detect finds a hand in the JPEG image.
func (l *Landmarker) Detect(jpeg []byte) (*Hand, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	return l.DetectMat(img, l.config.DetectionConfidence)
}

// DetectMat runs the model on a BGR frame and returns the hand if its
// presence score reaches minScore, nil otherwise.
func (l *Landmarker) DetectMat(img gocv.Mat, minScore float64) (*Hand, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, l.size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	l.net.SetInput(blob, "")
	outputs := l.net.ForwardLayers([]string{LandmarksLayer, ScoreLayer})
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()
	if len(outputs) != 2 {
		return nil, fmt.Errorf("expected 2 model outputs, got %d", len(outputs))
	}

	coords, err := outputs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}
	scores, err := outputs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read hand score: %w", err)
	}
	score, err := handScore(scores)
	if err != nil {
		return nil, err
	}
	if score < minScore {
		return nil, nil
	}

	lm, err := parseLandmarks(coords, float64(l.config.InputSize), l.config.Mirror)
	if err != nil {
		return nil, err
	}

	debug.Log("✋ hand score=%.2f\n", score)
	return &Hand{Landmarks: lm, Score: score}, nil
}

// Close releases the model.
func (l *Landmarker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Close()
}

// parseLandmarks converts 63 model-space values (x, y in input pixels, z
// relative depth in the same scale) into normalized landmarks.
func parseLandmarks(data []float32, inputSize float64, mirror bool) (gesture.Landmarks, error) {
	if len(data) < gesture.LandmarkCount*3 {
		return nil, fmt.Errorf("expected %d landmark values, got %d", gesture.LandmarkCount*3, len(data))
	}

	lm := make(gesture.Landmarks, gesture.LandmarkCount)
	for i := range lm {
		x := float64(data[i*3]) / inputSize
		if mirror {
			x = 1 - x
		}
		lm[i] = gesture.Landmark{
			X: x,
			Y: float64(data[i*3+1]) / inputSize,
			Z: float64(data[i*3+2]) / inputSize,
		}
	}
	return lm, nil
}

// errEmptyScore is returned when the presence output has no values.
var errEmptyScore = errors.New("read hand score: empty output")

// handScore returns the presence of the first (only) hand in scores.
func handScore(scores []float32) (float64, error) {
	if len(scores) == 0 {
		return 0, errEmptyScore
	}
	return presence(scores[0]), nil
}

// presence maps a raw score to [0,1]. Exports differ on whether the
// sigmoid is baked in, so logits are squashed here.
func presence(raw float32) float64 {
	v := float64(raw)
	if v >= 0 && v <= 1 {
		return v
	}
	return 1 / (1 + math.Exp(-v))
}
