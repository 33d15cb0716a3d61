// morph - hand gestures in, particle text out
//
// Browsers (or a local camera) send hand landmarks; the director resolves
// them to labels and morphs a particle cloud into the label's text.
// Renderers read binary position frames from /ws/frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-morph/internal/config"
	"github.com/teslashibe/go-morph/internal/log"
	"github.com/teslashibe/go-morph/pkg/anchors"
	"github.com/teslashibe/go-morph/pkg/debug"
	"github.com/teslashibe/go-morph/pkg/handtrack"
	"github.com/teslashibe/go-morph/pkg/handtrack/detect"
	"github.com/teslashibe/go-morph/pkg/hub"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/show"
	"github.com/teslashibe/go-morph/pkg/web"
)

type options struct {
	port          string
	configPath    string
	preset        string
	webDir        string
	logLevel      string
	particles     int
	camera        bool
	device        int
	debug         bool
	debugGestures bool
	debugFrames   bool
	requestLog    bool
}

func main() {
	opts := parseFlags()

	log.Init(opts.logLevel)
	debug.Enabled = opts.debug
	debug.Gestures = opts.debugGestures
	debug.Frames = opts.debugFrames

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		log.Error("morph failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags. Environment variables supply the
// defaults.
func parseFlags() options {
	var opts options
	flag.StringVar(&opts.port, "port", config.Port(), "HTTP port (MORPH_PORT)")
	flag.StringVar(&opts.configPath, "config", config.ConfigPath(), "YAML config file (MORPH_CONFIG)")
	flag.StringVar(&opts.preset, "preset", "", "Particle preset: default, calm, energetic")
	flag.StringVar(&opts.webDir, "web", config.WebDir(), "Static browser client directory (MORPH_WEB_DIR)")
	flag.StringVar(&opts.logLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error (LOG_LEVEL)")
	flag.IntVar(&opts.particles, "particles", 0, "Override the particle count")
	flag.BoolVar(&opts.camera, "camera", false, "Track hands from a local camera instead of browsers")
	flag.IntVar(&opts.device, "device", -1, "Camera device index (with -camera)")
	flag.BoolVar(&opts.debug, "debug", false, "Enable verbose debug output")
	flag.BoolVar(&opts.debugGestures, "debug-gestures", false, "Trace every classified gesture")
	flag.BoolVar(&opts.debugFrames, "debug-frames", false, "Trace every broadcast frame")
	flag.BoolVar(&opts.requestLog, "request-log", config.Bool("MORPH_REQUEST_LOG", false), "Log every HTTP request")
	flag.Parse()

	if opts.debug && opts.logLevel == config.DefaultLogLevel {
		opts.logLevel = "debug"
	}
	return opts
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts options) (show.Config, error) {
	cfg, err := show.LoadConfig(opts.configPath)
	if err != nil {
		return show.Config{}, err
	}

	if opts.preset != "" {
		preset, ok := particles.Preset(opts.preset)
		if !ok {
			return show.Config{}, &show.ConfigError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", opts.preset)}
		}
		preset.Count = cfg.Particles.Count
		preset.Seed = cfg.Particles.Seed
		cfg.Preset = opts.preset
		cfg.Particles = preset
	}
	if opts.particles > 0 {
		cfg.Particles.Count = opts.particles
	}
	if opts.device >= 0 {
		cfg.Tracking.Device = opts.device
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	provider, err := anchors.NewTextProvider(cfg.Anchors)
	if err != nil {
		return fmt.Errorf("anchors: %w", err)
	}

	frames := hub.New("frames")
	events := hub.New("events")

	director, err := show.New(cfg, provider, frames, events)
	if err != nil {
		return err
	}

	if err := provider.Precompute(director.Labels(), cfg.Particles.Count); err != nil {
		// Labels without pixels simply never show
		log.Warn("some labels have no anchors", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errs := make(chan error, 3)

	var (
		src  handtrack.Source
		sink web.LandmarkSink
	)
	if opts.camera {
		landmarker, err := detect.NewLandmarker(cfg.Tracking)
		if err != nil {
			return err
		}
		defer landmarker.Close()

		camera, err := detect.NewCamera(cfg.Tracking, landmarker)
		if err != nil {
			return err
		}
		defer camera.Close()

		go func() { errs <- camera.Run(ctx) }()
		src = camera
		log.Info("tracking hands from camera", "device", cfg.Tracking.Device)
	} else {
		stream := handtrack.NewStream(cfg.Tracking)
		defer stream.Close()
		src = stream
		sink = stream
		log.Info("waiting for browser landmarks", "endpoint", "/ws/landmarks")
	}

	server := web.NewServer(web.Config{
		Port:       opts.port,
		WebDir:     opts.webDir,
		RequestLog: opts.requestLog,
	}, director, sink, frames, events)

	serverDone := make(chan error, 1)
	go func() { errs <- director.Run(ctx, src) }()
	go func() { serverDone <- server.Start(ctx) }()

	log.Info("morph started",
		"session", director.Session(),
		"preset", cfg.Preset,
		"particles", cfg.Particles.Count,
		"url", "http://localhost:"+opts.port,
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errs:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	case err := <-serverDone:
		return err
	}

	cancel()
	if err := <-serverDone; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
