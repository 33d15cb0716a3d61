package show

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-morph/pkg/anchors"
	"github.com/teslashibe/go-morph/pkg/handtrack"
	"github.com/teslashibe/go-morph/pkg/intent"
	"github.com/teslashibe/go-morph/pkg/particles"
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Config holds everything the director needs.
type Config struct {
	// Preset names a particles preset applied before Particles overrides
	Preset    string           `json:"preset" yaml:"preset"`
	Particles particles.Config `json:"particles" yaml:"particles"`
	Intent    intent.Config    `json:"intent" yaml:"intent"`
	Anchors   anchors.Config   `json:"anchors" yaml:"anchors"`
	Tracking  handtrack.Config `json:"tracking" yaml:"tracking"`

	// Loop timing
	FrameInterval     time.Duration `json:"frame_interval" yaml:"frame_interval"`         // Engine tick
	BroadcastInterval time.Duration `json:"broadcast_interval" yaml:"broadcast_interval"` // Position frames to renderers
	StatusInterval    time.Duration `json:"status_interval" yaml:"status_interval"`       // State snapshots on the events socket
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		Preset:    "default",
		Particles: particles.DefaultConfig(),
		Intent:    intent.DefaultConfig(),
		Anchors:   anchors.DefaultConfig(),
		Tracking:  handtrack.DefaultConfig(),

		FrameInterval:     time.Second / 60,
		BroadcastInterval: time.Second / 30,
		StatusInterval:    250 * time.Millisecond,
	}
}

// LoadConfig reads a YAML file and merges it over DefaultConfig.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return ParseConfig(f)
}

// ParseConfig decodes YAML from r over DefaultConfig and validates it.
func ParseConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// The preset has to be known before the particle overrides apply
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if head.Preset != "" {
		preset, ok := particles.Preset(head.Preset)
		if !ok {
			return Config{}, &ConfigError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", head.Preset)}
		}
		cfg.Preset = head.Preset
		cfg.Particles = preset
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration. The first problem is returned as a
// *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.Particles.Count <= 0:
		return &ConfigError{Field: "particles.count", Message: "must be positive"}
	case c.Particles.MorphSpeed*particles.MaxSpeedMultiplier > 1:
		return &ConfigError{Field: "particles.morph_speed", Message: fmt.Sprintf("must be at most %.3f", 1/particles.MaxSpeedMultiplier)}
	case c.Intent.Threshold < 0 || c.Intent.Threshold >= 1:
		return &ConfigError{Field: "intent.threshold", Message: "must be in [0,1)"}
	case c.Intent.ComboLabel == "":
		return &ConfigError{Field: "intent.combo_label", Message: "must not be empty"}
	case c.FrameInterval <= 0:
		return &ConfigError{Field: "frame_interval", Message: "must be positive"}
	case c.BroadcastInterval < c.FrameInterval:
		return &ConfigError{Field: "broadcast_interval", Message: "must not be shorter than frame_interval"}
	case c.StatusInterval <= 0:
		return &ConfigError{Field: "status_interval", Message: "must be positive"}
	}
	if errs := c.Tracking.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "tracking", Message: errs[0]}
	}
	return nil
}
