package show

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/particles"
)

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "morph.yaml")
	yaml := `
preset: calm
particles:
  count: 2500
intent:
  threshold: 0.85
  combo_hold: 3s
  labels:
    fist: "BYE"
  pulse:
    window: 2s
    min_changes: 4
tracking:
  sample_interval: 50ms
broadcast_interval: 40ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "calm", cfg.Preset)
	assert.Equal(t, 2500, cfg.Particles.Count)
	assert.Equal(t, particles.CalmConfig().MorphSpeed, cfg.Particles.MorphSpeed, "preset applied under overrides")
	assert.Equal(t, 0.85, cfg.Intent.Threshold)
	assert.Equal(t, 3*time.Second, cfg.Intent.ComboHold)
	assert.Equal(t, 2*time.Second, cfg.Intent.Pulse.Window)
	assert.Equal(t, 4, cfg.Intent.Pulse.MinChanges)
	assert.Equal(t, "BYE", cfg.Intent.Labels[gesture.Fist])
	assert.Equal(t, "HELLO", cfg.Intent.Labels[gesture.OpenPalm], "default labels kept")
	assert.Equal(t, 50*time.Millisecond, cfg.Tracking.SampleInterval)
	assert.Equal(t, 0.7, cfg.Tracking.DetectionConfidence)
	assert.Equal(t, 40*time.Millisecond, cfg.BroadcastInterval)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
	}{
		{"unknown preset", "preset: frantic", "preset"},
		{"threshold out of range", "intent:\n  threshold: 1.2", "intent.threshold"},
		{"morph speed too fast", "particles:\n  morph_speed: 0.9", "particles.morph_speed"},
		{"broadcast faster than frames", "broadcast_interval: 1ms", "broadcast_interval"},
		{"bad tracking", "tracking:\n  max_hands: 0", "tracking"},
		{"unknown field", "particle_count: 5", ""},
		{"unknown category", "intent:\n  labels:\n    thumbs_up: OK", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(strings.NewReader(tt.yaml))
			require.Error(t, err)
			if tt.wantField == "" {
				return
			}
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantField, cerr.Field)
		})
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "preset", Message: "unknown"}
	assert.Equal(t, "config preset: unknown", err.Error())
}
