package particles

// Config holds all tunable parameters for the particle engine.
// Speeds marked "per 60Hz tick" are normalized so behavior does not depend
// on the caller's frame rate.
type Config struct {
	// Population
	Count int    `json:"count" yaml:"count"` // Number of particles
	Seed  uint64 `json:"seed" yaml:"seed"`   // RNG seed, 0 = time seeded

	// Idle
	IdleRadius float64 `json:"idle_radius" yaml:"idle_radius"` // Particles stay inside this sphere while idle
	DriftSpeed float64 `json:"drift_speed" yaml:"drift_speed"` // Drift distance per 60Hz tick

	// Morph
	MorphSpeed      float64 `json:"morph_speed" yaml:"morph_speed"`           // Fraction of remaining distance per 60Hz tick
	SettleThreshold float64 `json:"settle_threshold" yaml:"settle_threshold"` // Closer than this = settled, jitter only
	JitterAmplitude float64 `json:"jitter_amplitude" yaml:"jitter_amplitude"` // Per-axis jitter of settled particles
	LayerSpread     float64 `json:"layer_spread" yaml:"layer_spread"`         // Jitter per extra layer when particles outnumber anchors

	// Impulses (durations in seconds)
	ExplosionForce     float64 `json:"explosion_force" yaml:"explosion_force"`
	ExplosionDuration  float64 `json:"explosion_duration" yaml:"explosion_duration"`
	DispersionForce    float64 `json:"dispersion_force" yaml:"dispersion_force"`
	DispersionDuration float64 `json:"dispersion_duration" yaml:"dispersion_duration"`

	// Orbit
	OrbitMargin     float64 `json:"orbit_margin" yaml:"orbit_margin"`         // Bounds are grown by this before placement
	OrbitDistance   float64 `json:"orbit_distance" yaml:"orbit_distance"`     // Minimum target distance from the orbit center
	OrbitSpeed      float64 `json:"orbit_speed" yaml:"orbit_speed"`           // Tangential speed (units/sec)
	OrbitCorrection float64 `json:"orbit_correction" yaml:"orbit_correction"` // Radial proportional gain (1/sec)
	OrbitNoise      float64 `json:"orbit_noise" yaml:"orbit_noise"`           // Angular noise on placement directions
	OrbitJitter     float64 `json:"orbit_jitter" yaml:"orbit_jitter"`         // Per-axis jitter per 60Hz tick
	WobbleAmplitude float64 `json:"wobble_amplitude" yaml:"wobble_amplitude"` // Sinusoidal velocity wobble (units/sec)
	WobbleFrequency float64 `json:"wobble_frequency" yaml:"wobble_frequency"` // Wobble rate (rad/sec)

	// Colors (HSV hue range in degrees)
	HueMin float64 `json:"hue_min" yaml:"hue_min"`
	HueMax float64 `json:"hue_max" yaml:"hue_max"`
}

// Fixed bounds of the per-particle speed multiplier.
const (
	MinSpeedMultiplier = 0.5
	MaxSpeedMultiplier = 1.5
)

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		Count: 6000,

		// Idle - slow breathing sphere
		IdleRadius: 12,
		DriftSpeed: 0.02,

		// Morph - exponential approach, settled shapes shimmer
		MorphSpeed:      0.08,
		SettleThreshold: 0.1,
		JitterAmplitude: 0.02,
		LayerSpread:     0.15,

		// Impulses
		ExplosionForce:     30,
		ExplosionDuration:  0.5,
		DispersionForce:    18,
		DispersionDuration: 0.3,

		// Orbit
		OrbitMargin:     2,
		OrbitDistance:   6,
		OrbitSpeed:      5,
		OrbitCorrection: 2,
		OrbitNoise:      0.15,
		OrbitJitter:     0.01,
		WobbleAmplitude: 0.4,
		WobbleFrequency: 2,

		HueMin: 180,
		HueMax: 280,
	}
}

// CalmConfig returns a slower, softer configuration
func CalmConfig() Config {
	cfg := DefaultConfig()
	cfg.DriftSpeed = 0.01
	cfg.MorphSpeed = 0.05
	cfg.ExplosionForce = 18
	cfg.DispersionForce = 10
	cfg.OrbitSpeed = 3
	cfg.WobbleAmplitude = 0.2
	return cfg
}

// EnergeticConfig returns a fast, punchy configuration
func EnergeticConfig() Config {
	cfg := DefaultConfig()
	cfg.DriftSpeed = 0.04
	cfg.MorphSpeed = 0.14
	cfg.JitterAmplitude = 0.035
	cfg.ExplosionForce = 45
	cfg.DispersionForce = 28
	cfg.OrbitSpeed = 8
	cfg.WobbleAmplitude = 0.7
	return cfg
}

// Preset returns a named configuration. Unknown names return false.
func Preset(name string) (Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "calm":
		return CalmConfig(), true
	case "energetic":
		return EnergeticConfig(), true
	}
	return Config{}, false
}

// withDefaults fills non-positive values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	if c.Count <= 0 {
		c.Count = d.Count
	}
	fill(&c.IdleRadius, d.IdleRadius)
	fill(&c.DriftSpeed, d.DriftSpeed)
	fill(&c.MorphSpeed, d.MorphSpeed)
	fill(&c.SettleThreshold, d.SettleThreshold)
	fill(&c.ExplosionDuration, d.ExplosionDuration)
	fill(&c.DispersionDuration, d.DispersionDuration)
	fill(&c.OrbitSpeed, d.OrbitSpeed)
	fill(&c.OrbitCorrection, d.OrbitCorrection)
	if c.HueMax <= c.HueMin {
		c.HueMin, c.HueMax = d.HueMin, d.HueMax
	}
	return c
}
