package particles

// TuningParams holds the engine parameters that can be changed at runtime
// without rebuilding the particle population.
type TuningParams struct {
	// Idle
	IdleRadius float64 `json:"idle_radius"`
	DriftSpeed float64 `json:"drift_speed"`

	// Morph
	MorphSpeed      float64 `json:"morph_speed"`
	JitterAmplitude float64 `json:"jitter_amplitude"`

	// Impulses
	ExplosionForce     float64 `json:"explosion_force"`
	ExplosionDuration  float64 `json:"explosion_duration"`
	DispersionForce    float64 `json:"dispersion_force"`
	DispersionDuration float64 `json:"dispersion_duration"`

	// Orbit
	OrbitDistance   float64 `json:"orbit_distance"`
	OrbitSpeed      float64 `json:"orbit_speed"`
	OrbitCorrection float64 `json:"orbit_correction"`
	WobbleAmplitude float64 `json:"wobble_amplitude"`
}

// Tuning returns the current runtime-adjustable parameters.
func (e *Engine) Tuning() TuningParams {
	c := e.config
	return TuningParams{
		IdleRadius:         c.IdleRadius,
		DriftSpeed:         c.DriftSpeed,
		MorphSpeed:         c.MorphSpeed,
		JitterAmplitude:    c.JitterAmplitude,
		ExplosionForce:     c.ExplosionForce,
		ExplosionDuration:  c.ExplosionDuration,
		DispersionForce:    c.DispersionForce,
		DispersionDuration: c.DispersionDuration,
		OrbitDistance:      c.OrbitDistance,
		OrbitSpeed:         c.OrbitSpeed,
		OrbitCorrection:    c.OrbitCorrection,
		WobbleAmplitude:    c.WobbleAmplitude,
	}
}

// SetTuning applies runtime parameter changes.
// Only positive values are applied; MorphSpeed is capped at 1.
func (e *Engine) SetTuning(params TuningParams) {
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	c := &e.config

	set(&c.IdleRadius, params.IdleRadius)
	set(&c.DriftSpeed, params.DriftSpeed)
	if params.MorphSpeed > 0 {
		c.MorphSpeed = min(params.MorphSpeed, 1)
	}
	set(&c.JitterAmplitude, params.JitterAmplitude)
	set(&c.ExplosionForce, params.ExplosionForce)
	set(&c.ExplosionDuration, params.ExplosionDuration)
	set(&c.DispersionForce, params.DispersionForce)
	set(&c.DispersionDuration, params.DispersionDuration)
	set(&c.OrbitDistance, params.OrbitDistance)
	set(&c.OrbitSpeed, params.OrbitSpeed)
	set(&c.OrbitCorrection, params.OrbitCorrection)
	set(&c.WobbleAmplitude, params.WobbleAmplitude)
}
