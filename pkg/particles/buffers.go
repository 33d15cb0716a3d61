package particles

// Positions appends every particle position as x,y,z float32 triples to
// dst[:0] and returns it. Pass the previous frame's slice to avoid
// reallocating.
func (e *Engine) Positions(dst []float32) []float32 {
	dst = dst[:0]
	for i := range e.particles {
		p := &e.particles[i].Position
		dst = append(dst, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return dst
}

// Colors appends every particle color as r,g,b float32 triples in [0,1].
func (e *Engine) Colors(dst []float32) []float32 {
	dst = dst[:0]
	for i := range e.particles {
		c := e.particles[i].id.Color.Clamped()
		dst = append(dst, float32(c.R), float32(c.G), float32(c.B))
	}
	return dst
}
