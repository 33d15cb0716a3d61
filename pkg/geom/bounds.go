package geom

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// BoundsOf returns the bounding box of the points.
// The second return value is false when points is empty.
func BoundsOf(points []Vec3) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Min.Z = min(b.Min.Z, p.Z)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
		b.Max.Z = max(b.Max.Z, p.Z)
	}
	return b, true
}

// Center returns the middle of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfExtents returns half the box size on each axis.
func (b Bounds) HalfExtents() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Expand grows the box by margin on every side.
func (b Bounds) Expand(margin float64) Bounds {
	m := Vec3{margin, margin, margin}
	return Bounds{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Contains reports whether p lies inside the box (inclusive).
func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
