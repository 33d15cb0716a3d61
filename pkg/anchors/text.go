// Package anchors turns text labels into 3-D point clouds the particle
// engine can morph into.
//
// Labels are rasterized with the Go Regular font into an alpha mask; lit
// pixels become candidate anchors, mapped into world units centered on the
// origin with y pointing up.
package anchors

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/teslashibe/go-morph/pkg/geom"
)

// ErrNoPixels is returned by Precompute for labels that rasterize to nothing.
var ErrNoPixels = errors.New("anchors: label has no visible pixels")

// Config controls rasterization and world mapping.
type Config struct {
	FontSize  float64 `json:"font_size" yaml:"font_size"` // Raster size in pixels
	Height    float64 `json:"height" yaml:"height"`       // World height of one line of text
	MaxWidth  float64 `json:"max_width" yaml:"max_width"` // Long labels shrink to fit this width
	Depth     float64 `json:"depth" yaml:"depth"`         // Z spread of the anchors
	Step      int     `json:"step" yaml:"step"`           // Pixel sampling stride
	Threshold uint8   `json:"threshold" yaml:"threshold"` // Minimum alpha for a lit pixel
	Seed      uint64  `json:"seed" yaml:"seed"`           // Down-sampling seed
	Strict    bool    `json:"strict" yaml:"strict"`       // Only precomputed labels resolve
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		FontSize:  96,
		Height:    8,
		MaxWidth:  30,
		Depth:     1,
		Step:      2,
		Threshold: 128,
		Seed:      1,
	}
}

// maxAdhocEntries bounds the cache entries for labels that were never
// precomputed. The oldest is evicted first.
const maxAdhocEntries = 32

type cacheKey struct {
	label string
	count int
}

// TextProvider resolves labels to anchor points. Safe for concurrent use.
type TextProvider struct {
	config Config

	mu    sync.Mutex
	face  font.Face // not safe for concurrent use, guarded by mu
	cache map[cacheKey][]geom.Vec3
	adhoc []cacheKey // evictable keys, oldest first
	known map[string]bool
}

// NewTextProvider parses the embedded font and returns an empty provider.
func NewTextProvider(config Config) (*TextProvider, error) {
	d := DefaultConfig()
	if config.FontSize <= 0 {
		config.FontSize = d.FontSize
	}
	if config.Height <= 0 {
		config.Height = d.Height
	}
	if config.MaxWidth <= 0 {
		config.MaxWidth = d.MaxWidth
	}
	if config.Step <= 0 {
		config.Step = d.Step
	}
	if config.Threshold == 0 {
		config.Threshold = d.Threshold
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("anchors: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    config.FontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("anchors: create face: %w", err)
	}

	return &TextProvider{
		config: config,
		face:   face,
		cache:  make(map[cacheKey][]geom.Vec3),
		known:  make(map[string]bool),
	}, nil
}

// Config returns the provider configuration.
func (p *TextProvider) Config() Config {
	return p.config
}

// Anchors returns at most count points spelling label. Results are cached
// per (label, count) and must not be modified. Precomputed labels stay
// cached; other labels share a small cache that drops its oldest entry
// when full. An empty label, a label
// with no visible glyphs, or (in strict mode) a label that was never
// precomputed yields nil.
func (p *TextProvider) Anchors(label string, count int) []geom.Vec3 {
	if strings.TrimSpace(label) == "" || count <= 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Strict && !p.known[label] {
		return nil
	}
	return p.lookup(label, count, false)
}

// Precompute warms the cache for every label and marks them as known for
// strict mode. Labels without visible pixels are reported in the error
// but do not stop the others.
func (p *TextProvider) Precompute(labels []string, count int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		if pts := p.lookup(label, count, true); len(pts) == 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrNoPixels, label))
			continue
		}
		p.known[label] = true
	}
	return errors.Join(errs...)
}

// Known reports whether label has been precomputed.
func (p *TextProvider) Known(label string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.known[label]
}

// lookup must be called with mu held. Pinned entries are never evicted.
func (p *TextProvider) lookup(label string, count int, pin bool) []geom.Vec3 {
	key := cacheKey{label, count}
	pts, ok := p.cache[key]
	if !ok {
		pts = p.sample(label, count)
		p.cache[key] = pts
		if !pin {
			p.adhoc = append(p.adhoc, key)
			p.evict()
		}
		return pts
	}
	if pin {
		for i, k := range p.adhoc {
			if k == key {
				p.adhoc = append(p.adhoc[:i], p.adhoc[i+1:]...)
				break
			}
		}
	}
	return pts
}

func (p *TextProvider) evict() {
	for len(p.adhoc) > maxAdhocEntries {
		delete(p.cache, p.adhoc[0])
		p.adhoc = p.adhoc[1:]
	}
}

// cached returns the number of cache entries.
func (p *TextProvider) cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// sample rasterizes label and converts lit pixels to world points,
// down-sampled to count with a per-label seeded shuffle.
func (p *TextProvider) sample(label string, count int) []geom.Vec3 {
	mask := p.rasterize(label)
	if mask == nil {
		return nil
	}

	b := mask.Bounds()
	var lit []image.Point
	for y := b.Min.Y; y < b.Max.Y; y += p.config.Step {
		for x := b.Min.X; x < b.Max.X; x += p.config.Step {
			if mask.AlphaAt(x, y).A >= p.config.Threshold {
				lit = append(lit, image.Pt(x, y))
			}
		}
	}
	if len(lit) == 0 {
		return nil
	}

	// Tight pixel bounds of the lit area
	minX, minY, maxX, maxY := lit[0].X, lit[0].Y, lit[0].X, lit[0].Y
	for _, pt := range lit[1:] {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	cx := float64(minX+maxX) / 2
	cy := float64(minY+maxY) / 2

	lineHeight := float64(p.face.Metrics().Height.Ceil())
	scale := p.config.Height / lineHeight
	if w := float64(maxX-minX) * scale; w > p.config.MaxWidth {
		scale *= p.config.MaxWidth / w
	}

	rng := rand.New(rand.NewPCG(p.config.Seed, labelHash(label)))
	rng.Shuffle(len(lit), func(i, j int) {
		lit[i], lit[j] = lit[j], lit[i]
	})
	if len(lit) > count {
		lit = lit[:count]
	}

	pts := make([]geom.Vec3, len(lit))
	for i, pt := range lit {
		pts[i] = geom.V(
			(float64(pt.X)-cx)*scale,
			(cy-float64(pt.Y))*scale,
			(rng.Float64()-0.5)*p.config.Depth,
		)
	}
	return pts
}

// rasterize draws label into a tightly sized alpha mask. Returns nil when
// the label has zero advance.
func (p *TextProvider) rasterize(label string) *image.Alpha {
	d := &font.Drawer{Face: p.face}
	advance := d.MeasureString(label).Ceil()
	if advance <= 0 {
		return nil
	}

	m := p.face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	pad := 2
	mask := image.NewAlpha(image.Rect(0, 0, advance+2*pad, ascent+descent+2*pad))

	d.Dst = mask
	d.Src = image.Opaque
	d.Dot = fixed.P(pad, pad+ascent)
	d.DrawString(label)
	return mask
}

func labelHash(label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(label))
	return h.Sum64()
}
