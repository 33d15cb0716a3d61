// Package show wires landmark sources, the intent resolver, text anchors
// and the particle engine into one running show.
//
// The Director owns the engine and the resolver. All mutation happens on
// the goroutine running Director.Run; other goroutines talk to it through
// Submit and read it through Status.
package show

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-morph/internal/log"
	"github.com/teslashibe/go-morph/pkg/debug"
	"github.com/teslashibe/go-morph/pkg/geom"
	"github.com/teslashibe/go-morph/pkg/handtrack"
	"github.com/teslashibe/go-morph/pkg/intent"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/protocol"
)

var (
	// ErrStopped is returned by Submit once Run has returned.
	ErrStopped = errors.New("show: director stopped")

	// ErrUnknownAction is returned for commands the director does not know.
	ErrUnknownAction = errors.New("show: unknown action")

	// ErrNoAnchors is returned when a label has no anchor points.
	ErrNoAnchors = errors.New("show: no anchors for label")
)

// AnchorSource resolves a label to at most count anchor points.
type AnchorSource interface {
	Anchors(label string, count int) []geom.Vec3
}

// Publisher fans messages out to connected clients.
type Publisher interface {
	BroadcastJSON(v interface{}) error
	BroadcastBinary(data []byte)
}

// Actions accepted by Submit.
const (
	ActionExplode  = "explode"
	ActionDisperse = "disperse"
	ActionIdle     = "idle"
	ActionOrbit    = "orbit"
	ActionText     = "text"
	ActionTuning   = "tuning"
)

// Command is a manual request executed on the director goroutine.
type Command struct {
	Action string
	Label  string                  // For ActionText and ActionOrbit
	Tuning *particles.TuningParams // For ActionTuning
}

type request struct {
	cmd   Command
	reply chan error
}

// Director runs the show.
type Director struct {
	config   Config
	engine   *particles.Engine
	resolver *intent.Resolver
	anchors  AnchorSource
	frames   Publisher
	events   Publisher
	logger   *slog.Logger
	session  string
	started  time.Time

	requests chan request
	done     chan struct{}
	stopOnce sync.Once

	// Loop state, owned by the Run goroutine
	followUp       func()
	lastMode       particles.Mode
	sinceBroadcast float64
	sinceStatus    float64
	positions      []float32
	frame          []byte
	seq            uint32

	colors []float32 // Fixed at construction, read-only

	mu     sync.RWMutex
	status Status
	tuning particles.TuningParams
}

// New builds a director. frames and events may be nil.
func New(config Config, anchors AnchorSource, frames, events Publisher) (*Director, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if anchors == nil {
		return nil, fmt.Errorf("show: anchor source is required")
	}

	session := uuid.NewString()
	d := &Director{
		config:   config,
		engine:   particles.New(config.Particles),
		resolver: intent.NewResolver(config.Intent),
		anchors:  anchors,
		frames:   frames,
		events:   events,
		logger:   log.With("component", "director", "session", session),
		session:  session,
		started:  time.Now(),
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	d.engine.OnExplosionComplete(d.explosionComplete)
	d.lastMode = d.engine.Mode()
	d.colors = d.engine.Colors(nil)
	d.tuning = d.engine.Tuning()
	d.status = Status{
		Session:   session,
		Mode:      d.lastMode.String(),
		Gesture:   "unknown",
		Particles: d.engine.Count(),
	}
	return d, nil
}

// Config returns the director configuration.
func (d *Director) Config() Config {
	return d.config
}

// Session returns the unique id of this run.
func (d *Director) Session() string {
	return d.session
}

// Labels returns every label gestures can resolve to, combo included.
func (d *Director) Labels() []string {
	return d.resolver.Labels()
}

// Colors returns the flat r,g,b color buffer. Particle colors never change.
func (d *Director) Colors() []float32 {
	return d.colors
}

// Run drives the show until ctx is done. src may be nil when only manual
// commands are used.
func (d *Director) Run(ctx context.Context, src handtrack.Source) error {
	defer d.stopOnce.Do(func() { close(d.done) })

	var samples <-chan handtrack.Sample
	if src != nil {
		samples = src.Samples()
	}

	ticker := time.NewTicker(d.config.FrameInterval)
	defer ticker.Stop()
	last := time.Now()

	d.logger.Info("director started", "particles", d.engine.Count(), "labels", d.Labels())

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("director stopped")
			return nil

		case s, ok := <-samples:
			if !ok {
				d.logger.Warn("landmark source closed")
				samples = nil
				d.HandleSample(handtrack.Sample{At: time.Now()})
				continue
			}
			d.HandleSample(s)

		case req := <-d.requests:
			req.reply <- d.execute(req.cmd)

		case now := <-ticker.C:
			d.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Submit runs cmd on the director goroutine and returns its error.
func (d *Director) Submit(ctx context.Context, cmd Command) error {
	req := request{cmd: cmd, reply: make(chan error, 1)}
	select {
	case d.requests <- req:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleSample resolves one landmark sample and reacts to label changes.
// Must be called from the director goroutine.
func (d *Director) HandleSample(s handtrack.Sample) {
	res := d.resolver.Resolve(s.Primary(), s.At)

	debug.GestureTrace("sample",
		"gesture", res.Gesture.Category.String(),
		"confidence", res.Gesture.Confidence,
		"fingers", res.Fingers.Count(),
		"label", res.Label,
	)
	d.recordSample(res)

	if res.Fired {
		d.logger.Info("pulse pattern fired", "label", res.Label)
	}
	if !res.Changed {
		return
	}

	previous := d.currentLabel()
	d.setLabel(res.Label, res.Combo)
	d.publishEvent(protocol.NewIntentMessage(res.Label, previous, res.Combo, res.Gesture))

	if err := d.show(res.Label, res.Combo); err != nil {
		// Missing anchors are not fatal: the current shape stays
		d.logger.Debug("label not shown", "label", res.Label, "error", err)
	}
}

// show drives the engine toward label.
func (d *Director) show(label string, combo bool) error {
	if label == "" {
		d.followUp = nil
		if d.engine.Mode().Shaped() {
			d.engine.Disperse()
		}
		return nil
	}

	pts := d.anchors.Anchors(label, d.engine.Count())
	if len(pts) == 0 {
		return fmt.Errorf("%w: %q", ErrNoAnchors, label)
	}

	if combo {
		b, _ := geom.BoundsOf(pts)
		d.explodeThen(func() { d.engine.OrbitAroundBounds(b) })
		return nil
	}

	if d.engine.Mode().Shaped() {
		d.explodeThen(func() {
			if err := d.engine.SetTarget(pts); err != nil {
				d.logger.Warn("set target failed", "label", label, "error", err)
			}
		})
		return nil
	}
	d.followUp = nil
	return d.engine.SetTarget(pts)
}

// explodeThen breaks up the current shape and runs next once the
// explosion has decayed.
func (d *Director) explodeThen(next func()) {
	d.followUp = next
	d.engine.Explode()
}

func (d *Director) explosionComplete() {
	next := d.followUp
	d.followUp = nil
	if next != nil {
		next()
	}
}

// execute runs a manual command on the director goroutine.
func (d *Director) execute(cmd Command) error {
	d.logger.Info("command", "action", cmd.Action, "label", cmd.Label)

	switch cmd.Action {
	case ActionExplode:
		d.followUp = nil
		d.engine.Explode()
	case ActionDisperse:
		d.followUp = nil
		d.engine.Disperse()
	case ActionIdle:
		d.followUp = nil
		d.engine.Idle()
	case ActionText:
		if cmd.Label == "" {
			return &ConfigError{Field: "label", Message: "must not be empty"}
		}
		d.setLabel(cmd.Label, false)
		return d.show(cmd.Label, false)
	case ActionOrbit:
		return d.orbit(cmd.Label)
	case ActionTuning:
		if cmd.Tuning == nil {
			return &ConfigError{Field: "tuning", Message: "missing parameters"}
		}
		d.engine.SetTuning(*cmd.Tuning)
		d.mu.Lock()
		d.tuning = d.engine.Tuning()
		d.mu.Unlock()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}

// orbit swirls around label's anchors, or around the current cloud when
// label is empty.
func (d *Director) orbit(label string) error {
	var pts []geom.Vec3
	if label != "" {
		pts = d.anchors.Anchors(label, d.engine.Count())
		if len(pts) == 0 {
			return fmt.Errorf("%w: %q", ErrNoAnchors, label)
		}
	} else {
		d.positions = d.engine.Positions(d.positions)
		pts = make([]geom.Vec3, 0, len(d.positions)/3)
		for i := 0; i+2 < len(d.positions); i += 3 {
			pts = append(pts, geom.V(float64(d.positions[i]), float64(d.positions[i+1]), float64(d.positions[i+2])))
		}
	}

	b, ok := geom.BoundsOf(pts)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoAnchors, label)
	}
	d.followUp = nil
	d.engine.OrbitAroundBounds(b)
	return nil
}

// Step advances the engine by dt seconds and publishes frames and status
// on their intervals. Must be called from the director goroutine.
func (d *Director) Step(dt float64) {
	d.engine.Update(dt)

	if mode := d.engine.Mode(); mode != d.lastMode {
		d.publishEvent(protocol.NewModeMessage(d.lastMode.String(), mode.String()))
		d.logger.Debug("mode changed", "from", d.lastMode, "to", mode)
		d.lastMode = mode
	}

	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	d.sinceBroadcast += dt
	d.sinceStatus += dt

	if d.sinceBroadcast >= d.config.BroadcastInterval.Seconds() {
		d.sinceBroadcast = 0
		d.broadcastFrame()
	}
	if d.sinceStatus >= d.config.StatusInterval.Seconds() {
		d.sinceStatus = 0
		d.publishStatus()
	}
}

func (d *Director) broadcastFrame() {
	d.positions = d.engine.Positions(d.positions)
	d.seq++
	d.frame = protocol.AppendPositionFrame(d.frame[:0], d.seq, d.positions)

	d.mu.Lock()
	d.status.Frames++
	d.mu.Unlock()

	debug.FrameTrace("frame", "seq", d.seq, "mode", d.engine.Mode().String())
	if d.frames == nil {
		return
	}
	// The hub keeps the slice until every client has written it
	out := make([]byte, len(d.frame))
	copy(out, d.frame)
	d.frames.BroadcastBinary(out)
}

func (d *Director) publishStatus() {
	stats := d.engine.Stats()

	d.mu.Lock()
	d.status.Mode = stats.Mode.String()
	d.status.Settled = stats.Settled
	d.status.Uptime = time.Since(d.started).Round(time.Millisecond).String()
	snapshot := d.status
	d.mu.Unlock()

	d.publishEvent(protocol.NewStateMessage(snapshot.State()))
}

func (d *Director) publishEvent(msg *protocol.Message, err error) {
	if err != nil {
		d.logger.Warn("encode event failed", "error", err)
		return
	}
	if d.events == nil {
		return
	}
	if err := d.events.BroadcastJSON(msg); err != nil {
		d.logger.Warn("broadcast event failed", "type", msg.Type, "error", err)
	}
}
