package show

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-morph/pkg/geom"
	"github.com/teslashibe/go-morph/pkg/gesture"
	"github.com/teslashibe/go-morph/pkg/handtrack"
	"github.com/teslashibe/go-morph/pkg/particles"
	"github.com/teslashibe/go-morph/pkg/protocol"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeAnchors places every label on its own small grid, offset along x.
type fakeAnchors map[string]float64

func (f fakeAnchors) Anchors(label string, count int) []geom.Vec3 {
	x, ok := f[label]
	if !ok {
		return nil
	}
	pts := make([]geom.Vec3, 0, 40)
	for i := 0; i < 40; i++ {
		pts = append(pts, geom.V(x+float64(i%8)*0.2, float64(i/8)*0.2, 0))
	}
	return pts
}

var labelX = fakeAnchors{"HELLO": 6, "LOVE": -6, "I": 0, "I LOVE YOU": 1}

type fakePublisher struct {
	mu     sync.Mutex
	json   []*protocol.Message
	binary [][]byte
}

func (p *fakePublisher) BroadcastJSON(v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.json = append(p.json, v.(*protocol.Message))
	return nil
}

func (p *fakePublisher) BroadcastBinary(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.binary = append(p.binary, data)
}

func (p *fakePublisher) ofType(t protocol.MessageType) []*protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*protocol.Message
	for _, m := range p.json {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Particles.Count = 200
	cfg.Particles.Seed = 1
	return cfg
}

func newDirector(t *testing.T) (*Director, *fakePublisher, *fakePublisher) {
	t.Helper()
	frames, events := &fakePublisher{}, &fakePublisher{}
	d, err := New(testConfig(), labelX, frames, events)
	require.NoError(t, err)
	return d, frames, events
}

func sample(c gesture.Category, at time.Time) handtrack.Sample {
	return handtrack.Sample{Hands: []gesture.Landmarks{gesture.SyntheticFor(c)}, At: at}
}

// settle steps the director for the given simulated time at 60Hz.
func settle(d *Director, seconds float64) {
	for i := 0; i < int(seconds*60); i++ {
		d.Step(1.0 / 60)
	}
}

// targetX is the mean x of every particle target.
func targetX(d *Director) float64 {
	sum := 0.0
	for i := 0; i < d.engine.Count(); i++ {
		sum += d.engine.Particle(i).Target.X
	}
	return sum / float64(d.engine.Count())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Particles.Count = 0

	_, err := New(cfg, labelX, nil, nil)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "particles.count", cerr.Field)

	_, err = New(testConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestHandleSample_FirstLabelMorphs(t *testing.T) {
	d, _, events := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))

	assert.Equal(t, particles.ModeMorphing, d.engine.Mode())
	assert.InDelta(t, 6.7, targetX(d), 0.2)

	st := d.Status()
	assert.Equal(t, "HELLO", st.Label)
	assert.Equal(t, "open_palm", st.Gesture)
	assert.True(t, st.HasHand)
	assert.Equal(t, uint64(1), st.Samples)

	intents := events.ofType(protocol.TypeIntent)
	require.Len(t, intents, 1)
	data, err := intents[0].GetIntentData()
	require.NoError(t, err)
	assert.Equal(t, "HELLO", data.Label)
	assert.Equal(t, "", data.Previous)
}

func TestHandleSample_SameLabelIsNoop(t *testing.T) {
	d, _, events := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))
	settle(d, 0.1)
	d.HandleSample(sample(gesture.OpenPalm, t0.Add(100*time.Millisecond)))

	assert.Equal(t, particles.ModeMorphing, d.engine.Mode())
	assert.Len(t, events.ofType(protocol.TypeIntent), 1)
}

func TestHandleSample_NewLabelExplodesFirst(t *testing.T) {
	d, _, _ := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))
	settle(d, 1)

	d.HandleSample(sample(gesture.Victory, t0.Add(time.Second)))
	assert.Equal(t, particles.ModeExploding, d.engine.Mode())
	assert.InDelta(t, 6.7, targetX(d), 0.2, "old targets kept while exploding")

	settle(d, 0.6)
	assert.Equal(t, particles.ModeMorphing, d.engine.Mode())
	assert.InDelta(t, -5.3, targetX(d), 0.2, "new label applied after the explosion")
	assert.Equal(t, "LOVE", d.Status().Label)
}

func TestHandleSample_HandLoweredDisperses(t *testing.T) {
	d, _, _ := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))
	settle(d, 0.5)

	d.HandleSample(handtrack.Sample{At: t0.Add(time.Second)})
	assert.Equal(t, particles.ModeDispersing, d.engine.Mode())
	assert.Equal(t, "", d.Status().Label)
	assert.False(t, d.Status().HasHand)

	settle(d, 0.5)
	assert.Equal(t, particles.ModeIdle, d.engine.Mode())
}

func TestHandleSample_HandLoweredMidExplosionCancelsFollowUp(t *testing.T) {
	d, _, _ := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))
	settle(d, 0.5)
	d.HandleSample(sample(gesture.Victory, t0.Add(500*time.Millisecond)))
	require.Equal(t, particles.ModeExploding, d.engine.Mode())

	d.HandleSample(handtrack.Sample{At: t0.Add(600 * time.Millisecond)})
	settle(d, 1)
	assert.Equal(t, particles.ModeIdle, d.engine.Mode())
	assert.False(t, d.engine.HasTarget())
}

func TestHandleSample_PulseOrbitsCombo(t *testing.T) {
	d, _, _ := newDirector(t)

	seq := []gesture.Category{gesture.OpenPalm, gesture.Fist, gesture.OpenPalm, gesture.Fist}
	for i, c := range seq {
		d.HandleSample(sample(c, t0.Add(time.Duration(i)*150*time.Millisecond)))
		d.Step(1.0 / 60)
	}

	st := d.Status()
	assert.Equal(t, "I LOVE YOU", st.Label)
	assert.True(t, st.Combo)
	assert.Equal(t, particles.ModeExploding, d.engine.Mode())

	settle(d, 1)
	assert.Equal(t, particles.ModeOrbiting, d.engine.Mode())
}

func TestHandleSample_MissingAnchorsKeepShape(t *testing.T) {
	d, _, _ := newDirector(t)

	d.HandleSample(sample(gesture.OpenPalm, t0))
	settle(d, 0.2)
	before := targetX(d)

	// ThreeCount maps to "YOU", which has no anchors here
	d.HandleSample(sample(gesture.ThreeCount, t0.Add(time.Second)))

	assert.Equal(t, particles.ModeMorphing, d.engine.Mode())
	assert.Equal(t, before, targetX(d))
	assert.Equal(t, "YOU", d.Status().Label)
}

func TestStep_BroadcastsFramesAndStatus(t *testing.T) {
	d, frames, events := newDirector(t)

	settle(d, 1)

	frames.mu.Lock()
	n := len(frames.binary)
	last := frames.binary[n-1]
	frames.mu.Unlock()

	// 30 Hz broadcast over one second of 60 Hz ticks
	assert.InDelta(t, 30, n, 2)
	seq, pos, err := protocol.DecodePositionFrame(last, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(n), seq)
	assert.Len(t, pos, 3*d.engine.Count())

	states := events.ofType(protocol.TypeState)
	assert.NotEmpty(t, states)
	state, err := states[0].GetStateData()
	require.NoError(t, err)
	assert.Equal(t, "idle", state.Mode)
	assert.Equal(t, d.Session(), state.Session)
	assert.Equal(t, uint64(n), d.Status().Frames)
}

func TestStep_PublishesModeChanges(t *testing.T) {
	d, _, events := newDirector(t)

	require.NoError(t, d.execute(Command{Action: ActionExplode}))
	settle(d, 1)

	modes := events.ofType(protocol.TypeMode)
	require.NotEmpty(t, modes)
	var data protocol.ModeData
	require.NoError(t, modes[0].ParseData(&data))
	assert.Equal(t, "idle", data.From)
	assert.Equal(t, "exploding", data.To)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		want    particles.Mode
		wantErr error
	}{
		{"explode", Command{Action: ActionExplode}, particles.ModeExploding, nil},
		{"disperse", Command{Action: ActionDisperse}, particles.ModeDispersing, nil},
		{"idle", Command{Action: ActionIdle}, particles.ModeIdle, nil},
		{"text", Command{Action: ActionText, Label: "LOVE"}, particles.ModeMorphing, nil},
		{"orbit label", Command{Action: ActionOrbit, Label: "HELLO"}, particles.ModeOrbiting, nil},
		{"orbit cloud", Command{Action: ActionOrbit}, particles.ModeOrbiting, nil},
		{"text without anchors", Command{Action: ActionText, Label: "NOPE"}, particles.ModeIdle, ErrNoAnchors},
		{"orbit without anchors", Command{Action: ActionOrbit, Label: "NOPE"}, particles.ModeIdle, ErrNoAnchors},
		{"unknown", Command{Action: "spin"}, particles.ModeIdle, ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newDirector(t)
			err := d.execute(tt.cmd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, d.engine.Mode())
		})
	}
}

func TestExecute_Validation(t *testing.T) {
	d, _, _ := newDirector(t)
	var cerr *ConfigError

	assert.ErrorAs(t, d.execute(Command{Action: ActionText}), &cerr)
	assert.ErrorAs(t, d.execute(Command{Action: ActionTuning}), &cerr)
}

func TestExecute_Tuning(t *testing.T) {
	d, _, _ := newDirector(t)

	err := d.execute(Command{Action: ActionTuning, Tuning: &particles.TuningParams{OrbitSpeed: 11}})
	require.NoError(t, err)
	assert.Equal(t, 11.0, d.Tuning().OrbitSpeed)
	assert.Equal(t, testConfig().Particles.DriftSpeed, d.Tuning().DriftSpeed)
}

func TestRun_SourceAndSubmit(t *testing.T) {
	cfg := testConfig()
	cfg.FrameInterval = 5 * time.Millisecond
	cfg.BroadcastInterval = 5 * time.Millisecond
	cfg.StatusInterval = 10 * time.Millisecond
	d, err := New(cfg, labelX, nil, nil)
	require.NoError(t, err)

	src := handtrack.NewStream(cfg.Tracking)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx, src) }()

	require.NoError(t, src.Push([]gesture.Landmarks{gesture.SyntheticFor(gesture.Point)}, time.Now()))
	assert.Eventually(t, func() bool { return d.Status().Label == "I" }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Submit(ctx, Command{Action: ActionExplode}))
	assert.ErrorIs(t, d.Submit(ctx, Command{Action: "spin"}), ErrUnknownAction)
	assert.Eventually(t, func() bool { return d.Status().Frames > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	assert.ErrorIs(t, d.Submit(context.Background(), Command{Action: ActionIdle}), ErrStopped)
}

func TestRun_SourceClosedClearsHand(t *testing.T) {
	d, _, _ := newDirector(t)
	src := handtrack.NewStream(d.Config().Tracking)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, src)

	require.NoError(t, src.Push([]gesture.Landmarks{gesture.SyntheticFor(gesture.OpenPalm)}, time.Now()))
	require.Eventually(t, func() bool { return d.Status().HasHand }, time.Second, 5*time.Millisecond)

	src.Close()
	assert.Eventually(t, func() bool { return !d.Status().HasHand }, time.Second, 5*time.Millisecond)
}

func TestLabelsAndClientConfig(t *testing.T) {
	d, _, _ := newDirector(t)

	assert.ElementsMatch(t, []string{"HELLO", "I", "LOVE", "YOU", "I LOVE YOU"}, d.Labels())
	assert.Len(t, d.Colors(), 3*200)

	cc := d.ClientConfig()
	assert.Equal(t, 0.7, cc.DetectionConfidence)
	assert.Equal(t, 0.5, cc.TrackingConfidence)
	assert.Equal(t, 1, cc.MaxHands)
	assert.Equal(t, int64(33), cc.SampleIntervalMs)
	assert.Equal(t, 200, cc.ParticleCount)
}
