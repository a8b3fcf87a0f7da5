package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/zengarden/internal/audio"
	"github.com/ayusman/zengarden/internal/capture"
	"github.com/ayusman/zengarden/internal/config"
	"github.com/ayusman/zengarden/internal/detector"
	"github.com/ayusman/zengarden/internal/gesture"
	"github.com/ayusman/zengarden/internal/scene"
	"github.com/ayusman/zengarden/internal/timeutil"
)

type recordingSink struct {
	mu   sync.Mutex
	cues []audio.Cue
}

func (r *recordingSink) PlayCue(cue audio.Cue, sound *audio.Sound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, cue)
	return nil
}

func (r *recordingSink) played() []audio.Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audio.Cue(nil), r.cues...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recordingPublisher) Publish(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func testBank(t *testing.T) *audio.Bank {
	t.Helper()
	dir := t.TempDir()
	for _, c := range audio.Cues {
		path := filepath.Join(dir, string(c)+".wav")
		require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	}
	bank := audio.NewBank()
	require.Equal(t, len(audio.Cues), bank.Preload(dir))
	return bank
}

type harness struct {
	app   *App
	rec   *scene.Recorder
	sink  *recordingSink
	pub   *recordingPublisher
	clock *timeutil.MockClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		rec:   scene.NewRecorder(),
		sink:  &recordingSink{},
		pub:   &recordingPublisher{},
		clock: timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	h.app = New(Config{
		Camera: capture.NewMockCamera(nil, false),
		Scene:  h.rec,
		Bank:   testBank(t),
		Sinks:  []audio.Sink{h.sink},
		Clock:  h.clock,
	})
	h.app.AddPublisher(h.pub)
	t.Cleanup(func() { h.app.Close() })
	return h
}

func kinds(cmds []scene.Command) []scene.Kind {
	out := make([]scene.Kind, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Kind)
	}
	return out
}

func TestNew_StartsNeutral(t *testing.T) {
	h := newHarness(t)

	snap := h.app.Snapshot()
	assert.False(t, snap.Enabled)
	assert.False(t, snap.Running)
	assert.False(t, snap.Last.Present)
	assert.Equal(t, gesture.NeutralFrame, snap.Last.Frame)
	assert.Equal(t, scene.DefaultState(), snap.Last.Scene)
	assert.NotEmpty(t, snap.Session)
	assert.ElementsMatch(t, audio.Cues, snap.Sounds)
}

func TestTick_PinchGrabAndHandLost(t *testing.T) {
	h := newHarness(t)
	pinch := []detector.HandLandmarks{detector.PinchLandmarks()}

	u := h.app.Tick(pinch, 1000)
	require.True(t, u.Present)
	assert.True(t, u.Frame.Pinch)
	assert.Contains(t, kinds(u.Commands), scene.KindGrab)
	assert.Equal(t, []audio.Cue{audio.CueGrab}, u.Cues)
	assert.True(t, u.Scene.Grabbed)

	// Held pinch moves the grabbed object without new cues.
	u = h.app.Tick(pinch, 1033)
	assert.Contains(t, kinds(u.Commands), scene.KindMove)
	assert.Empty(t, u.Cues)

	// A dropout shorter than the timeout holds the last frame.
	u = h.app.Tick(nil, 1100)
	assert.True(t, u.Present)
	assert.Empty(t, u.Events)

	u = h.app.Tick(nil, 1033+200)
	assert.False(t, u.Present)
	require.Len(t, u.Events, 1)
	assert.Equal(t, gesture.EventHandLost, u.Events[0].Kind)
	assert.Contains(t, kinds(u.Commands), scene.KindRelease)
	assert.Empty(t, u.Cues, "hand loss is silent")
	assert.False(t, u.Scene.Grabbed)

	assert.Equal(t, []audio.Cue{audio.CueGrab}, h.sink.played())
	assert.Equal(t, 4, h.pub.count())

	recorded := kinds(h.rec.Commands())
	assert.Contains(t, recorded, scene.KindGrab)
	assert.Equal(t, scene.KindRelease, recorded[len(recorded)-1])

	stats := h.app.Stats()
	assert.Equal(t, int64(4), stats.Cycles)
	assert.Equal(t, int64(1), stats.HandsFound)
	assert.Equal(t, int64(1), stats.Cues)
}

func TestTick_PinchReleasePlaysCue(t *testing.T) {
	h := newHarness(t)

	h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)
	h.clock.Advance(time.Second)
	u := h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1033)

	assert.Contains(t, kinds(u.Commands), scene.KindRelease)
	assert.Equal(t, []audio.Cue{audio.CueRelease}, u.Cues)
	assert.Equal(t, []audio.Cue{audio.CueGrab, audio.CueRelease}, h.sink.played())
}

func TestTick_FistAndPeaceCues(t *testing.T) {
	h := newHarness(t)

	u := h.app.Tick([]detector.HandLandmarks{detector.FistLandmarks()}, 1000)
	assert.Equal(t, []audio.Cue{audio.CueMagic}, u.Cues)
	assert.Equal(t, 0.0, u.Scene.RotationSpeed, "fist locks rotation")

	u = h.app.Tick([]detector.HandLandmarks{detector.PeaceLandmarks()}, 1033)
	assert.Equal(t, []audio.Cue{audio.CueWind}, u.Cues)
	assert.Contains(t, kinds(u.Commands), scene.KindRake)
}

func TestTick_MalformedHandIsAbsent(t *testing.T) {
	h := newHarness(t)

	u := h.app.Tick([]detector.HandLandmarks{detector.PartialLandmarks()}, 1000)
	assert.False(t, u.Present)
	assert.Empty(t, u.Events)
	assert.Empty(t, u.Commands)
	assert.Equal(t, gesture.NeutralFrame, u.Frame)
}

func TestTick_SequenceAndSession(t *testing.T) {
	h := newHarness(t)

	first := h.app.Tick(nil, 1000)
	second := h.app.Tick(nil, 1033)

	assert.Equal(t, first.Seq+1, second.Seq)
	assert.Equal(t, h.app.Session(), second.Session)
	assert.Equal(t, second, h.app.Snapshot().Last)
}

func TestSetTuning(t *testing.T) {
	h := newHarness(t)

	zoom := string(gesture.SchemeZoom)
	require.NoError(t, h.app.SetTuning(&config.Tuning{Scheme: &zoom}))
	assert.Equal(t, gesture.SchemeZoom, h.app.Tuning().GetScheme())

	// In the zoom scheme a pinch zooms in instead of grabbing.
	u := h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)
	assert.NotContains(t, kinds(u.Commands), scene.KindGrab)
	assert.Contains(t, kinds(u.Commands), scene.KindZoom)
	assert.Less(t, u.Scene.CameraDistance, scene.DefaultState().CameraDistance)
}

func TestSetTuning_KeepsEdgeRecord(t *testing.T) {
	h := newHarness(t)

	h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1000)

	mirrored := false
	require.NoError(t, h.app.SetTuning(&config.Tuning{Mirrored: &mirrored}))

	u := h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1033)
	assert.True(t, u.Present)
	assert.Empty(t, u.Events, "no second hand-found edge after a tuning swap")
}

func TestSetTuning_SchemeSwitchReleasesHeldObject(t *testing.T) {
	h := newHarness(t)

	u := h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)
	require.True(t, u.Scene.Grabbed)

	zoom := string(gesture.SchemeZoom)
	require.NoError(t, h.app.SetTuning(&config.Tuning{Scheme: &zoom}))

	u = h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1033)
	assert.True(t, u.Present)
	assert.Contains(t, kinds(u.Commands), scene.KindRelease)
	assert.False(t, u.Scene.Grabbed)

	u = h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1066)
	assert.NotContains(t, kinds(u.Commands), scene.KindRelease)
	assert.False(t, u.Scene.Grabbed)
}

func TestSetTuning_KeepsCueThrottle(t *testing.T) {
	h := newHarness(t)

	h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)
	h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1033)

	mirrored := false
	require.NoError(t, h.app.SetTuning(&config.Tuning{Mirrored: &mirrored}))

	// Same instant on the cue clock: the second grab is inside its window.
	u := h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1066)
	assert.Contains(t, kinds(u.Commands), scene.KindGrab)
	assert.Equal(t, []audio.Cue{audio.CueGrab, audio.CueRelease}, h.sink.played())

	h.clock.Advance(250 * time.Millisecond)
	h.app.Tick([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 1100)
	h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1133)
	assert.Equal(t, []audio.Cue{audio.CueGrab, audio.CueRelease, audio.CueRelease, audio.CueGrab}, h.sink.played())
}

func TestSetTuning_SameDebouncerKeepsTracker(t *testing.T) {
	h := newHarness(t)

	h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)

	// Explicit defaults resolve to the tracker already running.
	timeout := "150ms"
	require.NoError(t, h.app.SetTuning(&config.Tuning{HandLostTimeout: &timeout}))

	u := h.app.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1033)
	assert.Empty(t, u.Events, "held pinch fires no edges after retuning")

	zero := "0s"
	assert.Error(t, h.app.SetTuning(&config.Tuning{HandLostTimeout: &zero}))
}

func TestSetTuning_Invalid(t *testing.T) {
	h := newHarness(t)

	bad := "teleport"
	err := h.app.SetTuning(&config.Tuning{Scheme: &bad})
	assert.Error(t, err)
	assert.Equal(t, gesture.SchemeLevitate, h.app.Tuning().GetScheme())
}

func TestSetEnabled(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.app.IsEnabled())
	h.app.SetEnabled(true)
	assert.True(t, h.app.IsEnabled())
	h.app.SetEnabled(false)
	assert.False(t, h.app.IsEnabled())
}

func TestPreview_Subscribe(t *testing.T) {
	p := newPreview()
	assert.False(t, p.active())

	ch, cancel := p.subscribe()
	assert.True(t, p.active())

	p.publish([]byte("a"))
	p.publish([]byte("b"))
	assert.Equal(t, []byte("b"), <-ch, "only the latest frame is kept")

	cancel()
	cancel()
	assert.False(t, p.active())
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, time.Second/30, frameInterval(30))
	assert.Equal(t, time.Second/IdleFPS, frameInterval(0))
}
