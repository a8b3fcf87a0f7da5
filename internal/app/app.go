// Package app runs the hand-tracking control loop of the zen garden.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/zengarden/internal/audio"
	"github.com/ayusman/zengarden/internal/capture"
	"github.com/ayusman/zengarden/internal/config"
	"github.com/ayusman/zengarden/internal/detector"
	"github.com/ayusman/zengarden/internal/gesture"
	"github.com/ayusman/zengarden/internal/scene"
	"github.com/ayusman/zengarden/internal/store"
	"github.com/ayusman/zengarden/internal/timeutil"
)

// ErrNoDetector is returned by Start when no hand detector can be created.
var ErrNoDetector = errors.New("no hand detector")

// Pipeline timing constants.
const (
	// IdleFPS is the loop rate while no hand is tracked and nothing moves.
	IdleFPS = 10
	// IdleTimeoutMs is how long after the last motion the loop stays active.
	IdleTimeoutMs = 2000
)

// Publisher receives the outcome of every cycle.
type Publisher interface {
	Publish(u Update)
}

// Update is the outcome of one control cycle.
type Update struct {
	Session     string            `json:"session"`
	Seq         uint64            `json:"seq"`
	TimestampMs int64             `json:"timestampMs"`
	Present     bool              `json:"present"`
	Frame       gesture.HandFrame `json:"frame"`
	Events      []gesture.Event   `json:"events,omitempty"`
	Commands    []scene.Command   `json:"commands,omitempty"`
	Cues        []audio.Cue       `json:"cues,omitempty"`
	Status      string            `json:"status"`
	Scene       scene.State       `json:"scene"`
}

// Config holds the collaborators of the App. Nil fields get defaults.
type Config struct {
	Store  *store.Store
	Tuning *config.Tuning

	Camera   capture.Camera
	CameraID int

	// Detector overrides the MediaPipe detector created by Start.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Scene receives every command in issue order.
	Scene scene.Scene
	Bank  *audio.Bank
	Sinks []audio.Sink
	Clock timeutil.Clock
}

// App owns the control loop: camera, detector, classifier, debouncer,
// router and audio player.
type App struct {
	config Config
	camera capture.Camera
	motion *capture.MotionDetector
	clock  timeutil.Clock

	// core is held for a whole cycle and while tuning is swapped.
	core       sync.Mutex
	tuning     *config.Tuning
	classifier *gesture.Classifier
	tracker    *gesture.Tracker
	router     *gesture.Router
	player     *audio.Player
	state      scene.State
	seq        uint64

	mu         sync.RWMutex
	detector   detector.Detector
	enabled    bool
	session    string
	last       Update
	lastErr    string
	publishers []Publisher
	stopCh     chan struct{}
	done       chan struct{}

	preview *preview
	stats   counters
}

type counters struct {
	cycles     atomic.Int64
	handsFound atomic.Int64
	cues       atomic.Int64
}

func (c *counters) reset() {
	c.cycles.Store(0)
	c.handsFound.Store(0)
	c.cues.Store(0)
}

// New creates an App. Detection starts disabled.
func New(cfg Config) *App {
	if cfg.Tuning == nil {
		cfg.Tuning = &config.Tuning{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Bank == nil {
		cfg.Bank = audio.NewBank()
	}
	if cfg.Camera == nil {
		cam := capture.DefaultConfig()
		cam.DeviceID = cfg.CameraID
		cam.FPS = cfg.Tuning.GetFPS()
		cfg.Camera = capture.NewCamera(cam)
	}

	a := &App{
		config:   cfg,
		camera:   cfg.Camera,
		motion:   capture.NewMotionDetector(cfg.Tuning.GetMotionThreshold()),
		clock:    cfg.Clock,
		detector: cfg.Detector,
		state:    scene.DefaultState(),
		session:  uuid.NewString(),
		preview:  newPreview(),
	}
	a.applyTuning(cfg.Tuning)
	a.last = Update{
		Session: a.session,
		Frame:   gesture.NeutralFrame,
		Status:  gesture.Status(gesture.NeutralFrame, false, cfg.Tuning.GetZoneSplitY()),
		Scene:   a.state,
	}
	return a
}

// applyTuning rebuilds the stateless core components and retunes the
// stateful ones in place. The caller holds a.core or has exclusive access.
func (a *App) applyTuning(t *config.Tuning) {
	a.tuning = t
	a.classifier = gesture.NewClassifier(t.ClassifierConfig())
	a.router = gesture.NewRouter(t.RouterConfig())
	if tc := t.TrackerConfig().WithDefaults(); a.tracker == nil || a.tracker.Config() != tc {
		a.tracker = gesture.NewTracker(tc)
	}
	cooldowns := map[audio.Cue]time.Duration{
		audio.CueGrab:    t.GetGrabCooldown(),
		audio.CueRelease: t.GetReleaseCooldown(),
		audio.CueMagic:   t.GetMagicCooldown(),
		audio.CueWind:    t.GetWindCooldown(),
	}
	if a.player == nil {
		a.player = audio.NewPlayer(a.config.Bank, audio.Config{
			Cooldowns: cooldowns,
			Clock:     a.clock,
		}, a.config.Sinks...)
	} else {
		a.player.SetCooldowns(cooldowns)
	}
	a.motion.SetThreshold(t.GetMotionThreshold())
}

// SetTuning validates t and swaps it in between two cycles. The edge
// record survives unless the debouncer settings changed.
func (a *App) SetTuning(t *config.Tuning) error {
	if t == nil {
		t = &config.Tuning{}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	a.core.Lock()
	defer a.core.Unlock()
	a.applyTuning(t)
	a.camera.SetFPS(t.GetFPS())
	log.Printf("tuning applied (scheme=%s, mirrored=%v)", t.GetScheme(), t.GetMirrored())
	return nil
}

// Tuning returns the tuning in use.
func (a *App) Tuning() *config.Tuning {
	a.core.Lock()
	defer a.core.Unlock()
	return a.tuning
}

// AddPublisher registers a receiver of per-cycle updates.
func (a *App) AddPublisher(p Publisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publishers = append(a.publishers, p)
}

// AddSink registers another audio sink.
func (a *App) AddSink(s audio.Sink) {
	a.core.Lock()
	defer a.core.Unlock()
	a.config.Sinks = append(a.config.Sinks, s)
	a.player.AddSink(s)
}

// SetEnabled turns hand control on or off. While disabled the loop keeps
// running without detection, so a tracked hand is lost after the timeout
// and the scene is released.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()
	if changed {
		log.Printf("hand control enabled=%v", enabled)
	}
}

// IsEnabled returns whether hand control is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector, nil before Start.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Bank returns the sound bank.
func (a *App) Bank() *audio.Bank {
	return a.config.Bank
}

// Session returns the id of the current run.
func (a *App) Session() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Running reports whether the loop is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the detector and the camera and starts the loop. A detector
// failure returns an error wrapping ErrNoDetector; a camera failure is
// returned as is. In both cases the loop is not started and the core stays
// neutral.
func (a *App) Start() error {
	fps := a.Tuning().GetFPS()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if a.detector == nil {
		mp, err := detector.NewMediaPipeDetector(a.config.DetectorConfig)
		if err != nil {
			a.lastErr = err.Error()
			return fmt.Errorf("%w: %v", ErrNoDetector, err)
		}
		a.detector = mp
		log.Println("using MediaPipe hand detection")
	}

	if err := a.camera.Open(); err != nil {
		a.lastErr = err.Error()
		return fmt.Errorf("camera unavailable: %w", err)
	}
	a.camera.SetFPS(fps)

	a.session = uuid.NewString()
	a.lastErr = ""
	a.stats.reset()
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Start(a.session, a.clock.Now()); err != nil {
			log.Printf("failed to record session start: %v", err)
		}
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Printf("control loop started (session %s)", a.session)
	return nil
}

// Stop ends the loop and releases the camera. Cues still queued in sinks
// are dropped by the sinks themselves.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	session := a.session
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	if err := a.camera.Close(); err != nil {
		log.Printf("error closing camera: %v", err)
	}
	a.motion.Reset()

	if a.config.Store != nil {
		err := a.config.Store.Sessions().Finish(session, a.clock.Now(), a.Stats())
		if err != nil {
			log.Printf("failed to record session end: %v", err)
		}
	}
	log.Println("control loop stopped")
}

// Close stops the loop and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.motion.Close()

	a.mu.Lock()
	d := a.detector
	a.detector = nil
	a.mu.Unlock()

	if d != nil {
		return d.Close()
	}
	return nil
}

// Stats returns the counters of the current run.
func (a *App) Stats() store.SessionStats {
	return store.SessionStats{
		Cycles:     a.stats.cycles.Load(),
		HandsFound: a.stats.handsFound.Load(),
		Cues:       a.stats.cues.Load(),
	}
}

// Snapshot is the externally visible state of the App.
type Snapshot struct {
	Enabled  bool               `json:"enabled"`
	Running  bool               `json:"running"`
	Session  string             `json:"session"`
	Error    string             `json:"error,omitempty"`
	Sounds   []audio.Cue        `json:"sounds"`
	Stats    store.SessionStats `json:"stats"`
	Last     Update             `json:"last"`
	Detector bool               `json:"detector"`
}

// Snapshot returns the last cycle and the loop status.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		Enabled:  a.enabled,
		Running:  a.stopCh != nil,
		Session:  a.session,
		Error:    a.lastErr,
		Sounds:   a.config.Bank.Loaded(),
		Stats:    a.Stats(),
		Last:     a.last,
		Detector: a.detector != nil,
	}
}
