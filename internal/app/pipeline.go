package app

import (
	"log"
	"slices"
	"sync"
	"time"

	"github.com/ayusman/zengarden/internal/capture"
	"github.com/ayusman/zengarden/internal/detector"
	"github.com/ayusman/zengarden/internal/gesture"
	"github.com/ayusman/zengarden/internal/scene"
)

// loopState is owned by the pipeline goroutine.
type loopState struct {
	active       bool
	lastMotionMs int64
	readErrors   int
	detectFailed bool
}

// runPipeline is the control loop. It runs at the tuned rate while a hand
// is tracked or something moves, and drops to IdleFPS otherwise.
//
// Each cycle:
//  1. Read a frame (skipped while disabled)
//  2. Feed the preview subscribers and the motion detector
//  3. Run hand detection unless idle and nothing is tracked
//  4. Tick the classifier, debouncer, router and audio player
//
// A skipped or failed detection counts as "no hand" for the cycle, so the
// debouncer still times out and the scene is released.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ls := &loopState{
		active:       true,
		lastMotionMs: a.nowMs(),
	}
	fps := a.Tuning().GetFPS()
	ticker := time.NewTicker(frameInterval(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		nowMs := a.nowMs()
		hands := a.sense(ls, nowMs)
		u := a.Tick(hands, nowMs)

		active := u.Present || nowMs-ls.lastMotionMs <= IdleTimeoutMs
		want := IdleFPS
		if active {
			want = a.Tuning().GetFPS()
		}
		if active != ls.active {
			ls.active = active
			if active {
				log.Println("switched to active mode")
			} else {
				log.Println("switched to idle mode")
			}
		}
		if want != fps {
			fps = want
			a.camera.SetFPS(fps)
			ticker.Reset(frameInterval(fps))
		}
	}
}

// sense reads one frame and returns the detected hands, nil when detection
// was skipped or failed.
func (a *App) sense(ls *loopState, nowMs int64) []detector.HandLandmarks {
	if !a.IsEnabled() {
		return nil
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		if ls.readErrors == 0 {
			log.Printf("error reading frame: %v", err)
		}
		ls.readErrors++
		return nil
	}
	defer frame.Close()
	if ls.readErrors > 0 {
		log.Printf("camera recovered after %d failed reads", ls.readErrors)
		ls.readErrors = 0
	}

	if a.preview.active() {
		data, err := capture.EncodeJPEG(frame, capture.DefaultJPEGQuality)
		if err != nil {
			log.Printf("error encoding preview: %v", err)
		} else {
			a.preview.publish(data)
		}
	}

	if moved, _ := a.motion.Detect(frame); moved {
		ls.lastMotionMs = nowMs
	}
	if !a.tracking() && nowMs-ls.lastMotionMs > IdleTimeoutMs {
		return nil
	}

	d := a.Detector()
	if d == nil {
		return nil
	}
	hands, err := d.Detect(frame, nowMs)
	if err != nil {
		if !ls.detectFailed {
			log.Printf("hand detection failed: %v", err)
			a.setError(err.Error())
			ls.detectFailed = true
		}
		return nil
	}
	if ls.detectFailed {
		log.Println("hand detection recovered")
		a.setError("")
		ls.detectFailed = false
	}
	return hands
}

// Tick runs one control cycle on the hands detected at nowMs. An empty or
// malformed hand list counts as no hand. Commands are applied to the
// internal scene state and dispatched to the configured Scene in order,
// then the Update is published.
func (a *App) Tick(hands []detector.HandLandmarks, nowMs int64) Update {
	a.core.Lock()
	frame, detected := a.classifier.ClassifyHands(hands)
	res := a.tracker.Update(frame, detected, nowMs)
	cmds := a.router.Route(res, a.state)
	a.state.ApplyAll(cmds)
	if a.config.Scene != nil {
		scene.Dispatch(a.config.Scene, cmds)
	}
	cues := a.player.HandleEvents(res.Events)
	a.seq++
	u := Update{
		Seq:         a.seq,
		TimestampMs: nowMs,
		Present:     res.Present,
		Frame:       res.Frame,
		Events:      res.Events,
		Commands:    cmds,
		Cues:        cues,
		Status:      res.Status,
		Scene:       a.state,
	}
	a.core.Unlock()

	a.stats.cycles.Add(1)
	a.stats.cues.Add(int64(len(cues)))
	for _, e := range res.Events {
		switch e.Kind {
		case gesture.EventHandFound:
			a.stats.handsFound.Add(1)
			log.Println("hand found")
		case gesture.EventHandLost:
			log.Println("hand lost")
		}
	}

	a.mu.Lock()
	u.Session = a.session
	a.last = u
	pubs := slices.Clone(a.publishers)
	a.mu.Unlock()

	for _, p := range pubs {
		p.Publish(u)
	}
	return u
}

// SubscribePreview returns a channel of JPEG-encoded camera frames and a
// function that ends the subscription. Frames are only encoded while at
// least one subscriber exists; a slow subscriber misses frames.
func (a *App) SubscribePreview() (<-chan []byte, func()) {
	return a.preview.subscribe()
}

func (a *App) tracking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last.Present
}

func (a *App) setError(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = msg
}

func (a *App) nowMs() int64 {
	return a.clock.Now().UnixMilli()
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = IdleFPS
	}
	return time.Second / time.Duration(fps)
}

// preview fans out encoded frames to stream subscribers.
type preview struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newPreview() *preview {
	return &preview{subs: make(map[chan []byte]struct{})}
}

func (p *preview) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
		})
	}
}

func (p *preview) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs) > 0
}

// publish replaces any frame a subscriber has not taken yet.
func (p *preview) publish(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- data:
		default:
		}
	}
}
