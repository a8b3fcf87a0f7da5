package audio

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/zengarden/internal/gesture"
	"github.com/ayusman/zengarden/internal/timeutil"
)

// Sink receives accepted cues. PlayCue must not block the caller for long.
type Sink interface {
	PlayCue(cue Cue, sound *Sound) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cue Cue, sound *Sound) error

// PlayCue calls f.
func (f SinkFunc) PlayCue(cue Cue, sound *Sound) error {
	return f(cue, sound)
}

// Config holds the per-cue cooldowns and the clock they are measured on.
type Config struct {
	Cooldowns map[Cue]time.Duration
	Clock     timeutil.Clock
}

// DefaultConfig returns the default cue cooldowns on the wall clock.
func DefaultConfig() Config {
	return Config{
		Cooldowns: map[Cue]time.Duration{
			CueGrab:    gesture.GrabCooldown,
			CueRelease: gesture.ReleaseCooldown,
			CueMagic:   gesture.MagicCooldown,
			CueWind:    gesture.WindCooldown,
		},
		Clock: timeutil.RealClock{},
	}
}

// Player plays cues through its sinks, throttled per cue.
type Player struct {
	bank      *Bank
	throttles map[Cue]*gesture.Throttle

	mu    sync.RWMutex
	sinks []Sink
}

// NewPlayer creates a Player. Cues missing from config.Cooldowns use the
// default cooldown.
func NewPlayer(bank *Bank, config Config, sinks ...Sink) *Player {
	if bank == nil {
		bank = NewBank()
	}
	defaults := DefaultConfig()
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}

	p := &Player{
		bank:      bank,
		throttles: make(map[Cue]*gesture.Throttle, len(Cues)),
		sinks:     sinks,
	}
	for _, cue := range Cues {
		cooldown, ok := config.Cooldowns[cue]
		if !ok {
			cooldown = defaults.Cooldowns[cue]
		}
		p.throttles[cue] = gesture.NewThrottle(cooldown, config.Clock, func() { p.emit(cue) })
	}
	return p
}

// SetCooldowns retunes the per-cue throttles in place. Cues missing from
// cooldowns keep their current window.
func (p *Player) SetCooldowns(cooldowns map[Cue]time.Duration) {
	for cue, d := range cooldowns {
		if t, ok := p.throttles[cue]; ok {
			t.SetCooldown(d)
		}
	}
}

// Cooldown returns the current window of cue.
func (p *Player) Cooldown(cue Cue) time.Duration {
	if t, ok := p.throttles[cue]; ok {
		return t.Cooldown()
	}
	return 0
}

// AddSink registers another sink.
func (p *Player) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Bank returns the sound bank.
func (p *Player) Bank() *Bank {
	return p.bank
}

func (p *Player) PlayGrab() bool    { return p.Play(CueGrab) }
func (p *Player) PlayRelease() bool { return p.Play(CueRelease) }
func (p *Player) PlayMagic() bool   { return p.Play(CueMagic) }
func (p *Player) PlayWind() bool    { return p.Play(CueWind) }

// Play triggers a cue. It reports whether the cue passed its throttle. A
// cue without a loaded sound is silent and does not start a cooldown.
func (p *Player) Play(cue Cue) bool {
	t, ok := p.throttles[cue]
	if !ok {
		return false
	}
	if _, ok := p.bank.Get(cue); !ok {
		return false
	}
	return t.Fire()
}

func (p *Player) emit(cue Cue) {
	sound, _ := p.bank.Get(cue)

	p.mu.RLock()
	sinks := p.sinks
	p.mu.RUnlock()

	for _, s := range sinks {
		if err := s.PlayCue(cue, sound); err != nil {
			log.Printf("audio: cue %s: %v", cue, err)
		}
	}
}

// CueFor returns the cue triggered by a tracker event, if any.
func CueFor(e gesture.Event) (Cue, bool) {
	switch {
	case e.Is(gesture.EventRising, gesture.GesturePinch):
		return CueGrab, true
	case e.Is(gesture.EventFalling, gesture.GesturePinch):
		return CueRelease, true
	case e.Is(gesture.EventRising, gesture.GestureFist):
		return CueMagic, true
	case e.Is(gesture.EventRising, gesture.GesturePeace):
		return CueWind, true
	}
	return "", false
}

// HandleEvents plays the cue of each event and returns the cues that were
// actually played.
func (p *Player) HandleEvents(events []gesture.Event) []Cue {
	var played []Cue
	for _, e := range events {
		cue, ok := CueFor(e)
		if !ok {
			continue
		}
		if p.Play(cue) {
			played = append(played, cue)
		}
	}
	return played
}
