package gesture

import (
	"fmt"
	"time"
)

// DefaultHandLostTimeout is how long the hand may go undetected before the
// tracker declares it gone.
const DefaultHandLostTimeout = 150 * time.Millisecond

// DefaultZoneSplitY divides the image into the upper (day/night) and lower
// (rotation lock) fist zones.
const DefaultZoneSplitY = 0.5

// Gesture names one of the tracked boolean gestures.
type Gesture string

const (
	GesturePinch Gesture = "pinch"
	GestureFist  Gesture = "fist"
	GesturePeace Gesture = "peace"
)

// Gestures lists the tracked gestures in evaluation order.
var Gestures = []Gesture{GesturePinch, GestureFist, GesturePeace}

// EventKind classifies tracker events.
type EventKind string

const (
	// EventRising fires when a gesture turns on.
	EventRising EventKind = "rising"
	// EventFalling fires when a gesture turns off while the hand is tracked.
	EventFalling EventKind = "falling"
	// EventHandFound fires on the first detected cycle after absence.
	EventHandFound EventKind = "hand_found"
	// EventHandLost fires once when the absence timeout elapses. All gesture
	// flags are cleared in bulk; no falling edges accompany it.
	EventHandLost EventKind = "hand_lost"
)

// Event is an edge observed by the tracker.
type Event struct {
	Kind        EventKind `json:"kind"`
	Gesture     Gesture   `json:"gesture,omitempty"`
	TimestampMs int64     `json:"timestampMs"`
}

// Is reports whether the event is the given edge of gesture g.
func (e Event) Is(kind EventKind, g Gesture) bool {
	return e.Kind == kind && e.Gesture == g
}

// EdgeRecord is the only mutable state of the gesture core: the previous
// cycle's flags plus hand presence. It is owned by a single Tracker.
type EdgeRecord struct {
	Pinch          bool  `json:"pinch"`
	Fist           bool  `json:"fist"`
	Peace          bool  `json:"peace"`
	LastHandSeenMs int64 `json:"lastHandSeenMs"`
	HandPresent    bool  `json:"handPresent"`
}

func (r *EdgeRecord) flag(g Gesture) bool {
	switch g {
	case GesturePinch:
		return r.Pinch
	case GestureFist:
		return r.Fist
	case GesturePeace:
		return r.Peace
	}
	return false
}

func (r *EdgeRecord) setFlags(f HandFrame) {
	r.Pinch = f.Pinch
	r.Fist = f.Fist
	r.Peace = f.Peace
}

// TrackerConfig holds the debouncer settings.
type TrackerConfig struct {
	HandLostTimeout time.Duration
	ZoneSplitY      float64
}

// DefaultTrackerConfig returns the default debouncer settings.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		HandLostTimeout: DefaultHandLostTimeout,
		ZoneSplitY:      DefaultZoneSplitY,
	}
}

// Result is the tracker output for one cycle.
type Result struct {
	// Frame is the current frame, the held last frame during a short
	// dropout, or NeutralFrame once the hand is gone.
	Frame   HandFrame `json:"frame"`
	Present bool      `json:"present"`
	Events  []Event   `json:"events,omitempty"`
	Status  string    `json:"status"`
}

// HasEvent reports whether the result contains the given edge.
func (r Result) HasEvent(kind EventKind, g Gesture) bool {
	for _, e := range r.Events {
		if e.Is(kind, g) {
			return true
		}
	}
	return false
}

// Tracker is the temporal debouncer. It is not safe for concurrent use; a
// single detection loop owns it.
type Tracker struct {
	config TrackerConfig
	record EdgeRecord
	last   HandFrame
}

// WithDefaults returns c with out-of-range fields replaced by defaults.
func (c TrackerConfig) WithDefaults() TrackerConfig {
	if c.HandLostTimeout <= 0 {
		c.HandLostTimeout = DefaultHandLostTimeout
	}
	if c.ZoneSplitY <= 0 || c.ZoneSplitY >= 1 {
		c.ZoneSplitY = DefaultZoneSplitY
	}
	return c
}

// NewTracker creates a Tracker in the absent state.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		config: config.WithDefaults(),
		last:   NeutralFrame,
	}
}

// Config returns the settings in use, defaults applied.
func (t *Tracker) Config() TrackerConfig {
	return t.config
}

// Record returns a copy of the current edge record.
func (t *Tracker) Record() EdgeRecord {
	return t.record
}

// Update advances the tracker by one cycle. detected reports whether the
// classifier produced a frame this cycle; frame is ignored otherwise.
func (t *Tracker) Update(frame HandFrame, detected bool, nowMs int64) Result {
	if detected {
		return t.observe(frame, nowMs)
	}

	if !t.record.HandPresent {
		return t.result(NeutralFrame, false, nil)
	}

	gap := time.Duration(nowMs-t.record.LastHandSeenMs) * time.Millisecond
	if gap < t.config.HandLostTimeout {
		return t.result(t.last, true, nil)
	}

	t.record = EdgeRecord{LastHandSeenMs: t.record.LastHandSeenMs}
	t.last = NeutralFrame
	return t.result(NeutralFrame, false, []Event{{Kind: EventHandLost, TimestampMs: nowMs}})
}

func (t *Tracker) observe(frame HandFrame, nowMs int64) Result {
	var events []Event
	if !t.record.HandPresent {
		events = append(events, Event{Kind: EventHandFound, TimestampMs: nowMs})
	}

	for _, g := range Gestures {
		prev, cur := t.record.flag(g), frame.Flag(g)
		switch {
		case cur && !prev:
			events = append(events, Event{Kind: EventRising, Gesture: g, TimestampMs: nowMs})
		case !cur && prev:
			events = append(events, Event{Kind: EventFalling, Gesture: g, TimestampMs: nowMs})
		}
	}

	t.record.setFlags(frame)
	t.record.LastHandSeenMs = nowMs
	t.record.HandPresent = true
	t.last = frame

	return t.result(frame, true, events)
}

func (t *Tracker) result(frame HandFrame, present bool, events []Event) Result {
	return Result{
		Frame:   frame,
		Present: present,
		Events:  events,
		Status:  Status(frame, present, t.config.ZoneSplitY),
	}
}

// Status describes the interpreted gesture state for display. The text is
// not a stable API.
func Status(frame HandFrame, present bool, zoneSplitY float64) string {
	switch {
	case !present:
		return "No hand detected"
	case frame.Fist && frame.Y < zoneSplitY:
		return "Fist (upper half): day/night blend"
	case frame.Fist:
		return "Fist (lower half): rotation locked"
	case frame.Pinch:
		return "Pinch: levitating"
	case frame.Peace:
		return "Peace: raking"
	default:
		return fmt.Sprintf("Open hand (x=%.2f, roll=%+.2f)", frame.X, frame.Roll)
	}
}
