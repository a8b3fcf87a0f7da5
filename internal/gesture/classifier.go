// Package gesture turns per-frame hand landmarks into debounced control
// signals for the zen garden scene: classification, edge tracking, routing
// and trigger throttling.
package gesture

import (
	"github.com/ayusman/zengarden/internal/detector"
)

// DefaultPinchThreshold is the thumb-tip to index-tip distance below which
// the hand counts as pinching.
const DefaultPinchThreshold = 0.05

// HandFrame is the complete interpreted hand state for one detection cycle.
type HandFrame struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Roll  float64 `json:"roll"`
	Pinch bool    `json:"pinch"`
	Fist  bool    `json:"fist"`
	Peace bool    `json:"peace"`

	// PinchDistance is the raw thumb-tip to index-tip distance, consumed by
	// the zoom control scheme.
	PinchDistance float64 `json:"pinchDistance"`
}

// NeutralFrame represents "no hand present".
var NeutralFrame = HandFrame{X: 0.5, Y: 0.5}

// Flag returns the value of the boolean gesture g.
func (f HandFrame) Flag(g Gesture) bool {
	switch g {
	case GesturePinch:
		return f.Pinch
	case GestureFist:
		return f.Fist
	case GesturePeace:
		return f.Peace
	}
	return false
}

// ClassifierConfig holds the classifier thresholds.
type ClassifierConfig struct {
	PinchThreshold float64
	ExtensionRatio float64
}

// DefaultClassifierConfig returns the empirically tuned thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		PinchThreshold: DefaultPinchThreshold,
		ExtensionRatio: DefaultExtensionRatio,
	}
}

// Classifier is a stateless per-frame gesture classifier.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier creates a Classifier. Non-positive thresholds fall back to
// the defaults.
func NewClassifier(config ClassifierConfig) *Classifier {
	defaults := DefaultClassifierConfig()
	if config.PinchThreshold <= 0 {
		config.PinchThreshold = defaults.PinchThreshold
	}
	if config.ExtensionRatio <= 0 {
		config.ExtensionRatio = defaults.ExtensionRatio
	}
	return &Classifier{config: config}
}

// Config returns the thresholds in use.
func (c *Classifier) Config() ClassifierConfig {
	return c.config
}

// Classify interprets one hand. It returns NeutralFrame and false when the
// landmark set is not a full, finite hand.
func (c *Classifier) Classify(points []detector.Point3D) (HandFrame, bool) {
	hand := detector.HandLandmarks{Points: points}
	if !hand.Valid() {
		return NeutralFrame, false
	}

	wrist := points[detector.Wrist]
	extended := func(tip, pip int) bool {
		return IsFingerExtended(points[tip], points[pip], wrist, c.config.ExtensionRatio)
	}

	// Thumb is excluded: its fold is not reliably visible from the front.
	index := extended(detector.IndexTip, detector.IndexPIP)
	middle := extended(detector.MiddleTip, detector.MiddlePIP)
	ring := extended(detector.RingTip, detector.RingPIP)
	pinky := extended(detector.PinkyTip, detector.PinkyPIP)

	pinchDistance := Distance(points[detector.ThumbTip], points[detector.IndexTip])

	return HandFrame{
		X:             wrist.X,
		Y:             wrist.Y,
		Roll:          CalculateRoll(points),
		Pinch:         pinchDistance < c.config.PinchThreshold,
		Fist:          !index && !middle && !ring && !pinky,
		Peace:         index && middle && !ring && !pinky,
		PinchDistance: pinchDistance,
	}, true
}

// ClassifyHands classifies the first hand reported by the detector.
func (c *Classifier) ClassifyHands(hands []detector.HandLandmarks) (HandFrame, bool) {
	if len(hands) == 0 {
		return NeutralFrame, false
	}
	return c.Classify(hands[0].Points)
}
