package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when no hand detector backend can be started.
var ErrUnavailable = errors.New("hand detector unavailable")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at timestampMs and returns
	// detected hand landmarks. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	// Only the first result is consumed by the gesture layer.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout shuts the backend down after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

// FirstHand returns the first well-formed hand in hands. Partial hands count
// as absent.
func FirstHand(hands []HandLandmarks) (*HandLandmarks, bool) {
	if len(hands) == 0 || !hands[0].Valid() {
		return nil, false
	}
	return &hands[0], true
}
