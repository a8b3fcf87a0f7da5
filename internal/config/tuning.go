// Package config holds the operator tuning of the gesture controller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/zengarden/internal/gesture"
)

// Tuning is the JSON tuning document. Every field is optional: a nil field
// falls back to the built-in default through its Get* accessor, so partial
// documents are safe both as a startup file and as a runtime override.
type Tuning struct {
	// Classifier
	PinchThreshold *float64 `json:"pinch_threshold,omitempty"`
	ExtensionRatio *float64 `json:"extension_ratio,omitempty"`

	// Debouncer
	HandLostTimeout *string  `json:"hand_lost_timeout,omitempty"` // duration string like "150ms"
	ZoneSplitY      *float64 `json:"zone_split_y,omitempty"`

	// Router
	Scheme            *string  `json:"scheme,omitempty"` // "levitate" or "zoom"
	Mirrored          *bool    `json:"mirrored,omitempty"`
	RotationDeadZone  *float64 `json:"rotation_dead_zone,omitempty"`
	RotationGain      *float64 `json:"rotation_gain,omitempty"`
	MaxRotationSpeed  *float64 `json:"max_rotation_speed,omitempty"`
	DayNightMargin    *float64 `json:"day_night_margin,omitempty"`
	ThemeHysteresis   *float64 `json:"theme_hysteresis,omitempty"`
	WaterRollDeadZone *float64 `json:"water_roll_dead_zone,omitempty"`
	ZoomInThreshold   *float64 `json:"zoom_in_threshold,omitempty"`
	ZoomOutThreshold  *float64 `json:"zoom_out_threshold,omitempty"`
	ZoomStep          *float64 `json:"zoom_step,omitempty"`

	// Audio cooldowns
	GrabCooldown    *string `json:"grab_cooldown,omitempty"`
	ReleaseCooldown *string `json:"release_cooldown,omitempty"`
	MagicCooldown   *string `json:"magic_cooldown,omitempty"`
	WindCooldown    *string `json:"wind_cooldown,omitempty"`

	// Pipeline
	FPS             *int     `json:"fps,omitempty"`
	MotionThreshold *float64 `json:"motion_threshold,omitempty"` // percent of changed pixels
}

const (
	maxFileSize            = 1 * 1024 * 1024
	defaultMotionThreshold = 1.0
)

// LoadTuning loads a Tuning document from a .json file.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes and validates a Tuning document.
func ParseTuning(data []byte) (*Tuning, error) {
	t := &Tuning{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Merge returns a copy of t with every field set in override replacing the
// corresponding field of t. Neither argument is modified.
func (t *Tuning) Merge(override *Tuning) (*Tuning, error) {
	out := &Tuning{}
	if t != nil {
		base, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("marshal base tuning: %w", err)
		}
		if err := json.Unmarshal(base, out); err != nil {
			return nil, fmt.Errorf("copy base tuning: %w", err)
		}
	}
	if override != nil {
		data, err := json.Marshal(override)
		if err != nil {
			return nil, fmt.Errorf("marshal override tuning: %w", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("apply override tuning: %w", err)
		}
	}
	return out, nil
}

// Validate checks the ranges of every field that is set.
func (t *Tuning) Validate() error {
	if err := checkPositive("pinch_threshold", t.PinchThreshold); err != nil {
		return err
	}
	if err := checkPositive("extension_ratio", t.ExtensionRatio); err != nil {
		return err
	}
	if err := checkUnit("zone_split_y", t.ZoneSplitY, false); err != nil {
		return err
	}
	if t.Scheme != nil {
		switch gesture.Scheme(*t.Scheme) {
		case gesture.SchemeLevitate, gesture.SchemeZoom:
		default:
			return fmt.Errorf("scheme must be %q or %q, got %q", gesture.SchemeLevitate, gesture.SchemeZoom, *t.Scheme)
		}
	}
	if err := checkUnit("rotation_dead_zone", t.RotationDeadZone, true); err != nil {
		return err
	}
	if err := checkPositive("rotation_gain", t.RotationGain); err != nil {
		return err
	}
	if err := checkPositive("max_rotation_speed", t.MaxRotationSpeed); err != nil {
		return err
	}
	if t.DayNightMargin != nil && (*t.DayNightMargin < 0 || *t.DayNightMargin >= 0.5) {
		return fmt.Errorf("day_night_margin must be in [0, 0.5), got %f", *t.DayNightMargin)
	}
	if t.ThemeHysteresis != nil && (*t.ThemeHysteresis < 0 || *t.ThemeHysteresis >= 0.5) {
		return fmt.Errorf("theme_hysteresis must be in [0, 0.5), got %f", *t.ThemeHysteresis)
	}
	if t.WaterRollDeadZone != nil && (*t.WaterRollDeadZone < 0 || *t.WaterRollDeadZone >= 1) {
		return fmt.Errorf("water_roll_dead_zone must be in [0, 1), got %f", *t.WaterRollDeadZone)
	}
	if err := checkPositive("zoom_in_threshold", t.ZoomInThreshold); err != nil {
		return err
	}
	if err := checkPositive("zoom_out_threshold", t.ZoomOutThreshold); err != nil {
		return err
	}
	if t.GetZoomInThreshold() >= t.GetZoomOutThreshold() {
		return fmt.Errorf("zoom_in_threshold (%f) must be below zoom_out_threshold (%f)",
			t.GetZoomInThreshold(), t.GetZoomOutThreshold())
	}
	if err := checkPositive("zoom_step", t.ZoomStep); err != nil {
		return err
	}

	durations := []struct {
		name     string
		value    *string
		positive bool
	}{
		{"hand_lost_timeout", t.HandLostTimeout, true},
		{"grab_cooldown", t.GrabCooldown, false},
		{"release_cooldown", t.ReleaseCooldown, false},
		{"magic_cooldown", t.MagicCooldown, false},
		{"wind_cooldown", t.WindCooldown, false},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		v, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, v)
		}
		if v == 0 && d.positive {
			return fmt.Errorf("%s must be positive, got %s", d.name, v)
		}
	}

	if t.FPS != nil && (*t.FPS < 1 || *t.FPS > 120) {
		return fmt.Errorf("fps must be between 1 and 120, got %d", *t.FPS)
	}
	if t.MotionThreshold != nil && (*t.MotionThreshold <= 0 || *t.MotionThreshold > 100) {
		return fmt.Errorf("motion_threshold must be in (0, 100], got %f", *t.MotionThreshold)
	}
	return nil
}

func checkPositive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, *v)
	}
	return nil
}

func checkUnit(name string, v *float64, allowZero bool) error {
	if v == nil {
		return nil
	}
	if *v > 1 || *v < 0 || (!allowZero && *v == 0) || (!allowZero && *v == 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetPinchThreshold returns the pinch_threshold value or the default.
func (t *Tuning) GetPinchThreshold() float64 {
	return getFloat(t.PinchThreshold, gesture.DefaultPinchThreshold)
}

// GetExtensionRatio returns the extension_ratio value or the default.
func (t *Tuning) GetExtensionRatio() float64 {
	return getFloat(t.ExtensionRatio, gesture.DefaultExtensionRatio)
}

// GetHandLostTimeout parses and returns the hand_lost_timeout value.
func (t *Tuning) GetHandLostTimeout() time.Duration {
	return getDuration(t.HandLostTimeout, gesture.DefaultHandLostTimeout)
}

// GetZoneSplitY returns the zone_split_y value or the default.
func (t *Tuning) GetZoneSplitY() float64 {
	return getFloat(t.ZoneSplitY, gesture.DefaultZoneSplitY)
}

// GetScheme returns the pinch scheme, levitate by default.
func (t *Tuning) GetScheme() gesture.Scheme {
	if t.Scheme == nil || *t.Scheme == "" {
		return gesture.SchemeLevitate
	}
	return gesture.Scheme(*t.Scheme)
}

// GetMirrored returns the mirrored value, true by default.
func (t *Tuning) GetMirrored() bool {
	if t.Mirrored == nil {
		return true
	}
	return *t.Mirrored
}

// GetZoomInThreshold returns the zoom_in_threshold value or the default.
func (t *Tuning) GetZoomInThreshold() float64 {
	return getFloat(t.ZoomInThreshold, gesture.DefaultRouterConfig().ZoomInThreshold)
}

// GetZoomOutThreshold returns the zoom_out_threshold value or the default.
func (t *Tuning) GetZoomOutThreshold() float64 {
	return getFloat(t.ZoomOutThreshold, gesture.DefaultRouterConfig().ZoomOutThreshold)
}

// GetGrabCooldown returns the grab cue cooldown.
func (t *Tuning) GetGrabCooldown() time.Duration {
	return getDuration(t.GrabCooldown, gesture.GrabCooldown)
}

// GetReleaseCooldown returns the release cue cooldown.
func (t *Tuning) GetReleaseCooldown() time.Duration {
	return getDuration(t.ReleaseCooldown, gesture.ReleaseCooldown)
}

// GetMagicCooldown returns the magic cue cooldown.
func (t *Tuning) GetMagicCooldown() time.Duration {
	return getDuration(t.MagicCooldown, gesture.MagicCooldown)
}

// GetWindCooldown returns the wind cue cooldown.
func (t *Tuning) GetWindCooldown() time.Duration {
	return getDuration(t.WindCooldown, gesture.WindCooldown)
}

// GetFPS returns the pipeline frame rate, 30 by default.
func (t *Tuning) GetFPS() int {
	if t.FPS == nil {
		return 30
	}
	return *t.FPS
}

// GetMotionThreshold returns the idle motion gate threshold in percent.
func (t *Tuning) GetMotionThreshold() float64 {
	return getFloat(t.MotionThreshold, defaultMotionThreshold)
}

// ClassifierConfig builds the classifier configuration.
func (t *Tuning) ClassifierConfig() gesture.ClassifierConfig {
	return gesture.ClassifierConfig{
		PinchThreshold: t.GetPinchThreshold(),
		ExtensionRatio: t.GetExtensionRatio(),
	}
}

// TrackerConfig builds the debouncer configuration.
func (t *Tuning) TrackerConfig() gesture.TrackerConfig {
	return gesture.TrackerConfig{
		HandLostTimeout: t.GetHandLostTimeout(),
		ZoneSplitY:      t.GetZoneSplitY(),
	}
}

// RouterConfig builds the router configuration.
func (t *Tuning) RouterConfig() gesture.RouterConfig {
	def := gesture.DefaultRouterConfig()
	return gesture.RouterConfig{
		Scheme:            t.GetScheme(),
		Mirrored:          t.GetMirrored(),
		RotationDeadZone:  getFloat(t.RotationDeadZone, def.RotationDeadZone),
		RotationGain:      getFloat(t.RotationGain, def.RotationGain),
		MaxRotationSpeed:  getFloat(t.MaxRotationSpeed, def.MaxRotationSpeed),
		ZoneSplitY:        t.GetZoneSplitY(),
		DayNightMargin:    getFloat(t.DayNightMargin, def.DayNightMargin),
		ThemeHysteresis:   getFloat(t.ThemeHysteresis, def.ThemeHysteresis),
		WaterRollDeadZone: getFloat(t.WaterRollDeadZone, def.WaterRollDeadZone),
		ZoomInThreshold:   t.GetZoomInThreshold(),
		ZoomOutThreshold:  t.GetZoomOutThreshold(),
		ZoomStep:          getFloat(t.ZoomStep, def.ZoomStep),
		MinCameraDistance: def.MinCameraDistance,
		MaxCameraDistance: def.MaxCameraDistance,
	}
}
