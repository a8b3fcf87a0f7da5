package gesture

import (
	"math"

	"github.com/ayusman/zengarden/internal/scene"
)

// Scheme selects what the pinch gesture controls.
type Scheme string

const (
	// SchemeLevitate uses pinch to grab and carry objects.
	SchemeLevitate Scheme = "levitate"
	// SchemeZoom uses the thumb-index distance to zoom the camera.
	SchemeZoom Scheme = "zoom"
)

// RouterConfig holds the dead zones, gains and bounds of the control router.
type RouterConfig struct {
	Scheme   Scheme
	Mirrored bool

	RotationDeadZone float64
	RotationGain     float64
	MaxRotationSpeed float64

	// ZoneSplitY separates the upper (day/night) and lower (lock) fist zones.
	ZoneSplitY float64
	// DayNightMargin is the band at each image edge that saturates the blend.
	DayNightMargin  float64
	ThemeHysteresis float64

	WaterRollDeadZone float64

	ZoomInThreshold   float64
	ZoomOutThreshold  float64
	ZoomStep          float64
	MinCameraDistance float64
	MaxCameraDistance float64
}

// DefaultRouterConfig returns the default control mapping.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Scheme:            SchemeLevitate,
		Mirrored:          true,
		RotationDeadZone:  0.1,
		RotationGain:      4,
		MaxRotationSpeed:  2,
		ZoneSplitY:        DefaultZoneSplitY,
		DayNightMargin:    0.2,
		ThemeHysteresis:   0.05,
		WaterRollDeadZone: 0.25,
		ZoomInThreshold:   0.05,
		ZoomOutThreshold:  0.25,
		ZoomStep:          0.5,
		MinCameraDistance: scene.MinCameraDistance,
		MaxCameraDistance: scene.MaxCameraDistance,
	}
}

// Router maps tracker results to scene commands. It holds configuration
// only; the scene state it needs is passed in on every call.
type Router struct {
	config RouterConfig
}

// NewRouter creates a Router.
func NewRouter(config RouterConfig) *Router {
	if config.Scheme == "" {
		config.Scheme = SchemeLevitate
	}
	if config.ZoneSplitY <= 0 || config.ZoneSplitY >= 1 {
		config.ZoneSplitY = DefaultZoneSplitY
	}
	if config.MinCameraDistance > config.MaxCameraDistance {
		config.MinCameraDistance, config.MaxCameraDistance = config.MaxCameraDistance, config.MinCameraDistance
	}
	return &Router{config: config}
}

// Config returns the mapping in use.
func (r *Router) Config() RouterConfig {
	return r.config
}

// Route returns the commands for one cycle given the scene state before
// the cycle. Commands are ordered so that applying them in sequence to st
// yields the state after the cycle.
func (r *Router) Route(res Result, st scene.State) []scene.Command {
	var cmds []scene.Command

	if !res.Present {
		if st.Grabbed {
			cmds = append(cmds, scene.Release())
		}
		if st.RotationSpeed != 0 {
			cmds = append(cmds, scene.Rotate(0))
		}
		if st.WaterIntensity != 0 {
			cmds = append(cmds, scene.Water(0))
		}
		return cmds
	}

	f := res.Frame
	x := r.horizontal(f.X)
	y := clamp(f.Y, 0, 1)

	cmds = append(cmds, scene.Rotate(r.RotationSpeed(f)))

	if f.Fist && f.Y < r.config.ZoneSplitY {
		blend := r.dayNightBlend(x)
		cmds = append(cmds, scene.DayNight(blend))
		if r.themeFlips(blend, st.Night) {
			cmds = append(cmds, scene.ToggleTheme())
		}
	}

	if w := r.WaterIntensity(f); w > 0 || st.WaterIntensity != 0 {
		cmds = append(cmds, scene.Water(w))
	}

	switch r.config.Scheme {
	case SchemeZoom:
		// Grab is off in this scheme; drop anything still held from levitate.
		if st.Grabbed {
			cmds = append(cmds, scene.Release())
		}
		if d := r.zoomDelta(f, st.CameraDistance); d != 0 {
			cmds = append(cmds, scene.Zoom(d))
		}
	default:
		cmds = append(cmds, r.levitate(res, st, x, y)...)
	}

	if f.Peace {
		cmds = append(cmds, scene.Rake(x, y))
	}

	return cmds
}

// RotationSpeed returns the camera rotation speed for a frame. A held fist
// locks rotation at zero.
func (r *Router) RotationSpeed(f HandFrame) float64 {
	if f.Fist {
		return 0
	}
	offset := r.horizontal(f.X) - 0.5
	if math.Abs(offset) <= r.config.RotationDeadZone {
		return 0
	}
	limit := r.config.MaxRotationSpeed
	return clamp(offset*r.config.RotationGain, -limit, limit)
}

// WaterIntensity returns how hard an open, tilted hand pours water.
func (r *Router) WaterIntensity(f HandFrame) float64 {
	if f.Fist || f.Pinch || f.Peace {
		return 0
	}
	dz := r.config.WaterRollDeadZone
	tilt := math.Abs(f.Roll)
	if tilt <= dz || dz >= 1 {
		return 0
	}
	return clamp((tilt-dz)/(1-dz), 0, 1)
}

func (r *Router) levitate(res Result, st scene.State, x, y float64) []scene.Command {
	f := res.Frame
	switch {
	case res.HasEvent(EventRising, GesturePinch) && !st.Grabbed:
		return []scene.Command{scene.Grab(x, y)}
	case f.Pinch && st.Grabbed:
		return []scene.Command{scene.Move(x, y)}
	case !f.Pinch && st.Grabbed:
		return []scene.Command{scene.Release()}
	}
	return nil
}

func (r *Router) zoomDelta(f HandFrame, distance float64) float64 {
	if f.Fist {
		return 0
	}
	var delta float64
	switch {
	case f.PinchDistance < r.config.ZoomInThreshold:
		delta = -r.config.ZoomStep
	case f.PinchDistance > r.config.ZoomOutThreshold:
		delta = r.config.ZoomStep
	default:
		return 0
	}
	target := clamp(distance+delta, r.config.MinCameraDistance, r.config.MaxCameraDistance)
	return target - distance
}

func (r *Router) dayNightBlend(x float64) float64 {
	m := r.config.DayNightMargin
	if m < 0 || m >= 0.5 {
		return clamp(x, 0, 1)
	}
	return clamp((x-m)/(1-2*m), 0, 1)
}

func (r *Router) themeFlips(blend float64, night bool) bool {
	h := r.config.ThemeHysteresis
	if night {
		return blend < 0.5-h
	}
	return blend > 0.5+h
}

// horizontal returns x in the user's frame of reference.
func (r *Router) horizontal(x float64) float64 {
	if r.config.Mirrored {
		return 1 - x
	}
	return x
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
