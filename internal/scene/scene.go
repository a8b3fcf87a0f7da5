// Package scene defines the command surface of the zen garden scene and the
// controller-side view of its state.
package scene

// Camera distance bounds.
const (
	DefaultCameraDistance = 12.0
	MinCameraDistance     = 5.0
	MaxCameraDistance     = 25.0
)

// Kind identifies a scene command.
type Kind string

const (
	KindRotate      Kind = "rotate"
	KindWater       Kind = "water"
	KindToggleTheme Kind = "toggle_theme"
	KindZoom        Kind = "zoom"
	KindGrab        Kind = "grab"
	KindMove        Kind = "move"
	KindRelease     Kind = "release"
	KindRake        Kind = "rake"
	KindDayNight    Kind = "day_night"
)

// Command is one tagged scene signal. Value carries the scalar of rotate,
// water, zoom and day_night; X and Y carry the position of grab, move and rake.
type Command struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
}

// Constructors for each command kind.
func Rotate(speed float64) Command    { return Command{Kind: KindRotate, Value: speed} }
func Water(intensity float64) Command { return Command{Kind: KindWater, Value: intensity} }
func ToggleTheme() Command            { return Command{Kind: KindToggleTheme} }
func Zoom(delta float64) Command      { return Command{Kind: KindZoom, Value: delta} }
func Grab(x, y float64) Command       { return Command{Kind: KindGrab, X: x, Y: y} }
func Move(x, y float64) Command       { return Command{Kind: KindMove, X: x, Y: y} }
func Release() Command                { return Command{Kind: KindRelease} }
func Rake(x, y float64) Command       { return Command{Kind: KindRake, X: x, Y: y} }
func DayNight(blend float64) Command  { return Command{Kind: KindDayNight, Value: blend} }

// Scene is the imperative interface of the rendered diorama.
type Scene interface {
	SetRotationSpeed(speed float64)
	Water(intensity float64)
	ToggleTheme()
	Zoom(delta float64)
	// Grab picks the object under (x, y), if any.
	Grab(x, y float64)
	MoveGrabbed(x, y float64)
	Release()
	// Rake leaves a raking trail sample at (x, y).
	Rake(x, y float64)
	// SetDayNight blends the lighting between day (0) and night (1).
	SetDayNight(blend float64)
}

// Dispatch applies commands to s in order.
func Dispatch(s Scene, cmds []Command) {
	for _, c := range cmds {
		switch c.Kind {
		case KindRotate:
			s.SetRotationSpeed(c.Value)
		case KindWater:
			s.Water(c.Value)
		case KindToggleTheme:
			s.ToggleTheme()
		case KindZoom:
			s.Zoom(c.Value)
		case KindGrab:
			s.Grab(c.X, c.Y)
		case KindMove:
			s.MoveGrabbed(c.X, c.Y)
		case KindRelease:
			s.Release()
		case KindRake:
			s.Rake(c.X, c.Y)
		case KindDayNight:
			s.SetDayNight(c.Value)
		}
	}
}

// State is what the controller knows about the scene after the commands it
// has issued. The router reads it to clamp outputs and pair grab/release.
type State struct {
	RotationSpeed  float64 `json:"rotationSpeed"`
	WaterIntensity float64 `json:"waterIntensity"`
	CameraDistance float64 `json:"cameraDistance"`
	DayNight       float64 `json:"dayNight"`
	Night          bool    `json:"night"`
	Grabbed        bool    `json:"grabbed"`
}

// DefaultState returns the scene state at startup: day, camera at its
// default distance, nothing held.
func DefaultState() State {
	return State{CameraDistance: DefaultCameraDistance}
}

// Apply updates the state with one issued command.
func (s *State) Apply(c Command) {
	switch c.Kind {
	case KindRotate:
		s.RotationSpeed = c.Value
	case KindWater:
		s.WaterIntensity = c.Value
	case KindToggleTheme:
		s.Night = !s.Night
	case KindZoom:
		s.CameraDistance += c.Value
	case KindGrab:
		s.Grabbed = true
	case KindRelease:
		s.Grabbed = false
	case KindDayNight:
		s.DayNight = c.Value
	}
}

// ApplyAll updates the state with each command in order.
func (s *State) ApplyAll(cmds []Command) {
	for _, c := range cmds {
		s.Apply(c)
	}
}
