package scene

import "sync"

// Recorder is a Scene that records the commands it receives.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
}

func (r *Recorder) SetRotationSpeed(speed float64) { r.record(Rotate(speed)) }
func (r *Recorder) Water(intensity float64)        { r.record(Water(intensity)) }
func (r *Recorder) ToggleTheme()                   { r.record(ToggleTheme()) }
func (r *Recorder) Zoom(delta float64)             { r.record(Zoom(delta)) }
func (r *Recorder) Grab(x, y float64)              { r.record(Grab(x, y)) }
func (r *Recorder) MoveGrabbed(x, y float64)       { r.record(Move(x, y)) }
func (r *Recorder) Release()                       { r.record(Release()) }
func (r *Recorder) Rake(x, y float64)              { r.record(Rake(x, y)) }
func (r *Recorder) SetDayNight(blend float64)      { r.record(DayNight(blend)) }

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Reset clears the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
