// Package audio turns gesture edges into throttled sound cues.
package audio

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Cue names a sound effect.
type Cue string

const (
	CueGrab    Cue = "grab"
	CueRelease Cue = "release"
	CueMagic   Cue = "magic"
	CueWind    Cue = "wind"
)

// Cues lists every cue.
var Cues = []Cue{CueGrab, CueRelease, CueMagic, CueWind}

// ParseCue returns the cue with the given name.
func ParseCue(name string) (Cue, bool) {
	for _, c := range Cues {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Extensions are tried in order when looking up a cue file.
var Extensions = []string{".mp3", ".wav", ".ogg"}

var contentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
}

const maxSoundSize = 5 * 1024 * 1024

// ErrSoundTooLarge is returned for cue files over the size limit.
var ErrSoundTooLarge = errors.New("sound file too large")

// Sound is a preloaded cue file.
type Sound struct {
	Cue         Cue
	Path        string
	ContentType string
	Data        []byte
}

// Bank holds the preloaded cue files. It is filled once before the control
// loop starts and only read afterwards.
type Bank struct {
	mu     sync.RWMutex
	dir    string
	sounds map[Cue]*Sound
}

// NewBank creates an empty Bank. Every cue is silent until Preload.
func NewBank() *Bank {
	return &Bank{sounds: make(map[Cue]*Sound)}
}

// Preload loads every cue from dir, named <cue>.mp3, .wav or .ogg. A cue
// that is missing or unreadable is logged and stays silent. It returns the
// number of cues loaded.
func (b *Bank) Preload(dir string) int {
	sounds := make(map[Cue]*Sound, len(Cues))
	for _, cue := range Cues {
		s, err := loadCue(dir, cue)
		if err != nil {
			log.Printf("audio: cue %s will be silent: %v", cue, err)
			continue
		}
		sounds[cue] = s
	}

	b.mu.Lock()
	b.dir = dir
	b.sounds = sounds
	b.mu.Unlock()

	return len(sounds)
}

func loadCue(dir string, cue Cue) (*Sound, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, string(cue)+ext)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > maxSoundSize {
			return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrSoundTooLarge, info.Size())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return &Sound{
			Cue:         cue,
			Path:        path,
			ContentType: contentTypes[ext],
			Data:        data,
		}, nil
	}
	return nil, fmt.Errorf("no %s file in %s", cue, dir)
}

// Get returns the sound for a cue.
func (b *Bank) Get(cue Cue) (*Sound, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sounds[cue]
	return s, ok
}

// Loaded returns the cues that have a sound, sorted.
func (b *Bank) Loaded() []Cue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Cue, 0, len(b.sounds))
	for c := range b.sounds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dir returns the directory of the last Preload.
func (b *Bank) Dir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dir
}
