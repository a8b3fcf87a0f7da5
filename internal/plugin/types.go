// Package plugin discovers and runs external cue handlers. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin and the sound cues it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Cues        []string        `json:"cues"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin declared the cue. A plugin that
// declares no cues handles all of them.
func (m Manifest) Handles(cue string) bool {
	if len(m.Cues) == 0 {
		return true
	}
	for _, c := range m.Cues {
		if c == cue {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for one cue.
type Request struct {
	Cue     string          `json:"cue"`
	File    string          `json:"file,omitempty"`
	Session string          `json:"session,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is the plugin's reply.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
