// Package main provides a plugin that plays cue files with the host's
// command line audio player (afplay, paplay, aplay or ffplay).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Cue     string          `json:"cue"`
	File    string          `json:"file"`
	Session string          `json:"session"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest configuration.
type Config struct {
	Volume *float64 `json:"volume"`
	Player string   `json:"player"`
}

var errNoPlayer = errors.New("no audio player found")

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.File == "" {
		writeErrorResponse(fmt.Sprintf("cue %s has no file", req.Cue))
		return
	}
	if _, err := os.Stat(req.File); err != nil {
		writeErrorResponse(fmt.Sprintf("cue %s: %v", req.Cue, err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	name, args, err := playerCommand(cfg, req.File)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	// Start without waiting so the executor timeout only covers launch.
	if err := exec.Command(name, args...).Start(); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to start %s: %v", name, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"cue": req.Cue, "player": name})
	writeSuccessResponse(data)
}

// playerCommand picks the audio player for the platform.
func playerCommand(cfg Config, file string) (string, []string, error) {
	volume := 1.0
	if cfg.Volume != nil {
		volume = *cfg.Volume
	}

	candidates := []string{cfg.Player}
	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates, "afplay")
	case "linux":
		candidates = append(candidates, "paplay", "ffplay", "aplay")
	default:
		candidates = append(candidates, "ffplay")
	}

	for _, name := range candidates {
		if name == "" {
			continue
		}
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		return name, playerArgs(name, volume, file), nil
	}
	return "", nil, errNoPlayer
}

func playerArgs(name string, volume float64, file string) []string {
	switch name {
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64), file}
	case "paplay":
		return []string{"--volume", strconv.Itoa(int(volume * 65536)), file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(int(volume * 100)), file}
	default:
		return []string{file}
	}
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
