package audio

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/zengarden/internal/plugin"
)

func TestPluginSink_RunsPlugin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "played.log")
	script := "#!/bin/sh\ncat >> " + out + "\necho >> " + out + "\necho '{\"success\":true}'\n"
	exe := filepath.Join(dir, "player.sh")
	require.NoError(t, os.WriteFile(exe, []byte(script), 0755))

	p := &plugin.Plugin{
		Manifest:   plugin.Manifest{Name: "test-player", Executable: "player.sh", Cues: []string{"grab"}},
		Path:       dir,
		Executable: exe,
	}
	sink := NewPluginSink(plugin.NewExecutor(5*time.Second), p, "session-1")

	require.NoError(t, sink.PlayCue(CueGrab, &Sound{Cue: CueGrab, Path: "/sounds/grab.mp3"}))
	require.NoError(t, sink.PlayCue(CueWind, &Sound{Cue: CueWind, Path: "/sounds/wind.mp3"}), "undeclared cue is ignored")

	var data []byte
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(out)
		if err != nil || !strings.HasSuffix(string(b), "\n") {
			return false
		}
		data = b
		return true
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"cue":"grab"`)
	assert.Contains(t, lines[0], `"file":"/sounds/grab.mp3"`)
	assert.Contains(t, lines[0], `"session":"session-1"`)

	assert.ErrorIs(t, sink.PlayCue(CueGrab, nil), ErrSinkClosed)
	assert.NoError(t, sink.Close())
}

func TestPluginSink_CloseDropsPending(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	exe := filepath.Join(dir, "slow.sh")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\nsleep 10\necho '{\"success\":true}'\n"), 0755))

	p := &plugin.Plugin{
		Manifest:   plugin.Manifest{Name: "slow", Executable: "slow.sh"},
		Path:       dir,
		Executable: exe,
	}
	sink := NewPluginSink(plugin.NewExecutor(30*time.Second), p, "")

	for i := 0; i < pluginQueueSize; i++ {
		_ = sink.PlayCue(CueMagic, nil)
	}

	start := time.Now()
	require.NoError(t, sink.Close())
	assert.Less(t, time.Since(start), 5*time.Second)
}
