package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/zengarden/internal/app"
	"github.com/ayusman/zengarden/internal/audio"
	"github.com/ayusman/zengarden/internal/config"
	"github.com/ayusman/zengarden/internal/plugin"
	"github.com/ayusman/zengarden/internal/server"
	"github.com/ayusman/zengarden/internal/server/api"
	"github.com/ayusman/zengarden/internal/store"
	"github.com/ayusman/zengarden/internal/tray"
)

const pluginTimeout = 5 * time.Second

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cameraID := flag.Int("camera", 0, "camera device index")
	dataDir := flag.String("data", defaultDataDir(), "data directory for the database")
	webDir := flag.String("web", "", "static web directory (default: search web/, ../web)")
	soundsDir := flag.String("sounds", "", "directory with grab/release/magic/wind sound files (default: <data>/sounds)")
	pluginDir := flag.String("plugins", "", "plugin directory (default: search plugins/, <data>/plugins)")
	soundPlugin := flag.String("sound-plugin", "", "name of a plugin that plays cues on this machine")
	tuningPath := flag.String("tuning", "", "tuning JSON file")
	fps := flag.Int("fps", 0, "camera rate while a hand is tracked (overrides tuning)")
	enabled := flag.Bool("enabled", true, "start with hand control enabled")
	withTray := flag.Bool("tray", false, "show a system tray menu")
	flag.Parse()

	fmt.Println("Zen Garden - hand tracked garden controller")

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(filepath.Join(*dataDir, "zengarden.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	base, err := loadBaseTuning(*tuningPath, *fps)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}
	effective := applyOverride(st, base)

	if *soundsDir == "" {
		*soundsDir = filepath.Join(*dataDir, "sounds")
	}
	bank := audio.NewBank()
	n := bank.Preload(*soundsDir)
	log.Printf("loaded %d of %d sounds from %s", n, len(audio.Cues), *soundsDir)

	application := app.New(app.Config{
		Store:    st,
		Tuning:   effective,
		CameraID: *cameraID,
		Bank:     bank,
	})
	defer application.Close()

	if *soundPlugin != "" {
		sink, err := openSoundPlugin(*pluginDir, *dataDir, *soundPlugin, application.Session())
		if err != nil {
			log.Printf("sound plugin unavailable: %v", err)
		} else {
			defer sink.Close()
			application.AddSink(sink)
			log.Printf("playing cues through %s", sink)
		}
	}

	if *webDir == "" {
		*webDir = findWebDir(*dataDir)
	}
	if *webDir != "" {
		fmt.Printf("Serving static files from: %s\n", *webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  *webDir,
		Store:      st,
		App:        application,
		BaseTuning: base,
	})
	defer srv.Hub().Close()

	application.SetEnabled(*enabled)
	if err := application.Start(); err != nil {
		// The server keeps serving so the operator can see the error.
		log.Printf("control loop not started: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		serverErr <- srv.ListenAndServe(*addr)
	}()

	if *withTray {
		runTray(application, *addr, serverErr)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}
	application.Stop()
}

// loadBaseTuning reads the startup tuning file, if any, and applies the
// -fps flag on top.
func loadBaseTuning(path string, fps int) (*config.Tuning, error) {
	base := &config.Tuning{}
	if path != "" {
		t, err := config.LoadTuning(path)
		if err != nil {
			return nil, err
		}
		base = t
		log.Printf("loaded tuning from %s", path)
	}
	if fps > 0 {
		base.FPS = &fps
		if err := base.Validate(); err != nil {
			return nil, err
		}
	}
	return base, nil
}

// applyOverride overlays the operator override stored in the database. A
// broken override is logged and ignored.
func applyOverride(st *store.Store, base *config.Tuning) *config.Tuning {
	override, err := api.LoadOverride(st)
	if err != nil {
		log.Printf("ignoring stored tuning override: %v", err)
		return base
	}
	if override == nil {
		return base
	}
	merged, err := base.Merge(override)
	if err == nil {
		err = merged.Validate()
	}
	if err != nil {
		log.Printf("ignoring stored tuning override: %v", err)
		return base
	}
	log.Println("applied stored tuning override")
	return merged
}

func openSoundPlugin(dir, dataDir, name, session string) (*audio.PluginSink, error) {
	if dir == "" {
		dir = findPluginDir(dataDir)
	}
	mgr := plugin.NewManager(dir)
	if err := mgr.Discover(); err != nil {
		return nil, err
	}
	p, err := mgr.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", name, dir, err)
	}
	return audio.NewPluginSink(plugin.NewExecutor(pluginTimeout), p, session), nil
}

func runTray(a *app.App, addr string, serverErr <-chan error) {
	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() { openBrowser(browserURL(addr)) })

	stop := make(chan struct{})
	t.OnQuit(func() { close(stop) })
	go t.Follow(func() string { return a.Snapshot().Last.Status }, 500*time.Millisecond, stop)

	go func() {
		if err := <-serverErr; err != nil {
			log.Printf("Server failed: %v", err)
		}
	}()
	t.Run()
	a.Stop()
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("failed to open browser: %v", err)
	}
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".zengarden"
	}
	return filepath.Join(homeDir, ".zengarden")
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	return firstDir("web", "../web", "../../web", filepath.Join(dataDir, "web"))
}

func findPluginDir(dataDir string) string {
	if dir := firstDir("plugins", "../plugins", filepath.Join(dataDir, "plugins")); dir != "" {
		return dir
	}
	return filepath.Join(dataDir, "plugins")
}

func firstDir(candidates ...string) string {
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
