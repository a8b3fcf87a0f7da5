package server

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/zengarden/internal/audio"
	"github.com/ayusman/zengarden/internal/detector"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return m
}

func TestAPI_WebSocketUpdatesAndCues(t *testing.T) {
	a := newTestApp(t)
	srv := New(Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForClients(t, srv.Hub(), 1)

	// A pinch edge produces a grab cue followed by the cycle update.
	a.Tick([]detector.HandLandmarks{detector.PinchLandmarks()}, 1000)

	cue := readMessage(t, conn)
	if cue.Type != "cue" || cue.Cue != audio.CueGrab {
		t.Fatalf("expected grab cue, got %+v", cue)
	}
	if cue.URL != "/api/sounds/grab" {
		t.Errorf("unexpected cue url %q", cue.URL)
	}

	update := readMessage(t, conn)
	if update.Type != "update" || update.Update == nil {
		t.Fatalf("expected update, got %+v", update)
	}
	if !update.Update.Present || !update.Update.Frame.Pinch {
		t.Errorf("expected present pinch frame, got %+v", update.Update.Frame)
	}
	if !update.Update.Scene.Grabbed {
		t.Error("expected grabbed scene state")
	}

	// The URL from the cue message serves the preloaded bytes.
	resp, err := ts.Client().Get(ts.URL + cue.URL)
	if err != nil {
		t.Fatalf("GET %s error = %v", cue.URL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET %s status = %d, want %d", cue.URL, resp.StatusCode, http.StatusOK)
	}

	conn.Close()
	waitForClients(t, srv.Hub(), 0)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := NewHub()
	if err := h.PlayCue(audio.CueWind, nil); err != nil {
		t.Errorf("PlayCue() error = %v", err)
	}
	h.Close()
	if h.Clients() != 0 {
		t.Errorf("expected 0 clients, got %d", h.Clients())
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, h, 1)

	h.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

type fakePreview struct {
	mu        sync.Mutex
	ch        chan []byte
	cancelled bool
}

func (f *fakePreview) SubscribePreview() (<-chan []byte, func()) {
	return f.ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled = true
	}
}

func (f *fakePreview) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func TestStreamHandler(t *testing.T) {
	src := &fakePreview{ch: make(chan []byte, 1)}
	ts := httptest.NewServer(NewStreamHandler(src))
	defer ts.Close()

	src.ch <- []byte("JPEG")

	resp, err := ts.Client().Get(ts.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 4 {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("failed reading stream: %v", err)
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	want := []string{"--frame", "Content-Type: image/jpeg", "Content-Length: 4", ""}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	body := make([]byte, 4)
	if _, err := io.ReadFull(r, body); err != nil || string(body) != "JPEG" {
		t.Errorf("expected frame body JPEG, got %q (%v)", body, err)
	}

	resp.Body.Close()
	deadline := time.Now().Add(2 * time.Second)
	for !src.isCancelled() {
		if time.Now().After(deadline) {
			t.Fatal("expected subscription to end with the request")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakePreview{ch: make(chan []byte)})

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
