package server

import (
	"fmt"
	"net/http"
)

// PreviewSource provides JPEG-encoded camera frames.
type PreviewSource interface {
	SubscribePreview() (<-chan []byte, func())
}

// StreamHandler serves the camera preview as MJPEG. It never reads the
// camera itself; frames come from the control loop.
type StreamHandler struct {
	source PreviewSource
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source PreviewSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, cancel := h.source.SubscribePreview()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		var jpeg []byte
		select {
		case <-r.Context().Done():
			return
		case jpeg = <-frames:
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
