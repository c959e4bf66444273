package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/recognition"
)

// streamInterval paces the preview at the default capture rate.
const streamInterval = 200 * time.Millisecond

// StreamHandler serves the camera preview as MJPEG. It shows the frames the
// pipeline reads rather than opening the camera itself.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler for a.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.app.IsRunning() {
		http.Error(w, "Camera is not running", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		f, ok := h.app.LatestFrame()
		if !ok || f.Timestamp.Equal(last) {
			continue
		}
		last = f.Timestamp

		buf, err := recognition.EncodeJPEG(f)
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		if _, err := w.Write(buf); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}
}
