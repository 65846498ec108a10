package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/gesturetree/internal/capture"
)

// StreamHandler serves the annotated camera preview as MJPEG.
type StreamHandler struct {
	preview *capture.Preview
}

// NewStreamHandler creates a new StreamHandler reading from preview.
func NewStreamHandler(preview *capture.Preview) *StreamHandler {
	return &StreamHandler{preview: preview}
}

// ServeHTTP writes every new preview frame until the client goes away.
// Nothing is written while the tracker is idle or unavailable.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush(w)

	var last uint64
	for {
		wait := h.preview.Wait()
		if data, seq := h.preview.Latest(); seq != last && data != nil {
			last = seq
			if err := writePart(w, data); err != nil {
				return
			}
			flush(w)
		}

		select {
		case <-r.Context().Done():
			return
		case <-wait:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
