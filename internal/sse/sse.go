package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot
// flush, e.g. when an intermediary buffers the whole response.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Writer emits server-sent events on an HTTP response.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares w for an event stream and sends the response header.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &Writer{w: w, f: f}, nil
}

// Event marshals data to JSON and emits it under the given event name,
// flushing so the client sees it immediately.
func (s *Writer) Event(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.f.Flush()

	return nil
}
