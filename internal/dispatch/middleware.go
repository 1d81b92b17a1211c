package dispatch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"

	"gitlab.com/flatwatch/claw/internal/httperrors"
	"gitlab.com/flatwatch/claw/internal/logging"
)

// Middleware runs the wrapped handler under dispatch control. The response
// is buffered until the handler finishes, so a timed-out or rejected unit
// still produces exactly one well-formed response.
func (d *Dispatcher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bw := &bufferedWriter{header: http.Header{}}

		err := d.Submit(r.Context(), func(ctx context.Context) error {
			next.ServeHTTP(bw, r.WithContext(ctx))
			return nil
		})

		switch {
		case err == nil:
			bw.flush(w)
		case errors.Is(err, ErrQueueFull):
			httperrors.Serve429(w)
		case errors.Is(err, context.DeadlineExceeded):
			logging.LogRequest(r).Warn("request handler exceeded the execution timeout")
			httperrors.Serve504(w)
		default:
			// client went away mid-wait, nothing useful to write
		}
	})
}

// Admission applies only the concurrency bound, without response buffering
// or the execution timeout. Streaming responses may outlive the request
// timeout but still count against capacity.
func (d *Dispatcher) Admission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.acquire(r.Context()) {
			d.rejected.Inc()
			httperrors.Serve429(w)
			return
		}
		defer d.release()

		next.ServeHTTP(w, r)
	})
}

// bufferedWriter holds the response until the dispatcher knows the unit
// finished in time. Late writes from a cancelled handler land in the
// buffer and are discarded with it.
type bufferedWriter struct {
	mu     sync.Mutex
	header http.Header
	code   int
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.code == 0 {
		b.code = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.code == 0 {
		b.code = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) flush(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}

	if b.code == 0 {
		b.code = http.StatusOK
	}
	w.WriteHeader(b.code)
	w.Write(b.body.Bytes())
}
