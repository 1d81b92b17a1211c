package bodylimit

import (
	"net/http"

	"gitlab.com/flatwatch/claw/internal/httperrors"
)

// NewMiddleware returns middleware which caps request bodies at limit
// bytes. Requests that declare a larger Content-Length are rejected up
// front; chunked bodies are wrapped with http.MaxBytesReader so a handler
// reading past the limit fails instead of consuming unbounded input. A
// zero limit disables the check.
func NewMiddleware(handler http.Handler, limit int64) http.Handler {
	if limit == 0 {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			httperrors.Serve413(w)

			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		handler.ServeHTTP(w, r)
	})
}
