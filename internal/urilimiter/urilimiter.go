// Package urilimiter caps the request URI length. Scrape targets arrive
// in the query string, so the cap also bounds the URL a client may ask
// the daemon to fetch.
package urilimiter

import (
	"net/http"

	"gitlab.com/flatwatch/claw/internal/httperrors"
	"gitlab.com/flatwatch/claw/internal/logging"
)

// NewMiddleware returns middleware which rejects requests whose URI
// exceeds limit bytes. A zero limit disables the check.
func NewMiddleware(handler http.Handler, limit int) http.Handler {
	if limit == 0 {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.RequestURI) > limit {
			logging.LogRequest(r).WithField("uri_length", len(r.RequestURI)).Debug("rejecting URI over the configured length limit")
			httperrors.Serve414(w)

			return
		}

		handler.ServeHTTP(w, r)
	})
}
