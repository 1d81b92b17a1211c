package httperrors

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type content struct {
	status  int
	message string
}

var (
	content400 = content{
		http.StatusBadRequest,
		"malformed request",
	}
	content404 = content{
		http.StatusNotFound,
		"route not found",
	}
	content405 = content{
		http.StatusMethodNotAllowed,
		"method not allowed",
	}
	content413 = content{
		http.StatusRequestEntityTooLarge,
		"request body too large",
	}
	content414 = content{
		http.StatusRequestURITooLong,
		"request URI too long",
	}
	content429 = content{
		http.StatusTooManyRequests,
		"too many requests",
	}
	content500 = content{
		http.StatusInternalServerError,
		"internal error",
	}
	content504 = content{
		http.StatusGatewayTimeout,
		"request timed out",
	}
)

type errorBody struct {
	Error string `json:"error"`
}

// Serve400 returns a malformed-request response carrying detail, falling
// back to the canonical message when detail is empty.
func Serve400(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = content400.message
	}
	serveError(w, content{content400.status, detail})
}

// Serve404 returns the canonical "not found" response. An unmatched route
// is a normal outcome, not a fault, so this carries no error logging.
func Serve404(w http.ResponseWriter) {
	serveError(w, content404)
}

// Serve405 returns a "method not allowed" response
func Serve405(w http.ResponseWriter) {
	serveError(w, content405)
}

// Serve413 returns a "payload too large" response
func Serve413(w http.ResponseWriter) {
	serveError(w, content413)
}

// Serve414 returns a "request URI too long" response
func Serve414(w http.ResponseWriter) {
	serveError(w, content414)
}

// Serve429 returns a "too many requests" response
func Serve429(w http.ResponseWriter) {
	serveError(w, content429)
}

// Serve500 returns an "internal server error" response
func Serve500(w http.ResponseWriter) {
	serveError(w, content500)
}

// Serve504 returns a "request timed out" response
func Serve504(w http.ResponseWriter) {
	serveError(w, content504)
}

func serveError(w http.ResponseWriter, c content) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(c.status)

	if err := json.NewEncoder(w).Encode(errorBody{Error: c.message}); err != nil {
		log.WithError(err).Debug("could not write error response")
	}
}
