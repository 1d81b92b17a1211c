package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/flatwatch/claw/internal/httperrors"
)

// ErrDuplicateRoute is returned when a method+path pair is registered
// twice. Ambiguous routing is a programming error, so callers treat this
// as fatal at startup.
var ErrDuplicateRoute = errors.New("duplicate route")

type middleware = func(http.Handler) http.Handler

// Router maps a request's method and exact path to a registered handler.
// The route table is mutated only during startup registration; lookups
// after that are lock-free.
type Router struct {
	mux                *mux.Router
	registered         map[string]struct{}
	defaultMiddlewares []middleware
}

// New creates a Router. The given middlewares are executed in the given
// order around every registered handler. Unmatched paths get the canonical
// "not found" response; matched paths with the wrong method get "method
// not allowed".
func New(middlewares ...middleware) *Router {
	m := mux.NewRouter()
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperrors.Serve404(w)
	})
	m.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httperrors.Serve405(w)
	})

	return &Router{
		mux:                m,
		registered:         map[string]struct{}{},
		defaultMiddlewares: middlewares,
	}
}

// Handle registers a handler for the given method and exact path. The
// optional middlewares wrap the handler inside the default ones. Returns
// ErrDuplicateRoute when the method+path pair was already registered.
func (r *Router) Handle(method, path string, handler http.Handler, middlewares ...middleware) error {
	key := method + " " + path
	if _, found := r.registered[key]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
	}
	r.registered[key] = struct{}{}

	ms := append(append([]middleware{}, r.defaultMiddlewares...), middlewares...)
	for i := len(ms) - 1; i >= 0; i-- {
		handler = ms[i](handler)
	}

	r.mux.Path(path).Methods(method).Handler(handler)

	return nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
