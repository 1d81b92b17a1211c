package bodylimit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	tests := map[string]struct {
		limit          int64
		body           string
		expectedStatus int
	}{
		"disabled": {
			limit:          0,
			body:           strings.Repeat("a", 128),
			expectedStatus: http.StatusOK,
		},
		"below_limit": {
			limit:          64,
			body:           strings.Repeat("a", 64),
			expectedStatus: http.StatusOK,
		},
		"above_limit": {
			limit:          64,
			body:           strings.Repeat("a", 65),
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for tn, tt := range tests {
		t.Run(tn, func(t *testing.T) {
			middleware := NewMiddleware(handler, tt.limit)

			ww := httptest.NewRecorder()
			rr := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(tt.body))

			middleware.ServeHTTP(ww, rr)

			require.Equal(t, tt.expectedStatus, ww.Code)
		})
	}
}

func TestNewMiddlewareUndeclaredLength(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	middleware := NewMiddleware(handler, 8)

	// no Content-Length, body read must still hit the cap
	rr := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(strings.Repeat("b", 32)))
	rr.ContentLength = -1

	ww := httptest.NewRecorder()
	middleware.ServeHTTP(ww, rr)

	require.Equal(t, http.StatusRequestEntityTooLarge, ww.Code)
}
