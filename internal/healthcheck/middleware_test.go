package healthcheck

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthCheckMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "app")
	})

	middleware := NewMiddleware(handler, "/healthz")

	t.Run("status path", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		require.JSONEq(t, `{"status":"success"}`, w.Body.String())
	})

	t.Run("other path passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, httptest.NewRequest("GET", "/scrape", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "app", w.Body.String())
	})
}
