package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const robotsBody = `User-agent: *
Disallow: /private/
`

func testServer(t *testing.T, fetches *atomic.Int64, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/robots.txt", r.URL.Path)
		fetches.Add(1)

		w.WriteHeader(status)
		fmt.Fprint(w, robotsBody)
	}))
	t.Cleanup(server.Close)

	return server
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}

func TestAllowed(t *testing.T) {
	var fetches atomic.Int64
	server := testServer(t, &fetches, http.StatusOK)

	checker := NewChecker(server.Client(), "", time.Minute)

	allowed, err := checker.Allowed(context.Background(), mustParse(t, server.URL+"/listings?page=2"))
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.Allowed(context.Background(), mustParse(t, server.URL+"/private/area"))
	require.NoError(t, err)
	require.False(t, allowed)

	// both checks hit the same origin, robots.txt must be fetched once
	require.Equal(t, int64(1), fetches.Load())
}

func TestAllowedServerError(t *testing.T) {
	var fetches atomic.Int64
	server := testServer(t, &fetches, http.StatusInternalServerError)

	checker := NewChecker(server.Client(), "", time.Minute)

	// a 5xx robots.txt disallows everything
	allowed, err := checker.Allowed(context.Background(), mustParse(t, server.URL+"/listings"))
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAllowedUnreachableHost(t *testing.T) {
	checker := NewChecker(&http.Client{Timeout: 100 * time.Millisecond}, "", time.Minute)

	// closed port: robots.txt is treated as absent, everything is allowed
	allowed, err := checker.Allowed(context.Background(), mustParse(t, "http://127.0.0.1:1/listings"))
	require.NoError(t, err)
	require.True(t, allowed)
}
