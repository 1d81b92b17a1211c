package dispatch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"gitlab.com/flatwatch/claw/internal/testhelpers"
)

func TestMiddlewarePassesResponseThrough(t *testing.T) {
	d := New(1, 0, time.Second)

	handler := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ok":true}`)
	}))

	ww := httptest.NewRecorder()
	handler.ServeHTTP(ww, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusCreated, ww.Code)
	require.Equal(t, "application/json", ww.Header().Get("Content-Type"))
	require.Equal(t, `{"ok":true}`, ww.Body.String())
}

func TestMiddlewareQueueFull(t *testing.T) {
	d := New(1, 0, 0)

	release := make(chan struct{})
	started := make(chan struct{})

	handler := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()
	<-started

	ww := httptest.NewRecorder()
	handler.ServeHTTP(ww, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, ww.Code)
	require.JSONEq(t, `{"error":"too many requests"}`, ww.Body.String())

	close(release)
	wg.Wait()
}

func TestMiddlewareRequestTimeout(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	d := New(1, 0, 20*time.Millisecond)

	handlerDone := make(chan struct{})
	handler := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handlerDone)
		<-r.Context().Done()
		// a late write must not corrupt the timeout response
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "too late")
	}))

	ww := httptest.NewRecorder()
	handler.ServeHTTP(ww, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusGatewayTimeout, ww.Code)
	require.JSONEq(t, `{"error":"request timed out"}`, ww.Body.String())

	select {
	case <-handlerDone:
	case <-time.After(time.Second):
		t.Fatal("handler did not observe cancellation")
	}

	testhelpers.AssertLogContains(t, "request handler exceeded the execution timeout", hook.AllEntries())
}

func TestAdmissionDoesNotBuffer(t *testing.T) {
	d := New(1, 0, 10*time.Millisecond)

	handler := d.Admission(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// runs longer than the request timeout, which only applies to
		// Middleware-wrapped routes
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "stream")
	}))

	ww := httptest.NewRecorder()
	handler.ServeHTTP(ww, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, ww.Code)
	require.Equal(t, "stream", ww.Body.String())
}
