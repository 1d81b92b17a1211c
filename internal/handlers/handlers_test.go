package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/flatwatch/claw/internal/bodylimit"
	"gitlab.com/flatwatch/claw/internal/fetch"
	"gitlab.com/flatwatch/claw/internal/robots"
	"gitlab.com/flatwatch/claw/internal/scraper"
)

// fakeSite serves robots.txt plus one listing page of cards per page
// number, empty beyond lastPage.
func fakeSite(t *testing.T, lastPage int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			http.NotFound(w, r)
		case r.URL.Path == "/":
			w.Write([]byte("home"))
		default:
			page := 0
			fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
			if page > lastPage {
				fmt.Fprintf(w, `<html><body>%s<section class="EntityList"><ul class="EntityList-items"></ul></section></body></html>`,
					strings.Repeat("<!-- filler -->", 10))
				return
			}
			fmt.Fprintf(w, `<html><body>%s
<section class="EntityList"><ul class="EntityList-items">
<li class="EntityList-item">
  <article class="entity-body">
    <h3 class="entity-title"><a class="link" href="/stan-oglas-%d0">Stan</a></h3>
    <div class="entity-description-main">55 m2</div>
    <div class="entity-prices"><strong class="price">169.000 &#8364;</strong></div>
  </article>
</li>
</ul></section></body></html>`, strings.Repeat("<!-- filler -->", 10), page)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testHandlers(t *testing.T, site *httptest.Server) *Handlers {
	t.Helper()

	u, err := url.Parse(site.URL)
	require.NoError(t, err)

	cfg := scraper.DefaultConfig()
	cfg.AllowedHosts = []string{u.Hostname()}
	cfg.DelayMin = time.Millisecond
	cfg.DelayMax = 2 * time.Millisecond
	cfg.Fetch = fetch.Config{
		Timeout:       5 * time.Second,
		MaxAttempts:   2,
		RedirectLimit: 4,
		MinBodyLength: 10,
		Marker:        "EntityList-item",
		BackoffMin:    time.Millisecond,
		BackoffMax:    2 * time.Millisecond,
	}

	checker := robots.NewChecker(http.DefaultClient, robots.DefaultAgent, time.Minute)
	return New(scraper.New(cfg, checker))
}

func TestIndex(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	rr := httptest.NewRecorder()
	h.Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Claw online.")
	require.Contains(t, rr.Body.String(), "POST /scrape")
}

func TestScrapePost(t *testing.T) {
	site := fakeSite(t, 2)
	h := testHandlers(t, site)

	body := fmt.Sprintf(`{"url":%q,"page_range":5}`, site.URL+"/prodaja-stanova/zagreb")
	rr := httptest.NewRecorder()
	h.Scrape(rr, httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var result scraper.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, 3, result.Meta.PageCount)
	require.Equal(t, 2, result.Meta.TotalHits)
	require.Len(t, result.Hits, 2)
	require.Equal(t, "Stan", result.Hits[0].Title)
	require.NotNil(t, result.Hits[0].PriceNumeric)
}

func TestScrapeGet(t *testing.T) {
	site := fakeSite(t, 1)
	h := testHandlers(t, site)

	target := "/scrape?url=" + url.QueryEscape(site.URL+"/prodaja-stanova/zagreb") + "&page_range=1"
	rr := httptest.NewRecorder()
	h.Scrape(rr, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var result scraper.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, 1, result.Meta.PageCount)
	require.NotNil(t, result.Meta.NextURL)
}

func TestScrapeRejectsMalformedBody(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	rr := httptest.NewRecorder()
	h.Scrape(rr, httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader("{not json")))

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var errBody struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	require.NotEmpty(t, errBody.Error)
}

func TestScrapeRejectsOversizedChunkedBody(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	handler := bodylimit.NewMiddleware(http.HandlerFunc(h.Scrape), 64)

	// a reader of unknown length arrives without Content-Length, so the
	// handler only hits the body cap mid-decode
	body := io.MultiReader(strings.NewReader(`{"url":"` + strings.Repeat("x", 4096) + `"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/scrape", body))

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "request body too large")
}

func TestScrapeRejectsUnlistedHost(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	body := `{"url":"https://example.com/prodaja-stanova/zagreb"}`
	rr := httptest.NewRecorder()
	h.Scrape(rr, httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "domain not in whitelist")
}

func TestScrapeRejectsBadPageRange(t *testing.T) {
	site := fakeSite(t, 0)
	h := testHandlers(t, site)

	target := "/scrape?url=" + url.QueryEscape(site.URL) + "&page_range=abc"
	rr := httptest.NewRecorder()
	h.Scrape(rr, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScrapeStream(t *testing.T) {
	site := fakeSite(t, 1)
	h := testHandlers(t, site)

	target := "/scrape/stream?url=" + url.QueryEscape(site.URL+"/prodaja-stanova/zagreb")
	rr := httptest.NewRecorder()
	h.ScrapeStream(rr, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))

	body := rr.Body.String()
	require.Contains(t, body, "event: start\n")
	require.Contains(t, body, `"origin":"`+site.URL+`"`)
	require.Contains(t, body, "event: page\n")
	require.Contains(t, body, `"total_hits_so_far":1`)
	require.Contains(t, body, "event: done\n")
	require.Contains(t, body, `"total_hits":1`)
}

func TestScrapeStreamEmitsErrorEvent(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	target := "/scrape/stream?url=" + url.QueryEscape("https://example.com/stanovi")
	rr := httptest.NewRecorder()
	h.ScrapeStream(rr, httptest.NewRequest(http.MethodGet, target, nil))

	// stream opens before validation, failures arrive as events
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "event: error\n")
	require.Contains(t, rr.Body.String(), "domain not in whitelist")
}

func TestDashboard(t *testing.T) {
	h := testHandlers(t, fakeSite(t, 0))

	rr := httptest.NewRecorder()
	h.Dashboard(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Body.String(), "Claw Dashboard")
	require.Contains(t, rr.Body.String(), "EventSource")
}
