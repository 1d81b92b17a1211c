// Package handlers implements the public HTTP endpoints.
package handlers

import (
	"net/http"

	"gitlab.com/flatwatch/claw/internal/scraper"
)

const usage = `Claw online.
JSON:
  POST /scrape {"url":"https://www.njuskalo.hr/prodaja-stanova/zagreb","page_range":10}
  GET  /scrape?url=...&page_range=10
Stream:
  GET  /scrape/stream?url=...&page_range=10 (SSE)
UI:
  GET  /dashboard
`

// Handlers carries the scrape engine shared by all endpoints.
type Handlers struct {
	scraper *scraper.Scraper
}

// New creates the endpoint set around a scrape engine.
func New(s *scraper.Scraper) *Handlers {
	return &Handlers{scraper: s}
}

// Index serves a plain text usage summary.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(usage))
}
