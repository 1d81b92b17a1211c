package handlers

import (
	"net/http"

	"gitlab.com/flatwatch/claw/internal/httperrors"
	"gitlab.com/flatwatch/claw/internal/logging"
	"gitlab.com/flatwatch/claw/internal/scraper"
	"gitlab.com/flatwatch/claw/internal/sse"
)

type startEvent struct {
	Origin   string `json:"origin"`
	MaxPages int    `json:"max_pages"`
}

type pageEvent struct {
	Page      int           `json:"page"`
	URL       string        `json:"url"`
	Count     int           `json:"count"`
	Hits      []scraper.Hit `json:"hits"`
	TotalHits int           `json:"total_hits_so_far"`
}

type doneEvent struct {
	Pages     int `json:"pages"`
	TotalHits int `json:"total_hits"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// ScrapeStream runs a scrape and reports progress as server-sent
// events: start, one page event per scraped page, then done. Failures
// at any point become a terminal error event on the open stream.
func (h *Handlers) ScrapeStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseScrapeRequest(r)
	if err != nil {
		serveRequestError(w, err)
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		httperrors.Serve500(w)
		return
	}

	job, err := h.scraper.NewJob(r.Context(), req.URL, req.PageRange)
	if err != nil {
		stream.Event("error", errorEvent{Error: err.Error()})
		return
	}

	stream.Event("start", startEvent{Origin: job.Origin(), MaxPages: job.MaxPages()})

	pages, totalHits, err := job.Stream(r.Context(), func(page int, pageURL string, hits []scraper.Hit, total int) {
		if hits == nil {
			hits = []scraper.Hit{}
		}
		stream.Event("page", pageEvent{
			Page:      page,
			URL:       pageURL,
			Count:     len(hits),
			Hits:      hits,
			TotalHits: total,
		})
	})
	if err != nil {
		logging.LogRequest(r).WithError(err).Warn("scrape stream failed")
		stream.Event("error", errorEvent{Error: err.Error()})
		return
	}

	stream.Event("done", doneEvent{Pages: pages, TotalHits: totalHits})
}
