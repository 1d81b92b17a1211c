package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gitlab.com/flatwatch/claw/internal/httperrors"
	"gitlab.com/flatwatch/claw/internal/logging"
)

type scrapeRequest struct {
	URL       string `json:"url"`
	PageRange int    `json:"page_range"`
}

// Scrape runs a whole scrape and returns the collected hits as JSON.
// The request arrives as a JSON POST body or as GET query parameters.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	req, err := parseScrapeRequest(r)
	if err != nil {
		serveRequestError(w, err)
		return
	}

	job, err := h.scraper.NewJob(r.Context(), req.URL, req.PageRange)
	if err != nil {
		httperrors.Serve400(w, err.Error())
		return
	}

	result, err := job.Run(r.Context(), nil)
	if err != nil {
		logging.LogRequest(r).WithError(err).Warn("scrape run failed")
		httperrors.Serve400(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logging.LogRequest(r).WithError(err).Debug("could not write scrape response")
	}
}

// serveRequestError maps a request parse failure to its status. A body
// cut off by the configured cap is 413, everything else is a 400
// carrying the parse error.
func serveRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httperrors.Serve413(w)
		return
	}

	httperrors.Serve400(w, err.Error())
}

func parseScrapeRequest(r *http.Request) (*scrapeRequest, error) {
	var req scrapeRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
	} else {
		q := r.URL.Query()
		req.URL = q.Get("url")
		if v := q.Get("page_range"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, err
			}
			req.PageRange = n
		}
	}

	return &req, nil
}
