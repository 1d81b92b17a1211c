// Package scraper walks paginated real estate category listings and
// extracts price hits from each page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"gitlab.com/flatwatch/claw/internal/fetch"
	"gitlab.com/flatwatch/claw/internal/robots"
	"gitlab.com/flatwatch/claw/metrics"
)

// HardPageCap bounds a scrape run regardless of the requested range.
const HardPageCap = 200

var (
	// ErrHostNotAllowed is returned for category URLs outside the host allowlist
	ErrHostNotAllowed = errors.New("domain not in whitelist")

	// ErrRobotsDisallowed is returned when robots.txt forbids the category URL
	ErrRobotsDisallowed = errors.New("robots.txt disallows this URL")
)

// Hit is one extracted listing card.
type Hit struct {
	ID           string   `json:"id"`
	ListingURL   string   `json:"listing_url"`
	Title        string   `json:"title"`
	PriceNumeric *float64 `json:"price_numeric"`
	Currency     *string  `json:"currency"`
	RawPrice     string   `json:"raw_price"`
	Sqm          *float64 `json:"sqm"`
	PricePerM2   *float64 `json:"price_per_m2"`
}

// Meta describes how a scrape run ended.
type Meta struct {
	PageCount int     `json:"page_count"`
	TotalHits int     `json:"total_hits"`
	NextURL   *string `json:"next_url"`
}

// Result is the outcome of a whole scrape run.
type Result struct {
	Hits []Hit `json:"hits"`
	Meta Meta  `json:"meta"`
}

// Config holds the scrape engine settings.
type Config struct {
	// AllowedHosts is the category URL host allowlist.
	AllowedHosts []string
	// MaxPages caps a run when the request does not carry its own
	// page range. Capped to HardPageCap either way.
	MaxPages int
	// DelayMin/DelayMax bound the jittered pause between page fetches.
	DelayMin time.Duration
	DelayMax time.Duration

	Fetch fetch.Config
}

// DefaultConfig returns the engine settings used against the live site.
func DefaultConfig() Config {
	return Config{
		AllowedHosts: []string{"www.njuskalo.hr", "njuskalo.hr"},
		MaxPages:     HardPageCap,
		DelayMin:     900 * time.Millisecond,
		DelayMax:     2200 * time.Millisecond,
		Fetch:        fetch.DefaultConfig(),
	}
}

// Scraper owns the fetcher and the robots checker shared by all runs.
type Scraper struct {
	cfg     Config
	fetcher *fetch.Fetcher
	robots  *robots.Checker
	allowed map[string]struct{}
}

// New creates a Scraper.
func New(cfg Config, checker *robots.Checker) *Scraper {
	allowed := make(map[string]struct{}, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		allowed[strings.ToLower(h)] = struct{}{}
	}

	return &Scraper{
		cfg:     cfg,
		fetcher: fetch.New(cfg.Fetch),
		robots:  checker,
		allowed: allowed,
	}
}

// PageFunc is called after each scraped page with the hits that page
// contributed and the running total.
type PageFunc func(page int, pageURL string, hits []Hit, totalHits int)

// Job is one validated scrape run.
type Job struct {
	s         *Scraper
	base      *url.URL
	startPage int
	origin    string
	maxPages  int
}

// NewJob validates a category URL against the host allowlist and
// robots.txt and prepares a run. pageRange caps the number of pages, 0
// means the configured maximum.
func (s *Scraper) NewJob(ctx context.Context, startURL string, pageRange int) (*Job, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, errors.New("url has no host")
	}
	if _, ok := s.allowed[strings.ToLower(u.Hostname())]; !ok {
		return nil, ErrHostNotAllowed
	}

	allowed, err := s.robots.Allowed(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("robots.txt check failed: %w", err)
	}
	if !allowed {
		return nil, ErrRobotsDisallowed
	}

	base, startPage := NormalizePager(u)

	maxPages := pageRange
	if maxPages <= 0 || maxPages > s.cfg.MaxPages {
		maxPages = s.cfg.MaxPages
	}
	if maxPages > HardPageCap {
		maxPages = HardPageCap
	}

	return &Job{
		s:         s,
		base:      base,
		startPage: startPage,
		origin:    base.Scheme + "://" + base.Host,
		maxPages:  maxPages,
	}, nil
}

// Origin returns the scheme and host the run targets.
func (j *Job) Origin() string { return j.origin }

// MaxPages returns the page cap of the run.
func (j *Job) MaxPages() int { return j.maxPages }

// Run walks category pages until a page yields no new hits or the page
// cap is reached. Hits are deduplicated by listing id across the whole
// run. onPage may be nil.
func (j *Job) Run(ctx context.Context, onPage PageFunc) (*Result, error) {
	return j.measured(ctx, onPage, true)
}

// Stream walks pages like Run but keeps no cross-page state, every page
// reports its hits as extracted. It returns the pages fetched and the
// total hit count.
func (j *Job) Stream(ctx context.Context, onPage PageFunc) (int, int, error) {
	result, err := j.measured(ctx, onPage, false)
	if err != nil {
		return 0, 0, err
	}

	return result.Meta.PageCount, result.Meta.TotalHits, nil
}

func (j *Job) measured(ctx context.Context, onPage PageFunc, dedup bool) (*Result, error) {
	start := time.Now()

	result, err := j.run(ctx, onPage, dedup)

	metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScrapeFailures.Inc()
	}

	return result, err
}

func (j *Job) run(ctx context.Context, onPage PageFunc, dedup bool) (*Result, error) {
	var (
		hits        = []Hit{}
		seen        = make(map[string]struct{})
		pages       int
		lastNextURL *string
		prevPageURL string
	)

	page := j.startPage

	for pages < j.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := BuildPageURL(j.base, page)
		pages++

		// fresh client per page, so every page starts a clean session
		client := j.s.fetcher.Client()
		j.s.fetcher.Warmup(ctx, client, j.origin)

		referer := prevPageURL
		if referer == "" {
			referer = j.origin
		}

		html, err := j.s.fetcher.Page(ctx, client, pageURL.String(), referer)
		if err != nil {
			return nil, err
		}
		metrics.ScrapePages.Inc()

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse page: %w", err)
		}

		var pageHits []Hit
		for _, hit := range parsePage(doc, pageURL) {
			if dedup && hit.ID != "" {
				if _, dup := seen[hit.ID]; dup {
					continue
				}
				seen[hit.ID] = struct{}{}
			}
			pageHits = append(pageHits, hit)
		}

		hits = append(hits, pageHits...)
		metrics.ScrapeHits.Add(float64(len(pageHits)))

		log.WithFields(log.Fields{
			"page":       page,
			"url":        pageURL.String(),
			"cards":      len(pageHits),
			"total_hits": len(hits),
		}).Info("scraped page")

		if onPage != nil {
			onPage(page, pageURL.String(), pageHits, len(hits))
		}

		if len(pageHits) == 0 {
			lastNextURL = nil
			break
		}

		next := BuildPageURL(j.base, page+1).String()
		lastNextURL = &next
		prevPageURL = pageURL.String()
		page++

		if pages < j.maxPages {
			if err := fetch.SleepJitter(ctx, j.s.cfg.DelayMin, j.s.cfg.DelayMax); err != nil {
				return nil, err
			}
		}
	}

	return &Result{
		Hits: hits,
		Meta: Meta{
			PageCount: pages,
			TotalHits: len(hits),
			NextURL:   lastNextURL,
		},
	}, nil
}
