package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"gitlab.com/flatwatch/claw/metrics"
)

// Profile selects which browser header set a fetch impersonates. Listing
// pages sometimes serve an empty shell to one profile but not the other,
// so retries alternate between them.
type Profile int

const (
	// Desktop browser profile
	Desktop Profile = iota
	// Mobile browser profile
	Mobile
)

func (p Profile) String() string {
	if p == Mobile {
		return "mobile"
	}
	return "desktop"
}

var desktopAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

var mobileAgents = []string{
	"Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
}

// RandomDesktopUA returns one of the known desktop user agent strings.
func RandomDesktopUA() string {
	return desktopAgents[rand.Intn(len(desktopAgents))]
}

func randomMobileUA() string {
	return mobileAgents[rand.Intn(len(mobileAgents))]
}

// Config holds the knobs of the page fetcher.
type Config struct {
	// Timeout bounds a single attempt including body read.
	Timeout time.Duration
	// MaxAttempts is the number of fetch attempts per page.
	MaxAttempts int
	// RedirectLimit caps followed redirects per attempt.
	RedirectLimit int
	// MinBodyLength is the minimum acceptable body size. Shorter bodies
	// are treated as bot-walls and retried.
	MinBodyLength int
	// Marker must be contained in an acceptable body. Empty disables the
	// content check.
	Marker string
	// BackoffMin/BackoffMax bound the jittered sleep between attempts.
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// DefaultConfig returns the fetch settings used against the live site.
func DefaultConfig() Config {
	return Config{
		Timeout:       25 * time.Second,
		MaxAttempts:   5,
		RedirectLimit: 8,
		MinBodyLength: 4000,
		Marker:        "EntityList-item",
		BackoffMin:    600 * time.Millisecond,
		BackoffMax:    1500 * time.Millisecond,
	}
}

// Fetcher retrieves listing pages while impersonating a browser. All
// clients share one metered transport; Client() hands out a fresh
// client so each page starts with a clean cookie-free session.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
}

// New creates a Fetcher with a metered upstream transport.
func New(cfg Config) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		transport: NewTransportWithMetrics(metrics.FetchRequestDuration, metrics.FetchRequests),
	}
}

// Client returns a fresh client for one page fetch.
func (f *Fetcher) Client() *http.Client {
	return &http.Client{
		Transport: f.transport,
		Timeout:   f.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.cfg.RedirectLimit {
				return fmt.Errorf("stopped after %d redirects", f.cfg.RedirectLimit)
			}
			return nil
		},
	}
}

// Warmup performs a throwaway request against the origin so the page
// fetch arrives with a plausible navigation history. Failures are only
// logged.
func (f *Fetcher) Warmup(ctx context.Context, client *http.Client, origin string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin, nil)
	if err != nil {
		return
	}
	req.Header = headers(Desktop, origin)

	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).Debug("warmup request failed")
		return
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Page fetches pageURL and returns its body. It retries up to the
// configured attempts, alternating browser profiles when the body fails
// the content sanity check, with a jittered backoff between attempts.
func (f *Fetcher) Page(ctx context.Context, client *http.Client, pageURL, referer string) (string, error) {
	var lastErr error
	profile := Desktop

	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, err := f.attempt(ctx, client, pageURL, referer, profile)
		if err == nil && f.acceptable(body) {
			return body, nil
		}

		if err != nil {
			lastErr = err
		} else {
			log.WithFields(log.Fields{
				"url":      pageURL,
				"profile":  profile.String(),
				"body_len": len(body),
			}).Debug("fetched body failed the content check")
		}

		// not good enough, flip the profile and back off
		if profile == Desktop {
			profile = Mobile
		} else {
			profile = Desktop
		}

		if err := SleepJitter(ctx, f.cfg.BackoffMin, f.cfg.BackoffMax); err != nil {
			return "", err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("failed to fetch page after retries")
	}
	return "", lastErr
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, pageURL, referer string, profile Profile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header = headers(profile, referer)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"url":      pageURL,
		"profile":  profile.String(),
		"status":   resp.StatusCode,
		"final":    resp.Request.URL.String(),
		"body_len": len(body),
		"referer":  referer,
	}).Debug("fetched page")

	return string(body), nil
}

func (f *Fetcher) acceptable(body string) bool {
	if len(body) <= f.cfg.MinBodyLength {
		return false
	}

	return f.cfg.Marker == "" || strings.Contains(body, f.cfg.Marker)
}

func headers(profile Profile, referer string) http.Header {
	h := http.Header{}

	switch profile {
	case Mobile:
		h.Set("User-Agent", randomMobileUA())
	default:
		h.Set("User-Agent", RandomDesktopUA())
	}

	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "hr-HR,hr;q=0.9,en-US;q=0.8,en;q=0.7")
	h.Set("Referer", referer)
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("DNT", "1")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Dest", "document")

	return h
}

// SleepJitter sleeps a random duration in [min, max), honoring
// cancellation.
func SleepJitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
