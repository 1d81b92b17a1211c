package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"

	"gitlab.com/flatwatch/claw/metrics"
)

// DefaultAgent is the user agent token matched against robots.txt groups.
// The upstream pages are fetched with browser user agents, so the
// matching token is the browser family.
const DefaultAgent = "Mozilla"

const maxRobotsBody = 512 * 1024

// Checker fetches and caches robots.txt per origin and answers whether a
// URL may be scraped. An unreachable robots.txt allows everything, a 5xx
// response disallows everything.
type Checker struct {
	client *http.Client
	agent  string
	cache  *gocache.Cache
}

// NewChecker creates a Checker that caches parsed robots.txt data for
// expiry per origin.
func NewChecker(client *http.Client, agent string, expiry time.Duration) *Checker {
	if agent == "" {
		agent = DefaultAgent
	}

	return &Checker{
		client: client,
		agent:  agent,
		cache:  gocache.New(expiry, 2*expiry),
	}
}

// Allowed reports whether u may be fetched according to its origin's
// robots.txt.
func (c *Checker) Allowed(ctx context.Context, u *url.URL) (bool, error) {
	data, err := c.data(ctx, u)
	if err != nil {
		return false, err
	}

	return data.TestAgent(u.RequestURI(), c.agent), nil
}

func (c *Checker) data(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := u.Scheme + "://" + u.Host

	if cached, found := c.cache.Get(origin); found {
		metrics.RobotsCacheRequests.WithLabelValues("hit").Inc()
		return cached.(*robotstxt.RobotsData), nil
	}
	metrics.RobotsCacheRequests.WithLabelValues("miss").Inc()

	data, err := c.fetch(ctx, origin)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(origin, data)

	return data, nil
}

func (c *Checker) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// an unreachable robots.txt is treated as absent
		return robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	}

	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
