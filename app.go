package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	ghandlers "github.com/gorilla/handlers"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
	"golang.org/x/sync/errgroup"

	"gitlab.com/flatwatch/claw/internal/bodylimit"
	"gitlab.com/flatwatch/claw/internal/config"
	"gitlab.com/flatwatch/claw/internal/dispatch"
	"gitlab.com/flatwatch/claw/internal/handlers"
	"gitlab.com/flatwatch/claw/internal/healthcheck"
	"gitlab.com/flatwatch/claw/internal/logging"
	"gitlab.com/flatwatch/claw/internal/ratelimiter"
	"gitlab.com/flatwatch/claw/internal/robots"
	"gitlab.com/flatwatch/claw/internal/router"
	"gitlab.com/flatwatch/claw/internal/scraper"
	"gitlab.com/flatwatch/claw/internal/urilimiter"
	"gitlab.com/flatwatch/claw/metrics"
)

type theApp struct {
	config     *config.Config
	dispatcher *dispatch.Dispatcher
	handler    http.Handler
}

func newApp(cfg *config.Config) (*theApp, error) {
	a := &theApp{
		config: cfg,
		dispatcher: dispatch.New(
			cfg.Dispatch.MaxConcurrentRequests,
			cfg.Dispatch.QueueTimeout,
			cfg.Dispatch.RequestTimeout,
		),
	}

	r, err := a.buildRouter()
	if err != nil {
		return nil, err
	}

	a.handler, err = a.buildHandler(r)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// buildRouter registers the routes. A duplicate registration is a
// programming error and aborts startup.
func (a *theApp) buildRouter() (*router.Router, error) {
	checker := robots.NewChecker(
		&http.Client{Timeout: 10 * time.Second},
		robots.DefaultAgent,
		a.config.Scraper.RobotsCacheExpiry,
	)

	scraperCfg := scraper.DefaultConfig()
	scraperCfg.AllowedHosts = a.config.Scraper.AllowedHosts
	scraperCfg.MaxPages = a.config.Scraper.MaxPages

	h := handlers.New(scraper.New(scraperCfg, checker))

	r := router.New()

	for _, route := range []struct {
		method  string
		path    string
		handler http.HandlerFunc
		wrap    func(http.Handler) http.Handler
	}{
		{http.MethodGet, "/", h.Index, nil},
		// scrape runs go through the dispatcher, buffered and bounded
		// by the request timeout
		{http.MethodPost, "/scrape", h.Scrape, a.dispatcher.Middleware},
		{http.MethodGet, "/scrape", h.Scrape, a.dispatcher.Middleware},
		// the event stream writes incrementally, it only takes an
		// execution slot
		{http.MethodGet, "/scrape/stream", h.ScrapeStream, a.dispatcher.Admission},
		{http.MethodGet, "/dashboard", h.Dashboard, nil},
	} {
		var err error
		if route.wrap != nil {
			err = r.Handle(route.method, route.path, route.handler, route.wrap)
		} else {
			err = r.Handle(route.method, route.path, route.handler)
		}
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// buildHandler wraps the router in the shared middleware, innermost
// first.
func (a *theApp) buildHandler(inner http.Handler) (http.Handler, error) {
	handler := inner

	if a.config.RateLimit.SourceIPLimitPerSecond > 0 {
		rl := ratelimiter.New(
			ratelimiter.WithSourceIPLimitPerSecond(a.config.RateLimit.SourceIPLimitPerSecond),
			ratelimiter.WithSourceIPBurstSize(a.config.RateLimit.SourceIPBurst),
			ratelimiter.WithProxied(a.config.General.Proxied),
		)
		handler = rl.SourceIPLimiter(handler)
	}

	if !a.config.General.DisableCrossOriginRequests {
		handler = cors.Default().Handler(handler)
	}

	handler = bodylimit.NewMiddleware(handler, a.config.General.MaxBodySize)
	handler = urilimiter.NewMiddleware(handler, a.config.General.MaxURILength)
	handler = healthcheck.NewMiddleware(handler, a.config.General.StatusPath)
	handler = withMetrics(handler)

	correlationOpts := []correlation.InboundHandlerOption{
		correlation.WithSetResponseHeader(),
	}
	if a.config.General.PropagateCorrelationID {
		correlationOpts = append(correlationOpts, correlation.WithPropagation())
	}
	handler = correlation.InjectCorrelationID(handler, correlationOpts...)

	handler, err := logging.AccessLogger(handler, a.config.Log.Format)
	if err != nil {
		return nil, err
	}

	if a.config.General.Proxied {
		handler = ghandlers.ProxyHeaders(handler)
	}

	return handler, nil
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.SessionsActive.Inc()
		defer metrics.SessionsActive.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.ProcessedRequests.WithLabelValues(strconv.Itoa(m.Code), r.Method).Inc()
	})
}

// Run serves all configured listeners until a termination signal
// arrives, then drains within the shutdown grace period. Connections
// still open after the grace period are force-closed and their request
// contexts cancelled.
func (a *theApp) Run() error {
	listeners, err := a.createListeners()
	if err != nil {
		return err
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	return a.serve(listeners, done)
}

// serve runs the accept loops until a value arrives on done, then
// executes the drain sequence.
func (a *theApp) serve(listeners []net.Listener, done <-chan os.Signal) error {
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	var servers []*http.Server

	stopServing := func() {
		for _, server := range servers {
			server.Close()
		}
		closeListeners(listeners)
	}

	eg, egCtx := errgroup.WithContext(context.Background())

	for _, l := range listeners {
		server, err := a.newServer(baseCtx)
		if err != nil {
			stopServing()
			eg.Wait()
			return err
		}
		servers = append(servers, server)

		l := l
		eg.Go(func() error {
			if err := server.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if a.config.General.MetricsAddress != "" {
		l, err := listen(a.config.General.MetricsAddress)
		if err != nil {
			stopServing()
			eg.Wait()
			return err
		}
		log.WithField("listener", a.config.General.MetricsAddress).Debug("Set up metrics listener")

		server := &http.Server{Handler: promhttp.Handler()}
		servers = append(servers, server)

		eg.Go(func() error {
			if err := server.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	eg.Go(func() error {
		select {
		case sig := <-done:
			log.WithField("signal", sig.String()).Info("draining, waiting for in-flight requests")
		case <-egCtx.Done():
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		var result *multierror.Error
		for _, server := range servers {
			if err := server.Shutdown(ctx); err != nil {
				result = multierror.Append(result, err)
			}
		}

		if result.ErrorOrNil() != nil {
			log.WithError(result).Warn("drain incomplete, closing remaining connections")
			cancelRequests()
			for _, server := range servers {
				server.Close()
			}
		}

		return nil
	})

	err := eg.Wait()

	log.Info("stopped")
	return err
}

func runApp(cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	return a.Run()
}
