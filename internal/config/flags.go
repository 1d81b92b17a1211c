package config

import (
	"time"

	"github.com/namsral/flag"
)

var (
	statusPath     = flag.String("status-path", "/healthz", "The url path for a status page, e.g., /healthz")
	metricsAddress = flag.String("metrics-address", "", "The address to listen on for metrics requests")

	maxConns     = flag.Int("max-conns", 0, "Limit on the number of concurrent connections to the HTTP listeners, 0 for no limit")
	maxURILength = flag.Int("max-uri-length", 1024, "Limit the length of URI, 0 for unlimited.")
	maxBodySize  = flag.Int64("max-body-size", 1024*1024, "Limit on the size of accepted request bodies in bytes, 0 for unlimited")

	proxied                    = flag.Bool("proxied", false, "Trust X-Forwarded-* headers, set when running behind a reverse proxy")
	disableCrossOriginRequests = flag.Bool("disable-cross-origin-requests", false, "Disable cross-origin requests")
	propagateCorrelationID     = flag.Bool("propagate-correlation-id", true, "Reuse existing Correlation-ID from the incoming request header `X-Request-ID` if present")
	useHTTP2                   = flag.Bool("use-http2", false, "Enable HTTP2 support on the listeners")

	// Dispatch admission
	maxConcurrentRequests = flag.Int("max-concurrent-requests", 64, "Limit on the number of requests executing at once, queueing the rest")
	dispatchQueueTimeout  = flag.Duration("dispatch-queue-timeout", 10*time.Second, "How long a request may wait for an execution slot, 0 rejects immediately when saturated")
	requestTimeout        = flag.Duration("request-timeout", 10*time.Minute, "Deadline for a single buffered request")

	// Scrape engine
	scrapeMaxPages    = flag.Int("scrape-max-pages", 200, "Default page cap for scrape runs without an explicit page_range")
	robotsCacheExpiry = flag.Duration("robots-cache-expiry", time.Hour, "The maximum time a host's robots.txt is stored in the cache")

	// HTTP rate limits
	rateLimitSourceIP      = flag.Float64("rate-limit-source-ip", 0.0, "Rate limit HTTP requests per second from a single IP, 0 means is disabled")
	rateLimitSourceIPBurst = flag.Int("rate-limit-source-ip-burst", 100, "Rate limit HTTP requests from a single IP, maximum burst allowed per second")

	// HTTP server timeouts
	serverReadTimeout       = flag.Duration("server-read-timeout", 5*time.Second, "ReadTimeout is the maximum duration for reading the entire request, including the body. A zero or negative value means there will be no timeout.")
	serverReadHeaderTimeout = flag.Duration("server-read-header-timeout", time.Second, "ReadHeaderTimeout is the amount of time allowed to read request headers. A zero or negative value means there will be no timeout.")
	serverWriteTimeout      = flag.Duration("server-write-timeout", 0, "WriteTimeout is the maximum duration before timing out writes of the response. A zero or negative value means there will be no timeout.")
	serverKeepAlive         = flag.Duration("server-keep-alive", 15*time.Second, "KeepAlive specifies the keep-alive period for network connections accepted by this listener. If zero, keep-alives are enabled if supported by the protocol and operating system. If negative, keep-alives are disabled.")
	serverShutdownTimeout   = flag.Duration("server-shutdown-timeout", 30*time.Second, "Server shutdown timeout (default: 30s)")

	logFormat  = flag.String("log-format", "json", "The log output format: 'text' or 'json'")
	logVerbose = flag.Bool("log-verbose", false, "Verbose logging")

	sentryDSN         = flag.String("sentry-dsn", "", "The address for sending sentry crash reporting to")
	sentryEnvironment = flag.String("sentry-environment", "", "The environment for sentry crash reporting")

	showVersion = flag.Bool("version", false, "Show version")

	// See initFlags()
	listenHTTP         = MultiStringFlag{separator: ","}
	listenProxyV2      = MultiStringFlag{separator: ","}
	scrapeAllowedHosts = MultiStringFlag{separator: ","}
)

// initFlags will be called from LoadConfig
func initFlags() {
	flag.Var(&listenHTTP, "listen-http", "The address(es) or unix socket paths to listen on for HTTP requests")
	flag.Var(&listenProxyV2, "listen-proxyv2", "The address(es) to listen on for HTTP PROXYv2 requests (https://www.haproxy.org/download/1.8/doc/proxy-protocol.txt)")
	flag.Var(&scrapeAllowedHosts, "scrape-allowed-hosts", "The host(s) scrape category URLs may point at")

	// read from -config=/path/to/claw-config
	flag.String(flag.DefaultConfigFlagname, "", "path to config file")

	flag.Parse()
}
