package config

import (
	"time"

	"github.com/namsral/flag"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultListenAddress is used when no -listen-http flag is given
	DefaultListenAddress = "0.0.0.0:8080"

	// HardPageCap bounds -scrape-max-pages and per-request page ranges
	HardPageCap = 200
)

var defaultAllowedHosts = []string{"www.njuskalo.hr", "njuskalo.hr"}

// Config stores all the config options relevant to claw.
type Config struct {
	General   General
	Listeners Listeners
	Server    Server
	Dispatch  Dispatch
	Scraper   Scraper
	RateLimit RateLimit
	Log       Log
	Sentry    Sentry
}

// General groups settings that can not be categorized under other head.
type General struct {
	StatusPath     string
	MetricsAddress string

	MaxConns     int
	MaxURILength int
	MaxBodySize  int64

	Proxied                    bool
	DisableCrossOriginRequests bool
	PropagateCorrelationID     bool
	HTTP2                      bool

	ShowVersion bool
}

// Listeners groups the raw listen addresses. The listeners themselves
// are created in appMain.
type Listeners struct {
	HTTP    []string
	ProxyV2 []string
}

// Server groups settings related to configuring the HTTP server
type Server struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	ListenKeepAlive   time.Duration
	ShutdownTimeout   time.Duration
}

// Dispatch groups settings of the request admission gate
type Dispatch struct {
	MaxConcurrentRequests int
	QueueTimeout          time.Duration
	RequestTimeout        time.Duration
}

// Scraper groups settings of the scrape engine
type Scraper struct {
	AllowedHosts      []string
	MaxPages          int
	RobotsCacheExpiry time.Duration
}

// RateLimit groups settings of the per-source-IP request rate limits
type RateLimit struct {
	SourceIPLimitPerSecond float64
	SourceIPBurst          int
}

// Log groups settings related to configuring logging
type Log struct {
	Format  string
	Verbose bool
}

// Sentry groups settings related to configuring Sentry
type Sentry struct {
	DSN         string
	Environment string
}

func loadConfig() (*Config, error) {
	config := &Config{
		General: General{
			StatusPath:                 *statusPath,
			MetricsAddress:             *metricsAddress,
			MaxConns:                   *maxConns,
			MaxURILength:               *maxURILength,
			MaxBodySize:                *maxBodySize,
			Proxied:                    *proxied,
			DisableCrossOriginRequests: *disableCrossOriginRequests,
			PropagateCorrelationID:     *propagateCorrelationID,
			HTTP2:                      *useHTTP2,
			ShowVersion:                *showVersion,
		},
		Listeners: Listeners{
			HTTP:    listenHTTP.Split(),
			ProxyV2: listenProxyV2.Split(),
		},
		Server: Server{
			ReadTimeout:       *serverReadTimeout,
			ReadHeaderTimeout: *serverReadHeaderTimeout,
			WriteTimeout:      *serverWriteTimeout,
			ListenKeepAlive:   *serverKeepAlive,
			ShutdownTimeout:   *serverShutdownTimeout,
		},
		Dispatch: Dispatch{
			MaxConcurrentRequests: *maxConcurrentRequests,
			QueueTimeout:          *dispatchQueueTimeout,
			RequestTimeout:        *requestTimeout,
		},
		Scraper: Scraper{
			AllowedHosts:      scrapeAllowedHosts.Split(),
			MaxPages:          *scrapeMaxPages,
			RobotsCacheExpiry: *robotsCacheExpiry,
		},
		RateLimit: RateLimit{
			SourceIPLimitPerSecond: *rateLimitSourceIP,
			SourceIPBurst:          *rateLimitSourceIPBurst,
		},
		Log: Log{
			Format:  *logFormat,
			Verbose: *logVerbose,
		},
		Sentry: Sentry{
			DSN:         *sentryDSN,
			Environment: *sentryEnvironment,
		},
	}

	if len(config.Listeners.HTTP) == 0 && len(config.Listeners.ProxyV2) == 0 {
		config.Listeners.HTTP = []string{DefaultListenAddress}
	}

	if len(config.Scraper.AllowedHosts) == 0 {
		config.Scraper.AllowedHosts = defaultAllowedHosts
	}

	if config.Scraper.MaxPages > HardPageCap {
		config.Scraper.MaxPages = HardPageCap
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LogConfig writes the effective settings to the debug log
func LogConfig(config *Config) {
	log.WithFields(log.Fields{
		"default-config-filename":       flag.DefaultConfigFlagname,
		"listen-http":                   config.Listeners.HTTP,
		"listen-proxyv2":                config.Listeners.ProxyV2,
		"status-path":                   config.General.StatusPath,
		"metrics-address":               config.General.MetricsAddress,
		"max-conns":                     config.General.MaxConns,
		"max-uri-length":                config.General.MaxURILength,
		"max-body-size":                 config.General.MaxBodySize,
		"proxied":                       config.General.Proxied,
		"disable-cross-origin-requests": config.General.DisableCrossOriginRequests,
		"propagate-correlation-id":      config.General.PropagateCorrelationID,
		"use-http2":                     config.General.HTTP2,
		"max-concurrent-requests":       config.Dispatch.MaxConcurrentRequests,
		"dispatch-queue-timeout":        config.Dispatch.QueueTimeout,
		"request-timeout":               config.Dispatch.RequestTimeout,
		"scrape-allowed-hosts":          config.Scraper.AllowedHosts,
		"scrape-max-pages":              config.Scraper.MaxPages,
		"robots-cache-expiry":           config.Scraper.RobotsCacheExpiry,
		"rate-limit-source-ip":          config.RateLimit.SourceIPLimitPerSecond,
		"rate-limit-source-ip-burst":    config.RateLimit.SourceIPBurst,
		"server-read-timeout":           config.Server.ReadTimeout,
		"server-read-header-timeout":    config.Server.ReadHeaderTimeout,
		"server-write-timeout":          config.Server.WriteTimeout,
		"server-keep-alive":             config.Server.ListenKeepAlive,
		"server-shutdown-timeout":       config.Server.ShutdownTimeout,
		"log-format":                    config.Log.Format,
	}).Debug("Start daemon with configuration")
}

// LoadConfig parses configuration settings passed as command line arguments or
// via config file, and populates a Config object with those values
func LoadConfig() (*Config, error) {
	initFlags()

	return loadConfig()
}
