package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

func validateConfig(config *Config) error {
	var result *multierror.Error

	if len(config.Listeners.HTTP) == 0 && len(config.Listeners.ProxyV2) == 0 {
		result = multierror.Append(result, errors.New("listen-http must be defined"))
	}
	for _, addr := range append(config.Listeners.HTTP, config.Listeners.ProxyV2...) {
		if addr == "" {
			result = multierror.Append(result, errors.New("listen-http must not be empty"))
		}
	}

	if config.General.MaxConns < 0 {
		result = multierror.Append(result, errors.New("max-conns must be greater than or equal to 0"))
	}
	if config.General.MaxURILength < 0 {
		result = multierror.Append(result, errors.New("max-uri-length must be greater than or equal to 0"))
	}
	if config.General.MaxBodySize < 0 {
		result = multierror.Append(result, errors.New("max-body-size must be greater than or equal to 0"))
	}

	if config.Dispatch.MaxConcurrentRequests < 1 {
		result = multierror.Append(result, errors.New("max-concurrent-requests must be greater than or equal to 1"))
	}
	if config.Dispatch.QueueTimeout < 0 {
		result = multierror.Append(result, errors.New("dispatch-queue-timeout must be greater than or equal to 0"))
	}
	if config.Dispatch.RequestTimeout <= 0 {
		result = multierror.Append(result, errors.New("request-timeout must be greater than 0"))
	}

	if config.Scraper.MaxPages < 1 {
		result = multierror.Append(result, errors.New("scrape-max-pages must be greater than or equal to 1"))
	}
	for _, host := range config.Scraper.AllowedHosts {
		if host == "" {
			result = multierror.Append(result, errors.New("scrape-allowed-hosts must not contain empty hosts"))
		}
	}

	if config.RateLimit.SourceIPLimitPerSecond < 0 {
		result = multierror.Append(result, errors.New("rate-limit-source-ip must be greater than or equal to 0"))
	}
	if config.RateLimit.SourceIPBurst < 1 {
		result = multierror.Append(result, errors.New("rate-limit-source-ip-burst must be greater than or equal to 1"))
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log-format must be 'json' or 'text', got %q", config.Log.Format))
	}

	return result.ErrorOrNil()
}
