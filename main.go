package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/errortracking"

	"gitlab.com/flatwatch/claw/internal/config"
	"gitlab.com/flatwatch/claw/internal/logging"
	"gitlab.com/flatwatch/claw/metrics"
)

// VERSION stores the information about the semantic version of application
var VERSION = "dev"

// REVISION stores the information about the git revision of application
var REVISION = "HEAD"

func main() {
	log.SetOutput(os.Stderr)

	metrics.MustRegister()

	appMain()
}

func appMain() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load the configuration")
	}

	printVersion(cfg.General.ShowVersion, VERSION)

	if err := logging.ConfigureLogging(cfg.Log.Format, cfg.Log.Verbose); err != nil {
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	if cfg.Sentry.DSN != "" {
		initErrorReporting(cfg.Sentry.DSN, cfg.Sentry.Environment)
	}

	config.LogConfig(cfg)

	log.WithFields(log.Fields{
		"version":  VERSION,
		"revision": REVISION,
	}).Print("Claw Daemon")

	if err := runApp(cfg); err != nil {
		fatal(err, "could not run daemon")
	}
}

func initErrorReporting(sentryDSN, sentryEnvironment string) {
	errortracking.Initialize(
		errortracking.WithSentryDSN(sentryDSN),
		errortracking.WithVersion(fmt.Sprintf("%s-%s", VERSION, REVISION)),
		errortracking.WithLoggerName("claw"),
		errortracking.WithSentryEnvironment(sentryEnvironment))
}

func printVersion(showVersion bool, version string) {
	if showVersion {
		fmt.Fprintf(os.Stdout, "%s\n", version)
		os.Exit(0)
	}
}

func fatal(err error, msg string) {
	errortracking.Capture(err, errortracking.WithStackTrace())
	log.WithError(err).Fatal(msg)
}
