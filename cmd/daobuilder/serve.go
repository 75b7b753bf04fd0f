package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/everydev1618/daobuilder"
	"github.com/everydev1618/daobuilder/serve"
)

// envOr returns the value of key, or def when it is unset or empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// serveCmd starts the REST API server.
func serveCmd(args []string) {
	// Load .env first so it wins over the settings written by init.
	for _, path := range []string{".env", envFile()} {
		if err := godotenv.Load(path); err != nil {
			slog.Debug("env file not loaded", "path", path, "error", err)
		} else {
			slog.Info("environment loaded", "path", path)
		}
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", envOr("DAOBUILDER_ADDR", ":3000"), "HTTP listen address")
	dbPath := fs.String("db", envOr("DAOBUILDER_DB", ""), "SQLite database path (default ~/.daobuilder/daobuilder.db)")
	validatorURL := fs.String("validator", os.Getenv("DAOBUILDER_VALIDATOR_URL"), "Schema validation service URL")
	deployURL := fs.String("deploy", os.Getenv("DAOBUILDER_DEPLOY_URL"), "Deployment service URL")
	sessionTTL := fs.Duration("session-ttl", 24*time.Hour, "Drop sessions idle for longer than this (0 keeps them)")
	deployTimeout := fs.Duration("deploy-timeout", 30*time.Minute, "Maximum duration of one deployment")
	retention := fs.Duration("history-retention", 90*24*time.Hour, "Prune exports and finished deployments older than this (0 keeps them)")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Println(`Usage: daobuilder serve [options]

Start the REST API server. Each session holds one configuration; imports,
edits, exports, validation and deployment all go through /api/sessions/{id}.

Environment:
  DAOBUILDER_ADDR           Listen address
  DAOBUILDER_DB             SQLite database path
  DAOBUILDER_VALIDATOR_URL  Schema validation service
  DAOBUILDER_DEPLOY_URL     Deployment service
  DAOBUILDER_DEPLOY_TOKEN   Bearer token for the deployment service
  GITHUB_CONFIG_REPO        Repository remote imports are read from
  GITHUB_CONFIG_BRANCH      Branch of that repository
  GITHUB_CONFIG_PATH        Directory of example configs in that repository
  DAO_AI_VERSION            Reported by /api/version

A .env file in the working directory is loaded first, then the settings
written by 'daobuilder init'. Variables already set are never overridden.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  daobuilder serve
  daobuilder serve --addr :8080
  daobuilder serve --db /tmp/daobuilder.db --validator http://localhost:8000/validate`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *dbPath == "" {
		if err := daobuilder.EnsureHome(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", daobuilder.Home(), err)
			os.Exit(1)
		}
		*dbPath = daobuilder.DefaultDBPath()
	}

	cfg := serve.Config{
		Addr:         *addr,
		DBPath:       *dbPath,
		ValidatorURL: *validatorURL,
		DeployURL:    *deployURL,
		DeployToken:  os.Getenv("DAOBUILDER_DEPLOY_TOKEN"),
		Templates: serve.TemplateSource{
			Repo:   envOr("GITHUB_CONFIG_REPO", "natefleming/dao-ai"),
			Branch: envOr("GITHUB_CONFIG_BRANCH", "main"),
			Path:   envOr("GITHUB_CONFIG_PATH", "config"),
		},
		Version:       version,
		DaoAIVersion:  os.Getenv("DAO_AI_VERSION"),
		SessionTTL:    *sessionTTL,
		DeployTimeout: *deployTimeout,

		HistoryRetention: *retention,
	}
	if cfg.ValidatorURL == "" {
		slog.Warn("no validator configured, schema validation will be skipped")
	}

	srv := serve.New(cfg)

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
