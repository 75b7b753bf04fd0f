package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds server configuration.
type Config struct {
	Addr   string
	DBPath string

	// ValidatorURL is the schema validation service. Validation is skipped
	// when empty.
	ValidatorURL string

	// DeployURL is the deployment service. Deployments are refused when empty.
	DeployURL   string
	DeployToken string

	// Templates is the repository remote imports are fetched from.
	Templates TemplateSource

	Version      string
	DaoAIVersion string

	// SessionTTL drops sessions idle for longer than this. Zero keeps them.
	SessionTTL time.Duration

	// RequestTimeout bounds calls to the validator and template repository.
	RequestTimeout time.Duration

	// DeployTimeout bounds a whole deployment.
	DeployTimeout time.Duration

	// HistoryRetention prunes exports and finished deployments older than
	// this once a day. Zero keeps everything.
	HistoryRetention time.Duration
}

// Server is the HTTP API around configuration sessions.
type Server struct {
	cfg       Config
	store     Store
	sessions  *registry
	validator Validator
	deployer  Deployer
	deploys   *deployManager
	client    *http.Client
	startedAt time.Time
}

// New creates a new Server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Templates.Branch == "" {
		cfg.Templates.Branch = "main"
	}

	s := &Server{
		cfg:      cfg,
		sessions: newRegistry(),
		client:   &http.Client{Timeout: cfg.RequestTimeout},
	}
	if cfg.ValidatorURL != "" {
		s.validator = &HTTPValidator{URL: cfg.ValidatorURL, Client: s.client}
	}
	if cfg.DeployURL != "" {
		s.deployer = &HTTPDeployer{URL: cfg.DeployURL, Token: cfg.DeployToken, Client: s.client}
	}
	if s.cfg.Templates.Client == nil {
		s.cfg.Templates.Client = s.client
	}
	return s
}

// init wires the store into the server. Start calls it; tests call it with
// their own store.
func (s *Server) init(store Store) {
	s.store = store
	s.deploys = newDeployManager(store, s.deployer, s.cfg.DeployTimeout)
	s.startedAt = time.Now()
}

// Start initializes the store, registers routes, and listens for HTTP
// requests. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	store, err := NewSQLiteStore(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := store.Init(); err != nil {
		store.Close()
		return fmt.Errorf("init database: %w", err)
	}
	s.init(store)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := NewScheduler()
	for _, job := range s.maintenanceJobs() {
		if err := sched.AddJob(job); err != nil {
			store.Close()
			return err
		}
	}
	go sched.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("daobuilder serve started", "addr", s.cfg.Addr,
			"validator", s.cfg.ValidatorURL != "", "deployer", s.cfg.DeployURL != "")
		fmt.Printf("API: http://localhost%s/api/health\n", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errCh:
		store.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	s.deploys.wait(shutdownCtx)
	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	return nil
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)
	r.Get("/api/github-config", s.handleGitHubConfig)

	r.Post("/api/sessions", s.handleCreateSession)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Use(s.withSession)

		r.Delete("/", s.handleDeleteSession)
		r.Post("/import", s.handleImport)
		r.Post("/import/remote", s.handleImportRemote)
		r.Post("/apply", s.handleApply)
		r.Post("/reset", s.handleReset)

		r.Get("/config", s.handleGetConfig)
		r.Patch("/config", s.handlePatchConfig)
		r.Post("/memory-link", s.handleMemoryLink)

		r.Get("/export", s.handleExport)
		r.Get("/exports", s.handleListExports)
		r.Get("/references", s.handleReferences)
		r.Put("/overrides/{section}", s.handleSetOverride)
		r.Delete("/overrides", s.handleClearOverrides)

		r.Get("/sanitized", s.handleSanitized)
		r.Post("/validate", s.handleValidate)
		r.Post("/deploy/validate", s.handleDeployValidate)
		r.Post("/deploy", s.handleDeploy)
	})

	r.Get("/api/deployments", s.handleListDeployments)
	r.Get("/api/deployments/{depID}", s.handleGetDeployment)
	r.Get("/api/deployments/{depID}/events", s.handleDeploymentEvents)
	r.Post("/api/deployments/{depID}/cancel", s.handleCancelDeployment)

	return r
}

// maintenanceJobs returns the housekeeping jobs enabled by the config.
func (s *Server) maintenanceJobs() []MaintenanceJob {
	var jobs []MaintenanceJob
	if ttl := s.cfg.SessionTTL; ttl > 0 {
		every := ttl / 2
		if every < time.Minute {
			every = time.Minute
		}
		jobs = append(jobs, MaintenanceJob{
			Name: "expire-sessions",
			Cron: "@every " + every.String(),
			Run: func() {
				if n := s.sessions.expire(ttl); n > 0 {
					slog.Info("expired idle sessions", "count", n)
				}
			},
		})
	}
	if keep := s.cfg.HistoryRetention; keep > 0 {
		jobs = append(jobs, MaintenanceJob{
			Name: "prune-history",
			Cron: "@daily",
			Run: func() {
				n, err := s.store.PruneBefore(time.Now().Add(-keep))
				if err != nil {
					slog.Error("prune history failed", "error", err)
					return
				}
				if n > 0 {
					slog.Info("pruned history", "rows", n)
				}
			},
		})
	}
	return jobs
}

// corsMiddleware adds permissive CORS headers for development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
