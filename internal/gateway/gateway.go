// ABOUTME: Gateway wiring object that owns every component's lifecycle.
// ABOUTME: Builds the stack from config, runs the HTTP server, shuts down cleanly.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/2389/forge-gateway/internal/api"
	"github.com/2389/forge-gateway/internal/config"
	"github.com/2389/forge-gateway/internal/engine"
	"github.com/2389/forge-gateway/internal/extract"
	"github.com/2389/forge-gateway/internal/flow"
	"github.com/2389/forge-gateway/internal/materialize"
	"github.com/2389/forge-gateway/internal/orchestrator"
	"github.com/2389/forge-gateway/internal/registry"
	"github.com/2389/forge-gateway/internal/respcache"
	"github.com/2389/forge-gateway/internal/socket"
	"github.com/2389/forge-gateway/internal/store"
)

// Gateway owns the full component stack: store, registry, cache, tracker,
// extractor, materializer, orchestrator, socket loop, and HTTP surface.
// It replaces any notion of process-global state; everything is scoped to
// this object and torn down by Shutdown.
type Gateway struct {
	config     *config.Config
	store      store.Store
	registry   *registry.Registry
	kv         *respcache.MemoryKV
	cache      *respcache.Cache
	tracker    *flow.Tracker
	extractor  extract.Extractor
	builder    *materialize.Materializer
	orch       *orchestrator.Orchestrator
	socket     *socket.Server
	httpServer *http.Server
	logger     *slog.Logger

	engineOverride orchestrator.Engine
}

// Option overrides a collaborator during construction. Used by tests to
// substitute fakes for the model-backed pieces.
type Option func(*Gateway)

// WithExtractor replaces the Gemini extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(g *Gateway) { g.extractor = e }
}

// WithEngine replaces the Gemini exchange engine.
func WithEngine(e orchestrator.Engine) Option {
	return func(g *Gateway) { g.engineOverride = e }
}

func orchestratorOptions(cfg *config.Config) orchestrator.Options {
	return orchestrator.Options{
		MaxTurns:       cfg.Workflow.MaxTurns,
		SummaryTimeout: cfg.Workflow.SummaryTimeout,
		WorkDir:        cfg.Workflow.WorkDir,
	}
}

// initStore opens the configured database, honoring the FORGE_DB_PATH
// environment override.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("FORGE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New builds a Gateway from configuration. The Gemini-backed extractor and
// engine require config.Extractor.APIKey unless options substitute them.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	kv := respcache.NewMemoryKV(cfg.Cache.MaxEntries)

	g := &Gateway{
		config:   cfg,
		store:    s,
		registry: registry.New(logger),
		kv:       kv,
		cache:    respcache.New(kv, cfg.Cache.TTL, logger),
		tracker:  flow.NewTracker(logger),
		builder:  materialize.New(s, cfg.Workflow.CommitTimeout, logger),
		logger:   logger.With("component", "gateway"),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.extractor == nil {
		ex, err := extract.NewGenAIExtractor(cfg.Extractor.APIKey, cfg.Extractor.Model, cfg.Extractor.Timeout, logger)
		if err != nil {
			g.closePartial()
			return nil, fmt.Errorf("creating extractor: %w", err)
		}
		g.extractor = ex
	}
	eng := g.engineOverride
	if eng == nil {
		eng, err = engine.NewGenAIEngine(cfg.Extractor.APIKey, cfg.Extractor.Model, logger)
		if err != nil {
			g.closePartial()
			return nil, fmt.Errorf("creating exchange engine: %w", err)
		}
	}
	g.orch = orchestrator.New(eng, orchestratorOptions(cfg), logger)

	if err := g.ensureDefaultReceiver(context.Background()); err != nil {
		g.closePartial()
		return nil, err
	}

	g.socket = socket.NewServer(g.registry, g.cache, g.tracker, g.extractor, g.builder, s, g.orch, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	api.NewHandler(s, logger).RegisterRoutes(e)
	e.GET("/api/ws", g.socket.HandleWebSocket)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g, nil
}

// ensureDefaultReceiver provisions the well-known receiver agent every
// materialized workflow is wired against.
func (g *Gateway) ensureDefaultReceiver(ctx context.Context) error {
	_, err := g.store.GetAgentByName(ctx, materialize.DefaultReceiverName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up default receiver: %w", err)
	}

	now := time.Now().UTC()
	agent := &store.Agent{
		ID:     uuid.NewString(),
		UserID: "system",
		Name:   materialize.DefaultReceiverName,
		Type:   store.AgentTypeAssistant,
		Config: store.AgentConfig{
			Name:                    materialize.DefaultReceiverName,
			HumanInputMode:          "NEVER",
			MaxConsecutiveAutoReply: 1,
			SystemMessage:           "You are a helpful assistant. Answer using the retrieved context when it is provided.",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.store.CreateAgent(ctx, agent); err != nil {
		return fmt.Errorf("provisioning default receiver: %w", err)
	}
	g.logger.Info("provisioned default receiver agent", "name", agent.Name)
	return nil
}

// Run starts the delivery worker and the HTTP server, then blocks until
// the context is canceled or the server fails. A graceful shutdown is
// attempted in both cases.
func (g *Gateway) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go g.socket.DeliverLoop(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", g.config.Server.HTTPAddr)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown runs Shutdown with a fresh context: the run context is
// already canceled by the time we get here.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError collects labeled close errors.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, disconnects every live client, and
// releases the cache and store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if g.httpServer != nil {
		errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	}

	g.registry.DisconnectAll()
	g.kv.Close()
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// closePartial releases resources when construction fails partway.
func (g *Gateway) closePartial() {
	g.kv.Close()
	_ = g.store.Close()
}
