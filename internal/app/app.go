package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"CanonCurator/internal/config"
	"CanonCurator/internal/domain"
	"CanonCurator/internal/httpapi"
	"CanonCurator/internal/infrastructure/inference"
	"CanonCurator/internal/infrastructure/llm"
	"CanonCurator/internal/infrastructure/metrics"
	"CanonCurator/internal/infrastructure/ml"
	"CanonCurator/internal/infrastructure/scheduler"
	"CanonCurator/internal/infrastructure/storage"
	"CanonCurator/internal/infrastructure/telegram"
	"CanonCurator/internal/logging"
	"CanonCurator/internal/ports"
	"CanonCurator/internal/usecase"
)

const (
	metricsNamespace = "canon_curator"
	shutdownTimeout  = 10 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	repo      *storage.Repository
	metrics   *metrics.Collector
	pipeline  *usecase.Pipeline
	curation  *usecase.CurationService
	scheduler *usecase.Scheduler
}

// New opens the datastore and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	repo := storage.NewRepository(db, cfg.Database.Driver)

	inferrer, err := newInferrer(cfg.Inference, baseLogger.With("component", "inference"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	collector := metrics.NewCollector(metricsNamespace)

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		var opts []telegram.Option
		if tg.BaseURL != "" {
			opts = append(opts, telegram.WithBaseURL(tg.BaseURL))
		}
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, opts...)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Repository: repo,
		Inferrer:   inferrer,
		Notifier:   notifier,
		Observer:   collector,
		Logger:     baseLogger.With("component", "pipeline"),
		BatchSize:  cfg.Engine.BatchSize,
	})

	var driver ports.Scheduler
	if cfg.Scheduler.Enabled {
		cron := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "cron"))
		if err := cron.Validate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
		driver = cron
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		repo:      repo,
		metrics:   collector,
		pipeline:  pipeline,
		curation:  usecase.NewCurationService(repo, cfg.Settings(), time.Now),
		scheduler: usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
	}, nil
}

// newInferrer resolves the configured backend and guards it with the call budget.
func newInferrer(cfg config.InferenceConfig, logger *slog.Logger) (*inference.Guarded, error) {
	registry := inference.NewRegistry(
		llm.NewDateInferrer(llm.Config{
			Endpoint:       cfg.Endpoint,
			Model:          cfg.Model,
			APIKey:         cfg.APIKey,
			SystemPrompt:   cfg.SystemPrompt,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxAttempts:    cfg.MaxAttempts,
		}),
		ml.NewClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout()),
	)

	backend, err := registry.Resolve(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	return inference.Guard(backend, inference.GuardConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Breaker: inference.BreakerConfig{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
			Timeout:          time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		},
	}, logger), nil
}

// Curation exposes the report builders.
func (a *Application) Curation() *usecase.CurationService { return a.curation }

// Enrich performs a single enrichment run.
func (a *Application) Enrich(ctx context.Context) (usecase.RunReport, error) {
	return a.pipeline.Run(ctx)
}

// InitSchema creates the tables when they do not exist.
func (a *Application) InitSchema(ctx context.Context) error {
	return a.repo.EnsureSchema(ctx)
}

// CanonSnapshot is the import file layout.
type CanonSnapshot struct {
	Authors []domain.Author `json:"authors"`
	Camps   []domain.Camp   `json:"camps"`
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Authors int `json:"authors"`
	Camps   int `json:"camps"`
}

// Import upserts every author and camp of a JSON snapshot.
func (a *Application) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var snap CanonSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return ImportStats{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := validateSnapshot(snap); err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	for _, author := range snap.Authors {
		if err := a.repo.UpsertAuthor(ctx, author); err != nil {
			return stats, fmt.Errorf("import author %s: %w", author.ID, err)
		}
		stats.Authors++
	}
	for _, camp := range snap.Camps {
		if err := a.repo.UpsertCamp(ctx, camp); err != nil {
			return stats, fmt.Errorf("import camp %s: %w", camp.ID, err)
		}
		stats.Camps++
	}
	a.logger.Info("canon imported", "authors", stats.Authors, "camps", stats.Camps)
	return stats, nil
}

func validateSnapshot(snap CanonSnapshot) error {
	for i, author := range snap.Authors {
		if author.ID == "" {
			return fmt.Errorf("author #%d has no id", i)
		}
	}
	for _, camp := range snap.Camps {
		if camp.ID == "" {
			return errors.New("camp without id")
		}
		for _, m := range camp.Members {
			if !m.Relevance.Valid() {
				return fmt.Errorf("camp %s: author %s has unknown relevance %q", camp.ID, m.AuthorID, m.Relevance)
			}
		}
	}
	return nil
}

// Handler builds the reporting HTTP surface.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(a.curation, a.metrics.Handler(), a.metrics, a.logger.With("component", "http")).Setup()
}

// Serve runs the HTTP server and the enrichment schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop scheduler", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutdown http server", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// Close releases the datastore.
func (a *Application) Close() error {
	return a.db.Close()
}
