package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"

	"copywatch/internal/config"
	"copywatch/internal/httpapi"
	"copywatch/internal/infrastructure/comparison"
	"copywatch/internal/infrastructure/scoring"
	"copywatch/internal/infrastructure/storage"
	"copywatch/internal/infrastructure/wikidata"
	"copywatch/internal/logging"
	"copywatch/internal/usecase"
	"copywatch/internal/wiki"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	controller *httpapi.Controller
	writer     *usecase.AutoReviewWriter
	closers    []func() error
}

// New builds a runnable application instance. Every wiki from the config
// gets its own replica directory; the record store and scoring client are
// shared.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	centralDB, err := sql.Open("mysql", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	app.closers = append(app.closers, centralDB.Close)

	store := storage.NewRecordStore(centralDB, time.Duration(cfg.Review.WhitelistCacheTTL))
	scores := scoring.NewClient(cfg.Scoring.Endpoint, cfg.Scoring.APIKey, time.Duration(cfg.Scoring.CacheTTL))
	comparer := comparison.NewClient(cfg.Comparison.Endpoint, cfg.Comparison.Project)

	app.writer = usecase.NewAutoReviewWriter(store, cfg.Review.BotUser, baseLogger.With("component", "autoreview"))

	registry := wiki.NewRegistry()
	for _, wc := range cfg.Wikis {
		registry.Register(wiki.Target{Lang: wc.Lang, Domain: wc.Domain, ReplicaDSN: wc.ReplicaDSN})
	}

	sites := make(map[string]*httpapi.Site, len(cfg.Wikis))
	for _, lang := range registry.Langs() {
		target, err := registry.Resolve(lang)
		if err != nil {
			return nil, err
		}

		replicaDB, err := sql.Open("mysql", target.ReplicaDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s replica: %w", lang, err)
		}
		app.closers = append(app.closers, replicaDB.Close)

		directory := wikidata.NewDirectory(replicaDB)

		enricher := usecase.NewEnricher(usecase.EnricherDeps{
			Store:            store,
			Directory:        directory,
			Scores:           scores,
			AutoReview:       app.writer,
			Target:           target,
			DisplayThreshold: cfg.Scoring.DisplayThreshold,
			Logger:           baseLogger.With("component", "enricher", "wiki", lang),
		})

		reviewer := usecase.NewReviewService(usecase.ReviewServiceDeps{
			Store:      store,
			Directory:  directory,
			Target:     target,
			Privileged: cfg.Review.Privileged,
		})

		sites[lang] = &httpapi.Site{
			Target:    target,
			Store:     store,
			Directory: directory,
			Enricher:  enricher,
			Reviewer:  reviewer,
			Comparer:  comparer,
		}
	}

	app.controller = httpapi.NewController(echo.New(), sites, baseLogger.With("component", "httpapi"))

	return app, nil
}

// Run starts the auto-review writer and serves HTTP until the context is
// cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.writer.Start(ctx); err != nil {
		return fmt.Errorf("start auto-review writer: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.controller.Start(a.cfg.HTTP.ListenAddr)
	}()

	a.logger.Info("serving", "addr", a.cfg.HTTP.ListenAddr, "wikis", len(a.cfg.Wikis))

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		_ = a.shutdown()
		return err
	}
}

func (a *Application) shutdown() error {
	ctx := context.Background()

	if err := a.controller.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown failed", "error", err)
	}
	if err := a.writer.Stop(ctx); err != nil {
		a.logger.Error("auto-review writer stop failed", "error", err)
	}

	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
