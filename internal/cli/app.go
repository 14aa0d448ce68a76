package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/cache"
	"github.com/medication-net-benefit/internal/catalog"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/engine"
	"github.com/medication-net-benefit/internal/feedback"
	"github.com/medication-net-benefit/internal/service"
)

// App holds the services wired from one configuration.
type App struct {
	Config     *domain.Config
	Logger     *logrus.Logger
	Catalog    *catalog.Catalog
	Cache      domain.ResultCache
	Evaluation *service.EvaluationService
	Feedback   *service.FeedbackService
}

// NewApp loads the catalog, opens the cache and feedback store, and builds the
// services on top of them.
func NewApp(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	// Step 1: Reference data
	medications, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"catalog_version": medications.Version(),
		"source":          medications.Source(),
		"medications":     medications.Len(),
	}).Info("Medication catalog loaded")

	// Step 2: Result cache
	resultCache := cache.New(cfg.Cache, logger)

	// Step 3: Feedback store; a nil store leaves feedback disabled
	store, err := feedback.NewStore(ctx, cfg.Feedback, logger)
	if err != nil {
		resultCache.Close()
		return nil, fmt.Errorf("opening feedback store: %w", err)
	}

	tables := engine.DefaultTables()
	evaluation := service.NewEvaluationService(engine.New(tables, logger), medications, resultCache,
		cfg.Evaluation, cfg.Cache.DefaultTTL, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Catalog:    medications,
		Cache:      resultCache,
		Evaluation: evaluation,
		Feedback:   service.NewFeedbackService(store, medications, tables.Version, logger),
	}, nil
}

// Close releases the feedback store and cache.
func (a *App) Close() error {
	return errors.Join(a.Feedback.Close(), a.Cache.Close())
}
