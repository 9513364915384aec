package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/config"
	"github.com/caio-sobreiro/mwlbridge/logging"
	"github.com/caio-sobreiro/mwlbridge/mwlsync"
	"github.com/caio-sobreiro/mwlbridge/source"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

// app holds the components shared by the commands that touch the stores.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *worklist.Store
	pool   *pgxpool.Pool
	sync   *mwlsync.Synchronizer
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(cfg.Env, cfg.LogLevel), nil
}

// openApp opens the worklist store and, when withSource is set, the
// scheduling store and the synchronizer over it.
func openApp(ctx context.Context, withSource bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := worklist.Open(cfg.WorklistDBPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: store}
	if !withSource {
		return a, nil
	}

	if err := cfg.RequireSource(); err != nil {
		a.close()
		return nil, err
	}
	pool, err := source.NewPool(ctx, cfg.SourceDatabaseURL, cfg.SourceMaxConns, cfg.SourceMinConns)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pool = pool

	extractor := source.NewExtractor(
		source.NewPGReader(pool),
		source.NewClassifier(cfg.UltrasoundKeywords, cfg.InScopeStatuses),
		source.Projection{
			Modality:        cfg.Modality,
			AccessionPrefix: cfg.AccessionPrefix,
			AccessionDigits: cfg.AccessionDigits,
		},
	)
	a.sync = mwlsync.New(extractor, store, logger)
	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close worklist store")
	}
}
