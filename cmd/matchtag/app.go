package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/internal/objstore"
	"github.com/cognicore/matchtag/internal/telemetry"
	"github.com/cognicore/matchtag/pkg/matchtag"
	"github.com/cognicore/matchtag/pkg/matchtag/config"
	"github.com/cognicore/matchtag/pkg/matchtag/corpus"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger/sqlite"
	"github.com/cognicore/matchtag/pkg/matchtag/outlog"
)

// app is the wired set of components shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	ledger  *sqlite.Store
	output  *outlog.Writer
	store   *objstore.Client
	syncer  *corpus.Syncer
	metrics *telemetry.Provider
	driver  *matchtag.Driver
}

// openLedger opens the ledger database, creating its directory.
func openLedger(ctx context.Context, cfg *config.Config) (*sqlite.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.LedgerPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	store, err := sqlite.Open(ctx, cfg.Storage.LedgerPath, sqlite.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.Storage.LedgerPath, err)
	}
	return store, nil
}

// newSyncer returns nil when object store access is disabled.
func newSyncer(cfg *config.Config, store *objstore.Client, log logger.Logger) *corpus.Syncer {
	if store == nil {
		return nil
	}
	return &corpus.Syncer{
		Store:     store,
		Prefix:    cfg.Sync.Prefix,
		Dir:       cfg.Storage.CorpusDir,
		Freshness: cfg.Sync.Freshness,
		Logger:    log,
	}
}

// newStore returns nil when object store access is disabled.
func newStore(cfg *config.Config, log logger.Logger) (*objstore.Client, error) {
	if cfg.Sync.Disabled {
		return nil, nil
	}
	return objstore.New(cfg.S3, log)
}

// buildApp wires the ledger, output log, object store, tagger and driver.
// The returned cleanup closes everything that was opened.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, func(), error) {
	a := &app{cfg: cfg, log: log, metrics: telemetry.NewProvider()}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("Close failed", logger.Error(err))
			}
		}
	}

	var err error
	a.ledger, err = openLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, a.ledger.Close)

	a.output, err = outlog.Open(cfg.Storage.OutputPath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, a.output.Close)

	a.store, err = newStore(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	a.syncer = newSyncer(cfg, a.store, log)

	comp, err := config.LoadComponents(cfg.Tagger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	opts := matchtag.Options{
		Ledger:      a.ledger,
		Output:      a.output,
		Tagger:      comp.Tagger,
		CorpusPath:  cfg.Storage.CorpusDir,
		UploadKey:   cfg.Storage.UploadKey,
		Logger:      log,
		Metrics:     a.metrics,
		Location:    loc,
		MaxAttempts: cfg.Run.MaxAttempts,
	}
	// Typed nils would defeat the driver's optional-collaborator checks.
	if a.syncer != nil {
		opts.Syncer = a.syncer
	}
	if a.store != nil {
		opts.Uploader = a.store
	}
	a.driver, err = matchtag.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

// withApp loads config, builds the app and runs fn with it.
func withApp(ctx context.Context, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := flags.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, cleanup, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, a)
}
