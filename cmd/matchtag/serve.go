package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/internal/httpapi"
	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/query"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tagging trigger and corpus lookups over HTTP",
		Long: `Start the HTTP API. GET /update runs the tagger; /player_mentions,
/players, /matches and /sentiment query the output log. With a schedule
configured, runs are also triggered in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cache, err := query.NewCache(a.cfg.Storage.OutputPath, a.cfg.Server.CacheSize)
	if err != nil {
		return err
	}

	if a.cfg.Server.Schedule != "" {
		c, err := startSchedule(ctx, a, cache)
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	if a.cfg.Server.WatchOutput {
		go func() {
			if err := httpapi.WatchOutput(ctx, a.cfg.Storage.OutputPath, cache, a.log); err != nil {
				a.log.Error("Output watcher stopped", logger.Error(err))
			}
		}()
	}

	h := &httpapi.Handler{
		Runner:  a.driver,
		Cache:   cache,
		Health:  a.ledger,
		Metrics: a.metrics,
	}
	srv := httpapi.NewServer(httpapi.Config{
		Addr:         a.cfg.Addr(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		Debug:        a.cfg.Logging.Level == "debug",
	}, a.log, a.metrics, h.Register)
	return srv.Run(ctx)
}

// startSchedule runs the driver on the configured cron spec. Overlapping
// ticks are skipped; the driver serializes with HTTP-triggered runs.
func startSchedule(ctx context.Context, a *app, cache *query.Cache) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(a.cfg.Server.Schedule, func() {
		res, err := a.driver.Run(ctx)
		cache.Clear()
		if err != nil {
			a.log.Error("Scheduled run failed", logger.String("run_id", res.RunID), logger.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", a.cfg.Server.Schedule, err)
	}
	c.Start()
	a.log.Info("Scheduled runs enabled", logger.String("schedule", a.cfg.Server.Schedule))
	return c, nil
}
