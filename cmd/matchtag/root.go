package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "matchtag",
		Short: "Tag soccer match reports with players, adjectives and sentiment",
		Long: `matchtag reads scraped match reports, tags every sentence with the
players it names, the adjectives and adverbs used about them and a
sentiment score, and appends the results to an output log. A
processed-set ledger makes sure each article is tagged once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (defaults to $CONFIG_PATH)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newRunCmd(flags),
		newServeCmd(flags),
		newSyncCmd(flags),
		newFormatCmd(flags),
		newLedgerCmd(flags),
		newReconcileCmd(flags),
		newUploadCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command until it finishes or the process is
// signalled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// load reads the configuration and builds the logger for a command.
func (f *globalFlags) load() (*config.Config, logger.Logger, error) {
	path := f.configPath
	if path == "" {
		path = config.Path("")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
