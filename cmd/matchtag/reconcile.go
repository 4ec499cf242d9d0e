package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/config"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger/sqlite"
	"github.com/cognicore/matchtag/pkg/matchtag/maintenance"
)

func newReconcileCmd(flags *globalFlags) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare the ledger with the output log",
		Long: `Report ledger entries whose article is missing from the output log and
output log articles the ledger does not know. With --repair the first are
un-marked so they are tagged again and the second are marked processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), flags, func(ctx context.Context, cfg *config.Config, log logger.Logger, l *sqlite.Store) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				rec := &maintenance.Reconciler{Ledger: l, OutputPath: cfg.Storage.OutputPath, Logger: log}
				rec.Now = func() time.Time { return time.Now().In(loc) }

				var rep maintenance.Report
				if repair {
					rep, err = rec.Repair(ctx)
				} else {
					rep, err = rec.Check(ctx)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Fix the disagreements found")
	cmd.AddCommand(newCompactCmd(flags))
	return cmd
}

func newCompactCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the output log keeping the latest entry per article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			n, err := maintenance.CompactOutput(cfg.Storage.OutputPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate entries from %s\n", n, cfg.Storage.OutputPath)
			return nil
		},
	}
}
