package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/config"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger/sqlite"
)

func newLedgerCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or edit the processed-set ledger",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of processed articles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLedger(cmd.Context(), flags, func(ctx context.Context, _ *config.Config, _ logger.Logger, l *sqlite.Store) error {
					n, err := l.Count(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List processed article ids with their completion times",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLedger(cmd.Context(), flags, func(ctx context.Context, _ *config.Config, _ logger.Logger, l *sqlite.Store) error {
					entries, err := l.Entries(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), entries)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>...",
			Short: "Un-mark articles so the next run tags them again",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLedger(cmd.Context(), flags, func(ctx context.Context, _ *config.Config, _ logger.Logger, l *sqlite.Store) error {
					var missing []string
					for _, id := range args {
						err := l.Remove(ctx, id)
						switch {
						case errors.Is(err, internalerr.ErrNotFound):
							missing = append(missing, id)
						case err != nil:
							return err
						default:
							fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
						}
					}
					if len(missing) > 0 {
						return fmt.Errorf("%d ids not in ledger %v: %w", len(missing), missing, internalerr.ErrNotFound)
					}
					return nil
				})
			},
		},
		newLedgerResetCmd(flags),
	)
	return cmd
}

func newLedgerResetCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every processed article",
		Long: `Delete every ledger entry. The next run tags the whole corpus again
and appends new entries to the output log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset the ledger without --yes: %w", internalerr.ErrInvalidInput)
			}
			return withLedger(cmd.Context(), flags, func(ctx context.Context, _ *config.Config, _ logger.Logger, l *sqlite.Store) error {
				if err := l.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ledger reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

// withLedger loads config and opens only the ledger.
func withLedger(ctx context.Context, flags *globalFlags, fn func(context.Context, *config.Config, logger.Logger, *sqlite.Store) error) error {
	cfg, log, err := flags.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(ctx, cfg, log, l)
}
