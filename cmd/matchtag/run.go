package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Tag every article not yet in the ledger",
		Long: `Refresh the corpus if it is stale, tag every unprocessed article,
append the results to the output log and upload it. The run summary is
printed as JSON even when the run aborts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				res, err := a.driver.Run(ctx)
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
					err = perr
				}
				return err
			})
		},
	}
}
