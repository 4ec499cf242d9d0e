package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/internal/objstore"
	"github.com/cognicore/matchtag/pkg/matchtag/corpus"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

func newSyncCmd(flags *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the corpus from the object store if it is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Sync.Disabled {
				return fmt.Errorf("sync is disabled in the configuration: %w", internalerr.ErrInvalidConfig)
			}
			store, err := objstore.New(cfg.S3, log)
			if err != nil {
				return err
			}
			s := newSyncer(cfg, store, log)

			var res corpus.SyncResult
			if force {
				res, err = s.Refresh(cmd.Context())
			} else {
				res, err = s.Sync(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download even if the local corpus is fresh")
	return cmd
}
