package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload the output log without tagging anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app) error {
				if err := a.driver.Upload(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s to %s/%s\n",
					a.cfg.Storage.OutputPath, a.cfg.S3.Bucket, a.cfg.Storage.UploadKey)
				return nil
			})
		},
	}
}
