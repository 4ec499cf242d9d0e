package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/matchtag/pkg/matchtag/corpus"
)

func newFormatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "format [path]",
		Short: "Normalize corpus records and assign missing ids in place",
		Long: `Join list-valued text, strip markup and assign content ids to every
record that lacks one. path is a corpus file or directory and defaults to
the configured corpus directory. Files that need no change are left
untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, _, err := flags.load()
				if err != nil {
					return err
				}
				path = cfg.Storage.CorpusDir
			}

			n, err := corpus.FormatDir(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "formatted %d records in %s\n", n, path)
			return nil
		},
	}
}
