package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
)

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex DATASET",
		Short: "Rebuild the dataset index from the filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			ds, err := dataset.Open(args[0], logger)
			if err != nil {
				return err
			}
			idx, err := ds.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%s) across %d tracks\n",
				idx.TotalFiles, humanize.Bytes(uint64(idx.TotalSize)), len(idx.Tracks))
			return nil
		},
	}
}
