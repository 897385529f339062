package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
	"blackbird/internal/index"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var missing string

	cmd := &cobra.Command{
		Use:   "stats DATASET",
		Short: "Show dataset statistics, optionally tracks missing a component",
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
			idx, err := ds.RequireIndex()
			if err != nil {
				return err
			}

			if missing != "" {
				tracks, err := ds.TracksMissing(missing)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d tracks missing %q\n", len(tracks), missing)
				for _, track := range tracks {
					fmt.Fprintln(cmd.OutOrStdout(), track.TrackPath)
				}
				return nil
			}

			rows := make([][]string, 0, len(idx.StatsByLocation))
			for _, name := range sortedLocationNames(idx.StatsByLocation) {
				stats := idx.StatsByLocation[name]
				rows = append(rows, []string{
					name,
					strconv.FormatInt(stats.Artists, 10),
					strconv.FormatInt(stats.Albums, 10),
					strconv.FormatInt(stats.Tracks, 10),
					strconv.FormatInt(stats.Files, 10),
					humanize.Bytes(uint64(stats.Size)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Location", "Artists", "Albums", "Tracks", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d files, %s, updated %s\n",
				idx.TotalFiles, humanize.Bytes(uint64(idx.TotalSize)), idx.LastUpdated.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&missing, "missing", "", "List tracks missing the named component")
	return cmd
}

func sortedLocationNames(stats map[string]index.LocationStats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
