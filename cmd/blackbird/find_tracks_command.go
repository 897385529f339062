package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
)

func newFindTracksCommand(ctx *commandContext) *cobra.Command {
	var has, missing []string
	var artist, album string

	cmd := &cobra.Command{
		Use:   "find-tracks DATASET",
		Short: "Find tracks by component presence and metadata",
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
			tracks, err := ds.FindTracks(dataset.FindFilter{
				Has:     has,
				Missing: missing,
				Artist:  artist,
				Album:   album,
			})
			if err != nil {
				return err
			}
			for _, track := range tracks {
				components := make([]string, 0, len(track.Files))
				for name := range track.Files {
					components = append(components, name)
				}
				sort.Strings(components)
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %v\n", track.TrackPath, components)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tracks\n", len(tracks))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&has, "has", nil, "Components the track must have")
	cmd.Flags().StringSliceVar(&missing, "missing", nil, "Components the track must lack")
	cmd.Flags().StringVar(&artist, "artist", "", "Restrict to one artist")
	cmd.Flags().StringVar(&album, "album", "", "Restrict to one album name")
	return cmd
}
