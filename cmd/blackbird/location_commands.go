package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
	"blackbird/internal/mover"
)

func newLocationCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage storage locations",
	}
	cmd.AddCommand(newLocationListCommand(ctx))
	cmd.AddCommand(newLocationAddCommand(ctx))
	cmd.AddCommand(newLocationRemoveCommand(ctx))
	cmd.AddCommand(newLocationMoveFoldersCommand(ctx))
	cmd.AddCommand(newLocationBalanceCommand(ctx))
	return cmd
}

func newLocationListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list DATASET",
		Short: "List registered locations",
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
			rows := [][]string{}
			for _, name := range ds.Registry.Names() {
				root, _ := ds.Registry.Root(name)
				files := ""
				if ds.Index != nil {
					stats := ds.Index.StatsByLocation[name]
					files = fmt.Sprintf("%d files, %s", stats.Files, humanize.Bytes(uint64(stats.Size)))
				}
				rows = append(rows, []string{name, root, files})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Path", "Indexed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newLocationAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add DATASET NAME PATH",
		Short: "Register a storage location",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			ds, err := dataset.Open(args[0], logger)
			if err != nil {
				return err
			}
			if err := ds.Registry.Add(args[1], args[2]); err != nil {
				return err
			}
			if err := ds.SaveLocations(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added location %q\n", args[1])
			return nil
		},
	}
}

func newLocationRemoveCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove DATASET NAME",
		Short: "Remove a storage location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			ds, err := dataset.Open(args[0], logger)
			if err != nil {
				return err
			}
			if err := ds.RemoveLocation(args[1], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed location %q\n", args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Remove even when the index references the location")
	return cmd
}

func newLocationMoveFoldersCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "move-folders DATASET SOURCE TARGET FOLDER...",
		Short: "Move specific artist or album folders between locations",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, ctx, args[0], mover.Request{
				Source:          args[1],
				Target:          args[2],
				SpecificFolders: args[3:],
				DryRun:          dryRun,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would move")
	return cmd
}

func newLocationBalanceCommand(ctx *commandContext) *cobra.Command {
	var sizeGB float64
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "balance DATASET SOURCE TARGET",
		Short: "Move whole albums until the size budget is reached",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sizeGB <= 0 {
				return fmt.Errorf("--size must be positive, got %v", sizeGB)
			}
			return runMove(cmd, ctx, args[0], mover.Request{
				Source:          args[1],
				Target:          args[2],
				SizeBudgetBytes: int64(sizeGB * (1 << 30)),
				DryRun:          dryRun,
			})
		},
	}

	cmd.Flags().Float64Var(&sizeGB, "size", 0, "Gigabytes to move")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would move")
	return cmd
}

func runMove(cmd *cobra.Command, ctx *commandContext, root string, req mover.Request) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	ds, err := dataset.Open(root, logger)
	if err != nil {
		return err
	}
	if err := ds.Lock(); err != nil {
		return err
	}
	defer func() { _ = ds.Unlock() }()

	stats, err := mover.Move(cmd.Context(), ds, req, mover.Options{Logger: logger})
	if err != nil {
		return err
	}
	if req.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d files (%s) would move\n",
			stats.Planned, humanize.Bytes(uint64(stats.Bytes)))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %d files (%s), %d failed\n",
		stats.Moved, humanize.Bytes(uint64(stats.Bytes)), stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d files failed; state kept at %s", stats.Failed, stats.StatePath)
	}
	return nil
}
