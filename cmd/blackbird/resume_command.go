package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
	"blackbird/internal/location"
	"blackbird/internal/mover"
	"blackbird/internal/opstate"
	"blackbird/internal/syncer"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "resume STATE_FILE",
		Short: "Resume an interrupted sync or move from its state file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			state, err := opstate.Load(statePath)
			if err != nil {
				return err
			}

			// The state file lives in <dataset>/.blackbird/.
			root := filepath.Dir(filepath.Dir(statePath))
			if filepath.Base(filepath.Dir(statePath)) != location.ConfigDirName {
				return fmt.Errorf("state file %s is not inside a %s directory", statePath, location.ConfigDirName)
			}

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

			switch state.OperationType {
			case opstate.OpSync:
				client, err := flags.client(ctx, state.Source)
				if err != nil {
					return err
				}
				opts, cleanup, err := flags.execOptions(ctx)
				if err != nil {
					return err
				}
				defer cleanup()
				stats, err := syncer.Resume(cmd.Context(), ds, client, statePath, opts)
				if err != nil {
					return err
				}
				return reportSync(cmd, client, stats, flags.profile)
			case opstate.OpMove:
				stats, err := mover.ResumeMove(cmd.Context(), ds, statePath, mover.Options{Logger: logger})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %d files, %d failed\n", stats.Moved, stats.Failed)
				if stats.Failed > 0 {
					return fmt.Errorf("%d files failed; state kept at %s", stats.Failed, statePath)
				}
				return nil
			default:
				return fmt.Errorf("unknown operation type %q in %s", state.OperationType, statePath)
			}
		},
	}

	flags.registerPerfFlags(cmd)
	return cmd
}
