package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
	"blackbird/internal/schema"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and edit the component schema",
	}
	cmd.AddCommand(newSchemaShowCommand(ctx))
	cmd.AddCommand(newSchemaDiscoverCommand(ctx))
	cmd.AddCommand(newSchemaAddCommand(ctx))
	return cmd
}

func newSchemaShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show DATASET",
		Short: "Print the dataset schema",
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
			rows := make([][]string, 0, len(ds.Schema.Components))
			for _, name := range ds.Schema.Names() {
				def := ds.Schema.Components[name]
				rows = append(rows, []string{name, def.Pattern, strconv.FormatBool(def.Multiple), def.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Component", "Pattern", "Multiple", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newSchemaDiscoverCommand(ctx *commandContext) *cobra.Command {
	var sample []string

	cmd := &cobra.Command{
		Use:   "discover DATASET",
		Short: "Derive a schema from the files already on disk",
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
			result, err := schema.Discover(ds.Root(), sample)
			if err != nil {
				return err
			}
			for _, name := range result.Schema.Names() {
				def := result.Schema.Components[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (multiple=%v, %d files)\n",
					name, def.Pattern, def.Multiple, result.FileCounts[name])
			}
			ds.Schema = result.Schema
			if err := ds.SaveSchema(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", ds.SchemaPath())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sample, "artists", nil, "Sample only these artist directories")
	return cmd
}

func newSchemaAddCommand(ctx *commandContext) *cobra.Command {
	var multiple bool
	var description string

	cmd := &cobra.Command{
		Use:   "add DATASET NAME PATTERN",
		Short: "Add a component definition",
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
			def := schema.ComponentDef{Pattern: args[2], Multiple: multiple, Description: description}
			if err := ds.Schema.AddComponent(args[1], def); err != nil {
				return err
			}
			if err := ds.SaveSchema(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added component %q (%s)\n", args[1], args[2])
			return nil
		},
	}

	cmd.Flags().BoolVar(&multiple, "multiple", false, "Allow multiple files per track")
	cmd.Flags().StringVar(&description, "description", "", "Informational description")
	return cmd
}
