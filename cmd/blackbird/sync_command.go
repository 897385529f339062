package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"blackbird/internal/dataset"
	"blackbird/internal/syncer"
	"blackbird/internal/webdav"
)

// syncFlags groups the filter and performance flags shared by clone, sync,
// and resume.
type syncFlags struct {
	components []string
	artists    []string
	albums     []string
	missing    string
	proportion float64
	offset     float64

	parallel    int
	connections int
	timeout     int
	http2       bool
	profile     bool
	username    string
	password    string

	targetLocation string
	forceReindex   bool
}

func (f *syncFlags) registerFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.components, "components", nil, "Components to pull (default all)")
	cmd.Flags().StringSliceVar(&f.artists, "artists", nil, "Artist name globs")
	cmd.Flags().StringSliceVar(&f.albums, "albums", nil, "Album name globs")
	cmd.Flags().StringVar(&f.missing, "missing", "", "Only tracks whose local view lacks this component")
	cmd.Flags().Float64Var(&f.proportion, "proportion", 0, "Slice of the sorted artist list to pull (0,1]")
	cmd.Flags().Float64Var(&f.offset, "offset", 0, "Offset of the artist slice [0,1)")
	cmd.Flags().StringVar(&f.targetLocation, "target-location", "", "Location to download into (default Main)")
}

func (f *syncFlags) registerPerfFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "Download worker count")
	cmd.Flags().IntVar(&f.connections, "connections", 0, "Transport connection pool size")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Per-request timeout in seconds")
	cmd.Flags().BoolVar(&f.http2, "http2", false, "Use HTTP/2")
	cmd.Flags().BoolVar(&f.profile, "profile", false, "Record transport timings")
	cmd.Flags().StringVar(&f.username, "username", "", "Basic auth user")
	cmd.Flags().StringVar(&f.password, "password", "", "Basic auth password")
}

func (f *syncFlags) filters(cmd *cobra.Command) (syncer.Filters, error) {
	if cmd.Flags().Changed("proportion") && f.proportion <= 0 {
		return syncer.Filters{}, fmt.Errorf("--proportion must be in (0,1], got %v", f.proportion)
	}
	return syncer.Filters{
		Components:       f.components,
		Artists:          f.artists,
		Albums:           f.albums,
		MissingComponent: f.missing,
		Proportion:       f.proportion,
		Offset:           f.offset,
	}, nil
}

func (f *syncFlags) client(ctx *commandContext, url string) (*webdav.Client, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	connections := f.connections
	if connections == 0 {
		connections = cfg.ParallelConnections
	}
	timeout := f.timeout
	if timeout == 0 {
		timeout = cfg.TimeoutSeconds
	}
	return webdav.New(webdav.Config{
		URL:                 url,
		Username:            f.username,
		Password:            f.password,
		ParallelConnections: connections,
		UseHTTP2:            f.http2 || cfg.UseHTTP2,
		Timeout:             time.Duration(timeout) * time.Second,
		Profile:             f.profile,
	})
}

func (f *syncFlags) execOptions(ctx *commandContext) (syncer.Options, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return syncer.Options{}, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return syncer.Options{}, nil, err
	}

	parallel := f.parallel
	if parallel == 0 {
		parallel = cfg.Parallel
	}
	opts := syncer.Options{Parallel: parallel, Logger: logger}
	cleanup := func() {}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		var bar *progressbar.ProgressBar
		opts.OnFile = func(p syncer.Progress) {
			if bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetDescription("syncing"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			_ = bar.Set(p.Done + p.Failed)
		}
		cleanup = func() {
			if bar != nil {
				_ = bar.Finish()
			}
		}
	}
	return opts, cleanup, nil
}

func reportSync(cmd *cobra.Command, client *webdav.Client, stats syncer.Stats, profile bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Done: %d, pre-skipped: %d, failed: %d (%s)\n",
		stats.Done, stats.PreSkipped, stats.Failed, humanize.Bytes(uint64(stats.Bytes)))

	if profile && client.Profile() != nil {
		snapshot := client.Profile().Snapshot()
		for _, op := range client.Profile().Ops() {
			timing := snapshot[op]
			fmt.Fprintf(out, "  %-14s %5d calls  %s\n", op, timing.Count, timing.Total)
		}
	}

	if stats.Failed > 0 || stats.Cancelled {
		remaining := "interrupted"
		if stats.Failed > 0 {
			remaining = fmt.Sprintf("%d files failed", stats.Failed)
		}
		return fmt.Errorf("%s; resume with: blackbird resume %s", remaining, stats.StatePath)
	}
	return nil
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync URL DATASET",
		Short: "Pull the filtered remote work set into an existing dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, ctx, flags, args[0], args[1], false)
		},
	}

	flags.registerFilterFlags(cmd)
	flags.registerPerfFlags(cmd)
	cmd.Flags().BoolVar(&flags.forceReindex, "force-reindex", false, "Rebuild the local index before planning")
	return cmd
}

func newCloneCommand(ctx *commandContext) *cobra.Command {
	flags := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "clone URL DEST",
		Short: "Clone a remote dataset into a new directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, ctx, flags, args[0], args[1], true)
		},
	}

	flags.registerFilterFlags(cmd)
	flags.registerPerfFlags(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, ctx *commandContext, flags *syncFlags, url, root string, create bool) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	var ds *dataset.Dataset
	if create {
		ds, err = dataset.Create(root, logger)
	} else {
		ds, err = dataset.Open(root, logger)
	}
	if err != nil {
		return err
	}

	filters, err := flags.filters(cmd)
	if err != nil {
		return err
	}
	client, err := flags.client(ctx, url)
	if err != nil {
		return err
	}
	opts, cleanup, err := flags.execOptions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ds.Lock(); err != nil {
		return err
	}
	defer func() { _ = ds.Unlock() }()

	if flags.forceReindex {
		if _, err := ds.Reindex(cmd.Context()); err != nil {
			return err
		}
	}

	stats, err := syncer.Sync(cmd.Context(), ds, client, filters, flags.targetLocation, opts)
	if err != nil {
		return err
	}
	return reportSync(cmd, client, stats, flags.profile)
}
