package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"blackbird/internal/dataset"
	"blackbird/internal/fileutil"
	"blackbird/internal/index"
	"blackbird/internal/location"
	"blackbird/internal/logging"
	"blackbird/internal/opstate"
)

// ErrBadRequest is returned for unusable move parameters.
var ErrBadRequest = errors.New("invalid move request")

// Request selects what to move.
type Request struct {
	Source string
	Target string

	// SpecificFolders lists artist or album folders, either relative to the
	// source location or as full symbolic paths.
	SpecificFolders []string

	// SizeBudgetBytes moves whole albums in lexicographic order, stopping
	// before the first album that would push the total past the budget; the
	// first album is always moved. Zero means no budget (everything selected).
	SizeBudgetBytes int64

	DryRun bool
}

// Options tunes execution.
type Options struct {
	Logger *slog.Logger
	OnFile func(moved, failed, total int, path string)
}

// Stats summarizes a move.
type Stats struct {
	Moved     int
	Failed    int
	Planned   int
	Bytes     int64
	StatePath string
}

type moveItem struct {
	hash      uint64
	sourceSym string
	size      int64
}

// Move relocates the selected files from Source to Target and reindexes on
// full success.
func Move(ctx context.Context, ds *dataset.Dataset, req Request, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = ds.Logger()
	}

	idx, err := ds.RequireIndex()
	if err != nil {
		return Stats{}, err
	}
	if err := validateRequest(ds, req); err != nil {
		return Stats{}, err
	}

	items, err := selectFiles(idx, req)
	if err != nil {
		return Stats{}, err
	}
	if len(items) == 0 {
		return Stats{}, nil
	}

	var total int64
	for _, item := range items {
		total += item.size
	}
	if err := checkFreeSpace(ds, req.Target, total); err != nil {
		return Stats{}, err
	}

	if req.DryRun {
		for _, item := range items {
			target, _ := location.Rebase(item.sourceSym, req.Target)
			logger.Info("dry run: would move",
				logging.String("from", item.sourceSym),
				logging.String("to", target),
				logging.Int64("bytes", item.size))
		}
		return Stats{Planned: len(items), Bytes: total}, nil
	}

	hashes := make([]uint64, len(items))
	for i, item := range items {
		hashes[i] = item.hash
	}
	statePath, state, err := opstate.Create(ds.ConfigDir(), opstate.OpMove, req.Source, req.Target, nil, hashes)
	if err != nil {
		return Stats{}, err
	}

	return execute(ctx, ds, items, statePath, state, logger, opts)
}

// ResumeMove retries the pending and failed entries of a move state file.
func ResumeMove(ctx context.Context, ds *dataset.Dataset, statePath string, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = ds.Logger()
	}
	state, err := opstate.Load(statePath)
	if err != nil {
		return Stats{}, err
	}
	if state.OperationType != opstate.OpMove {
		return Stats{}, fmt.Errorf("%w: %s is a %s operation", opstate.ErrCorrupt, statePath, state.OperationType)
	}
	idx, err := ds.RequireIndex()
	if err != nil {
		return Stats{}, err
	}

	var items []moveItem
	for _, hash := range state.Remaining() {
		info, ok := idx.FileInfoFor(hash)
		if !ok {
			state.Files[index.HashKey(hash)] = opstate.FailedStatus("hash not found in current index")
			continue
		}
		items = append(items, moveItem{hash: hash, sourceSym: info.Path, size: info.Size})
	}
	return execute(ctx, ds, items, statePath, state, logger, opts)
}

func execute(ctx context.Context, ds *dataset.Dataset, items []moveItem, statePath string, state *opstate.State, logger *slog.Logger, opts Options) (Stats, error) {
	stats := Stats{Planned: len(items), StatePath: statePath}
	target := state.TargetLocation
	writer := opstate.NewWriter(statePath, state, logger)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		size, err := moveOne(ds, item, target)
		if err != nil {
			stats.Failed++
			writer.Set(item.hash, opstate.FailedStatus(err.Error()))
			logger.Warn("move failed", logging.String("path", item.sourceSym), logging.Error(err))
		} else {
			stats.Moved++
			stats.Bytes += size
			writer.Set(item.hash, opstate.StatusDone)
		}
		if opts.OnFile != nil {
			opts.OnFile(stats.Moved, stats.Failed, stats.Planned, item.sourceSym)
		}
	}
	if err := writer.Close(); err != nil {
		return stats, err
	}

	final, err := opstate.Load(statePath)
	if err != nil {
		return stats, err
	}
	pending, _, failed := final.Counts()
	if pending == 0 && failed == 0 {
		if err := opstate.Delete(statePath); err != nil {
			return stats, err
		}
		stats.StatePath = ""
		if _, err := ds.Reindex(ctx); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// moveOne relocates a single file, tolerating a crashed earlier attempt that
// already moved it.
func moveOne(ds *dataset.Dataset, item moveItem, target string) (int64, error) {
	sourceAbs, err := ds.Registry.Resolve(item.sourceSym)
	if err != nil {
		return 0, err
	}
	targetSym, err := location.Rebase(item.sourceSym, target)
	if err != nil {
		return 0, err
	}
	targetAbs, err := ds.Registry.Resolve(targetSym)
	if err != nil {
		return 0, err
	}

	if _, err := os.Stat(sourceAbs); os.IsNotExist(err) {
		if info, statErr := os.Stat(targetAbs); statErr == nil && info.Size() == item.size {
			// A previous attempt moved the file before the state flush landed.
			return item.size, nil
		}
		return 0, fmt.Errorf("source missing: %s", sourceAbs)
	}

	if err := fileutil.EnsureDir(filepath.Dir(targetAbs)); err != nil {
		return 0, err
	}
	if err := fileutil.MoveFile(sourceAbs, targetAbs); err != nil {
		return 0, err
	}
	return item.size, nil
}

func validateRequest(ds *dataset.Dataset, req Request) error {
	if !ds.Registry.Has(req.Source) {
		return fmt.Errorf("%w: %s", location.ErrUnknownLocation, req.Source)
	}
	if !ds.Registry.Has(req.Target) {
		return fmt.Errorf("%w: %s", location.ErrUnknownLocation, req.Target)
	}
	if req.Source == req.Target {
		return fmt.Errorf("%w: source and target are both %s", ErrBadRequest, req.Source)
	}
	if req.SizeBudgetBytes < 0 {
		return fmt.Errorf("%w: negative size budget", ErrBadRequest)
	}
	return nil
}

// selectFiles picks the files to move: by folder list, or whole albums up to
// the size budget, or the whole source location.
func selectFiles(idx *index.Index, req Request) ([]moveItem, error) {
	folders := normalizeFolders(req)

	type album struct {
		path  string
		items []moveItem
		size  int64
	}
	byAlbum := map[string]*album{}

	for _, track := range idx.Tracks {
		for filePath, size := range track.FileSizes {
			loc, err := location.LocationOf(filePath)
			if err != nil || loc != req.Source {
				continue
			}
			if len(folders) > 0 && !inFolders(filePath, folders) {
				continue
			}
			a := byAlbum[track.AlbumPath]
			if a == nil {
				a = &album{path: track.AlbumPath}
				byAlbum[track.AlbumPath] = a
			}
			a.items = append(a.items, moveItem{hash: index.PathHash(filePath), sourceSym: filePath, size: size})
			a.size += size
		}
	}

	albums := make([]*album, 0, len(byAlbum))
	for _, a := range byAlbum {
		albums = append(albums, a)
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].path < albums[j].path })

	var out []moveItem
	var moved int64
	for _, a := range albums {
		if req.SizeBudgetBytes > 0 && len(out) > 0 && moved+a.size > req.SizeBudgetBytes {
			break
		}
		out = append(out, a.items...)
		moved += a.size
		if req.SizeBudgetBytes > 0 && moved >= req.SizeBudgetBytes {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].sourceSym < out[j].sourceSym })
	return out, nil
}

// normalizeFolders strips surrounding slashes and a leading source-location
// segment from each folder selector.
func normalizeFolders(req Request) []string {
	var out []string
	for _, folder := range req.SpecificFolders {
		trimmed := strings.Trim(folder, "/")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, req.Source+"/") {
			trimmed = strings.TrimPrefix(trimmed, req.Source+"/")
		}
		out = append(out, trimmed)
	}
	return out
}

func inFolders(symbolic string, folders []string) bool {
	_, rel, err := location.Split(symbolic)
	if err != nil {
		return false
	}
	for _, folder := range folders {
		if rel == folder || strings.HasPrefix(rel, folder+"/") {
			return true
		}
	}
	return false
}
