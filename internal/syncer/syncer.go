package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"blackbird/internal/dataset"
	"blackbird/internal/index"
	"blackbird/internal/location"
	"blackbird/internal/logging"
	"blackbird/internal/opstate"
	"blackbird/internal/schema"
	"blackbird/internal/webdav"
)

// FetchRemote downloads the remote schema and the full remote index.
func FetchRemote(ctx context.Context, client *webdav.Client, scratchDir string) (*schema.Schema, *index.Index, error) {
	schemaData, err := client.FetchSchema(ctx)
	if err != nil {
		return nil, nil, err
	}
	schemaPath := filepath.Join(scratchDir, schema.FileName)
	if err := os.WriteFile(schemaPath, schemaData, 0o644); err != nil {
		return nil, nil, err
	}
	remoteSchema, err := schema.Load(schemaPath)
	if err != nil {
		return nil, nil, err
	}

	indexData, err := client.FetchIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	indexPath := filepath.Join(scratchDir, index.FileName)
	if err := os.WriteFile(indexPath, indexData, 0o644); err != nil {
		return nil, nil, err
	}
	remoteIdx, err := index.Load(indexPath)
	if err != nil {
		return nil, nil, err
	}
	return remoteSchema, remoteIdx, nil
}

// Sync pulls the filtered remote work set into the dataset. On a fully
// successful run the local index is rebuilt and the state file removed.
func Sync(ctx context.Context, ds *dataset.Dataset, client *webdav.Client, filters Filters, targetLocation string, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = ds.Logger()
		opts.Logger = logger
	}

	scratch, err := os.MkdirTemp("", "blackbird-sync-*")
	if err != nil {
		return Stats{}, err
	}
	defer os.RemoveAll(scratch)

	remoteSchema, remoteIdx, err := FetchRemote(ctx, client, scratch)
	if err != nil {
		return Stats{}, err
	}

	plan, err := BuildPlan(ds, remoteIdx, remoteSchema, filters, client.Endpoint(), targetLocation)
	if err != nil {
		return Stats{}, err
	}
	logger.Info("sync plan built",
		logging.Int("files", len(plan.Items)),
		logging.Int("pre_skipped", plan.PreSkipped),
		logging.Int64("bytes", plan.TotalBytes))

	stats, err := Execute(ctx, client, plan, opts)
	if err != nil {
		return stats, err
	}

	if stats.Failed == 0 && !stats.Cancelled {
		if _, err := ds.Reindex(ctx); err != nil {
			return stats, err
		}
	} else {
		logger.Warn("sync incomplete",
			logging.Int("failed", stats.Failed),
			logging.Bool("cancelled", stats.Cancelled),
			logging.String("state_file", stats.StatePath))
	}
	return stats, nil
}

// Resume re-runs the pending and failed entries of an interrupted sync state
// file. A file already present with the right size short-circuits to done.
func Resume(ctx context.Context, ds *dataset.Dataset, client *webdav.Client, statePath string, opts Options) (Stats, error) {
	state, err := opstate.Load(statePath)
	if err != nil {
		return Stats{}, err
	}
	if state.OperationType != opstate.OpSync {
		return Stats{}, fmt.Errorf("%w: %s is a %s operation", opstate.ErrCorrupt, statePath, state.OperationType)
	}

	scratch, err := os.MkdirTemp("", "blackbird-resume-*")
	if err != nil {
		return Stats{}, err
	}
	defer os.RemoveAll(scratch)

	_, remoteIdx, err := FetchRemote(ctx, client, scratch)
	if err != nil {
		return Stats{}, err
	}

	plan := &Plan{
		Source:         state.Source,
		TargetLocation: state.TargetLocation,
		Components:     state.Components,
		StatePath:      statePath,
		State:          state,
	}
	_, done, _ := state.Counts()
	plan.PreSkipped = done

	for _, hash := range state.Remaining() {
		info, ok := remoteIdx.FileInfoFor(hash)
		if !ok {
			return Stats{}, fmt.Errorf("%w: hash %s not present in remote index",
				opstate.ErrCorrupt, index.HashKey(hash))
		}
		item, skip, err := resumeItem(ds, info, state.TargetLocation)
		if err != nil {
			return Stats{}, err
		}
		if skip {
			state.Files[index.HashKey(hash)] = opstate.StatusDone
			plan.PreSkipped++
			continue
		}
		plan.Items = append(plan.Items, item)
		plan.TotalBytes += item.Size
	}

	stats, err := Execute(ctx, client, plan, opts)
	if err != nil {
		return stats, err
	}
	if stats.Failed == 0 && !stats.Cancelled {
		if _, err := ds.Reindex(ctx); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func resumeItem(ds *dataset.Dataset, info index.FileInfo, targetLocation string) (Item, bool, error) {
	_, rel, err := location.Split(info.Path)
	if err != nil {
		return Item{}, false, err
	}
	localSym := targetLocation + "/" + rel
	localAbs, err := ds.Registry.Resolve(localSym)
	if err != nil {
		return Item{}, false, err
	}
	if fi, statErr := os.Stat(localAbs); statErr == nil && fi.Size() == info.Size {
		return Item{}, true, nil
	}
	return Item{
		Hash:      index.PathHash(info.Path),
		RemoteSym: info.Path,
		RemoteRel: rel,
		LocalSym:  localSym,
		LocalAbs:  localAbs,
		Size:      info.Size,
	}, false, nil
}
