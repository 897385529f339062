package syncer

import (
	"fmt"
	"os"
	"sort"

	"blackbird/internal/dataset"
	"blackbird/internal/index"
	"blackbird/internal/location"
	"blackbird/internal/opstate"
	"blackbird/internal/schema"
)

// Item is one file the executor must transfer.
type Item struct {
	Hash      uint64
	RemoteSym string // symbolic path in the remote index
	RemoteRel string // remote path with the location segment stripped
	LocalSym  string // symbolic path under the target location
	LocalAbs  string
	Size      int64
}

// Plan is the executed work set of one sync.
type Plan struct {
	Items      []Item
	PreSkipped int
	TotalBytes int64

	Source         string
	TargetLocation string
	Components     []string

	StatePath string
	State     *opstate.State
}

// BuildPlan merges the requested remote schema components into the local
// schema, filters the remote index, pre-skips files already present with the
// right size, and creates the operation state for the remainder.
func BuildPlan(ds *dataset.Dataset, remoteIdx *index.Index, remoteSchema *schema.Schema, filters Filters, source, targetLocation string) (*Plan, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if targetLocation == "" {
		targetLocation = location.DefaultName
	}
	if !ds.Registry.Has(targetLocation) {
		return nil, fmt.Errorf("%w: %s", location.ErrUnknownLocation, targetLocation)
	}
	if filters.MissingComponent != "" && !remoteSchema.Has(filters.MissingComponent) {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownComponent, filters.MissingComponent)
	}

	// Only components actually requested for download enter the local schema.
	if err := schema.Merge(ds.Schema, remoteSchema, filters.Components); err != nil {
		return nil, err
	}
	if err := ds.SaveSchema(); err != nil {
		return nil, err
	}

	components := filters.Components
	if len(components) == 0 {
		components = remoteSchema.Names()
	}
	componentSet := make(map[string]struct{}, len(components))
	for _, name := range components {
		componentSet[name] = struct{}{}
	}

	artists := filters.sliceArtists(remoteIdx.Artists())

	plan := &Plan{
		Source:         source,
		TargetLocation: targetLocation,
		Components:     components,
	}

	for _, artist := range artists {
		if !matchAnyGlob(filters.Artists, artist) {
			continue
		}
		for _, albumPath := range remoteIdx.AlbumByArtist[artist] {
			if !matchAnyGlob(filters.Albums, albumName(albumPath)) {
				continue
			}
			for _, trackPath := range remoteIdx.TrackByAlbum[albumPath] {
				track := remoteIdx.Tracks[trackPath]
				if track == nil {
					continue
				}
				if filters.MissingComponent != "" && localHasComponent(ds, track, targetLocation, filters.MissingComponent) {
					continue
				}
				for component, files := range track.Files {
					if _, wanted := componentSet[component]; !wanted {
						continue
					}
					for _, remoteSym := range files {
						item, skip, err := planItem(ds, remoteSym, track.FileSizes[remoteSym], targetLocation)
						if err != nil {
							return nil, err
						}
						if skip {
							plan.PreSkipped++
							continue
						}
						plan.Items = append(plan.Items, item)
						plan.TotalBytes += item.Size
					}
				}
			}
		}
	}

	sort.Slice(plan.Items, func(i, j int) bool { return plan.Items[i].RemoteSym < plan.Items[j].RemoteSym })

	if len(plan.Items) > 0 {
		hashes := make([]uint64, len(plan.Items))
		for i, item := range plan.Items {
			hashes[i] = item.Hash
		}
		statePath, state, err := opstate.Create(ds.ConfigDir(), opstate.OpSync, source, targetLocation, components, hashes)
		if err != nil {
			return nil, err
		}
		plan.StatePath = statePath
		plan.State = state
	}
	return plan, nil
}

func planItem(ds *dataset.Dataset, remoteSym string, size int64, targetLocation string) (Item, bool, error) {
	_, rel, err := location.Split(remoteSym)
	if err != nil {
		return Item{}, false, err
	}
	localSym := targetLocation + "/" + rel
	localAbs, err := ds.Registry.Resolve(localSym)
	if err != nil {
		return Item{}, false, err
	}
	if info, statErr := os.Stat(localAbs); statErr == nil && info.Size() == size {
		return Item{}, true, nil
	}
	return Item{
		Hash:      index.PathHash(remoteSym),
		RemoteSym: remoteSym,
		RemoteRel: rel,
		LocalSym:  localSym,
		LocalAbs:  localAbs,
		Size:      size,
	}, false, nil
}

// localHasComponent checks the track's counterpart in the local index.
func localHasComponent(ds *dataset.Dataset, remote *index.Track, targetLocation, component string) bool {
	if ds.Index == nil {
		return false
	}
	localTrackPath, err := location.Rebase(remote.TrackPath, targetLocation)
	if err != nil {
		return false
	}
	local, ok := ds.Index.Tracks[localTrackPath]
	return ok && len(local.Files[component]) > 0
}

func albumName(albumPath string) string {
	for i := len(albumPath) - 1; i >= 0; i-- {
		if albumPath[i] == '/' {
			return albumPath[i+1:]
		}
	}
	return albumPath
}
