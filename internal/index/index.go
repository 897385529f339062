package index

import (
	"sort"
	"time"

	"blackbird/internal/location"
)

// AddFile upserts the track identified by trackPath and records one component
// file under it. Derived structures are rebuilt by Finalize.
func (idx *Index) AddFile(trackPath, artist, albumPath, cdNumber, baseName, component, filePath string, size int64) {
	track, ok := idx.Tracks[trackPath]
	if !ok {
		track = &Track{
			TrackPath: trackPath,
			Artist:    artist,
			AlbumPath: albumPath,
			CDNumber:  cdNumber,
			BaseName:  baseName,
			Files:     map[string][]string{},
			FileSizes: map[string]int64{},
		}
		idx.Tracks[trackPath] = track
	}
	if _, seen := track.FileSizes[filePath]; !seen {
		track.Files[component] = append(track.Files[component], filePath)
		sort.Strings(track.Files[component])
	}
	track.FileSizes[filePath] = size
}

// Finalize rebuilds every derived structure and stamps LastUpdated.
func (idx *Index) Finalize() {
	idx.rebuildDerived()
	idx.LastUpdated = time.Now().UTC()
}

// rebuildDerived recomputes album and artist maps, totals, per-location
// stats, and the hash lookup (populated last).
func (idx *Index) rebuildDerived() {
	idx.TrackByAlbum = map[string][]string{}
	idx.AlbumByArtist = map[string][]string{}
	idx.StatsByLocation = map[string]LocationStats{}
	idx.FileInfoByHash = map[uint64]FileInfo{}
	idx.TotalSize = 0
	idx.TotalFiles = 0

	type locationSets struct {
		tracks  map[string]struct{}
		albums  map[string]struct{}
		artists map[string]struct{}
	}
	perLocation := map[string]*locationSets{}
	albumSets := map[string]map[string]struct{}{}
	artistSets := map[string]map[string]struct{}{}

	for trackPath, track := range idx.Tracks {
		if albumSets[track.AlbumPath] == nil {
			albumSets[track.AlbumPath] = map[string]struct{}{}
		}
		albumSets[track.AlbumPath][trackPath] = struct{}{}
		if artistSets[track.Artist] == nil {
			artistSets[track.Artist] = map[string]struct{}{}
		}
		artistSets[track.Artist][track.AlbumPath] = struct{}{}

		for filePath, size := range track.FileSizes {
			idx.TotalSize += size
			idx.TotalFiles++

			loc, err := location.LocationOf(filePath)
			if err != nil {
				continue
			}
			sets := perLocation[loc]
			if sets == nil {
				sets = &locationSets{
					tracks:  map[string]struct{}{},
					albums:  map[string]struct{}{},
					artists: map[string]struct{}{},
				}
				perLocation[loc] = sets
			}
			stats := idx.StatsByLocation[loc]
			stats.Files++
			stats.Size += size
			idx.StatsByLocation[loc] = stats
			sets.tracks[trackPath] = struct{}{}
			sets.albums[track.AlbumPath] = struct{}{}
			sets.artists[track.Artist] = struct{}{}
		}
	}

	for albumPath, tracks := range albumSets {
		idx.TrackByAlbum[albumPath] = sortedKeys(tracks)
	}
	for artist, albums := range artistSets {
		idx.AlbumByArtist[artist] = sortedKeys(albums)
	}
	for loc, sets := range perLocation {
		stats := idx.StatsByLocation[loc]
		stats.Tracks = int64(len(sets.tracks))
		stats.Albums = int64(len(sets.albums))
		stats.Artists = int64(len(sets.artists))
		idx.StatsByLocation[loc] = stats
	}

	for _, track := range idx.Tracks {
		for filePath, size := range track.FileSizes {
			idx.FileInfoByHash[PathHash(filePath)] = FileInfo{Path: filePath, Size: size}
		}
	}
}

// FileInfoFor looks up a file by its symbolic-path hash.
func (idx *Index) FileInfoFor(hash uint64) (FileInfo, bool) {
	info, ok := idx.FileInfoByHash[hash]
	return info, ok
}

// Artists returns every artist name, sorted.
func (idx *Index) Artists() []string {
	return sortedKeys(idx.AlbumByArtist)
}

// HasLocationFiles reports whether any indexed file lives in the named
// location.
func (idx *Index) HasLocationFiles(name string) bool {
	stats, ok := idx.StatsByLocation[name]
	return ok && stats.Files > 0
}

// TrackFiles returns the component -> symbolic paths mapping for a track, or
// nil when the track is unknown.
func (idx *Index) TrackFiles(trackPath string) map[string][]string {
	track, ok := idx.Tracks[trackPath]
	if !ok {
		return nil
	}
	return track.Files
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
