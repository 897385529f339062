package dataset

import (
	"fmt"
	"sort"

	"blackbird/internal/index"
	"blackbird/internal/schema"
)

// FindFilter selects tracks by component presence and metadata.
type FindFilter struct {
	Has     []string
	Missing []string
	Artist  string
	Album   string
}

// FindTracks returns tracks matching the filter, sorted by track path.
func (ds *Dataset) FindTracks(filter FindFilter) ([]*index.Track, error) {
	idx, err := ds.RequireIndex()
	if err != nil {
		return nil, err
	}
	for _, name := range append(append([]string{}, filter.Has...), filter.Missing...) {
		if !ds.Schema.Has(name) {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnknownComponent, name)
		}
	}

	var out []*index.Track
	for _, track := range idx.Tracks {
		if filter.Artist != "" && track.Artist != filter.Artist {
			continue
		}
		if filter.Album != "" && albumName(track.AlbumPath) != filter.Album {
			continue
		}
		if !hasAll(track, filter.Has) || !missesAll(track, filter.Missing) {
			continue
		}
		out = append(out, track)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackPath < out[j].TrackPath })
	return out, nil
}

// TracksMissing returns tracks whose local view lacks the named component.
func (ds *Dataset) TracksMissing(component string) ([]*index.Track, error) {
	return ds.FindTracks(FindFilter{Missing: []string{component}})
}

func hasAll(track *index.Track, components []string) bool {
	for _, name := range components {
		if len(track.Files[name]) == 0 {
			return false
		}
	}
	return true
}

func missesAll(track *index.Track, components []string) bool {
	for _, name := range components {
		if len(track.Files[name]) > 0 {
			return false
		}
	}
	return true
}

func albumName(albumPath string) string {
	for i := len(albumPath) - 1; i >= 0; i-- {
		if albumPath[i] == '/' {
			return albumPath[i+1:]
		}
	}
	return albumPath
}
