package index

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const fuzzyMaxDistance = 3

// SearchByArtist returns artist names containing the query. When fuzzy is set
// and no exact or substring match exists, artists within a small edit
// distance are returned instead, closest first.
func (idx *Index) SearchByArtist(query string, caseSensitive, fuzzy bool) []string {
	var matches []string
	for artist := range idx.AlbumByArtist {
		if containsFold(artist, query, caseSensitive) {
			matches = append(matches, artist)
		}
	}
	sort.Strings(matches)
	if len(matches) > 0 || !fuzzy {
		return matches
	}

	type ranked struct {
		artist   string
		distance int
	}
	var candidates []ranked
	for artist := range idx.AlbumByArtist {
		a, q := artist, query
		if !caseSensitive {
			a, q = strings.ToLower(a), strings.ToLower(q)
		}
		if d := levenshtein.ComputeDistance(a, q); d <= fuzzyMaxDistance {
			candidates = append(candidates, ranked{artist, d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].artist < candidates[j].artist
	})
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.artist)
	}
	return out
}

// SearchByAlbum returns symbolic album paths whose album name contains the
// query, optionally restricted to one artist.
func (idx *Index) SearchByAlbum(query, artist string) []string {
	var pool []string
	if artist != "" {
		pool = idx.AlbumByArtist[artist]
	} else {
		for _, albums := range idx.AlbumByArtist {
			pool = append(pool, albums...)
		}
	}

	var matches []string
	for _, albumPath := range pool {
		name := albumPath[strings.LastIndexByte(albumPath, '/')+1:]
		if containsFold(name, query, false) {
			matches = append(matches, albumPath)
		}
	}
	sort.Strings(matches)
	return matches
}

// SearchByTrack returns tracks whose base name contains the query, optionally
// restricted by artist and album path.
func (idx *Index) SearchByTrack(query, artist, album string) []*Track {
	var matches []*Track
	for _, track := range idx.Tracks {
		if artist != "" && track.Artist != artist {
			continue
		}
		if album != "" && track.AlbumPath != album {
			continue
		}
		if containsFold(track.BaseName, query, false) {
			matches = append(matches, track)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].TrackPath < matches[j].TrackPath })
	return matches
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
