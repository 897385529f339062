package index

import (
	"regexp"
	"time"
)

const (
	// FileName is the index file name under the dataset config directory.
	FileName = "index.db"

	// FormatVersion is written to PRAGMA user_version.
	FormatVersion = 1

	// Version labels the logical index schema.
	Version = "1.0"
)

// CDPattern matches the optional disc directory between album and track.
var CDPattern = regexp.MustCompile(`^CD\d+$`)

// Track is one logical unit: artist/album[/CD]/base-name plus its component
// files.
type Track struct {
	TrackPath string
	Artist    string
	AlbumPath string
	CDNumber  string
	BaseName  string

	// Files maps component name to the symbolic paths holding it. Components
	// with multiple=false keep a single entry.
	Files map[string][]string

	// FileSizes maps symbolic file path to size in bytes.
	FileSizes map[string]int64
}

// FileInfo pairs a symbolic file path with its size.
type FileInfo struct {
	Path string
	Size int64
}

// LocationStats aggregates one location's share of the dataset.
type LocationStats struct {
	Files   int64
	Size    int64
	Tracks  int64
	Albums  int64
	Artists int64
}

// Index is the full catalog.
type Index struct {
	Version     string
	LastUpdated time.Time

	Tracks        map[string]*Track
	TrackByAlbum  map[string][]string
	AlbumByArtist map[string][]string

	TotalSize  int64
	TotalFiles int64

	StatsByLocation map[string]LocationStats
	FileInfoByHash  map[uint64]FileInfo
}

// New returns an empty index.
func New() *Index {
	return &Index{
		Version:         Version,
		LastUpdated:     time.Now().UTC(),
		Tracks:          map[string]*Track{},
		TrackByAlbum:    map[string][]string{},
		AlbumByArtist:   map[string][]string{},
		StatsByLocation: map[string]LocationStats{},
		FileInfoByHash:  map[uint64]FileInfo{},
	}
}
