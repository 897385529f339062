package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// ErrBadFormat is returned when an index file has an unexpected layout or
// version.
var ErrBadFormat = errors.New("unsupported index format")

const storeSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE tracks (
	track_path TEXT PRIMARY KEY,
	artist     TEXT NOT NULL,
	album_path TEXT NOT NULL,
	cd_number  TEXT NOT NULL DEFAULT '',
	base_name  TEXT NOT NULL
);
CREATE TABLE track_files (
	track_path TEXT NOT NULL REFERENCES tracks(track_path),
	component  TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	size       INTEGER NOT NULL,
	PRIMARY KEY (track_path, file_path)
);
CREATE INDEX track_files_by_track ON track_files(track_path);
`

// Save writes the index as a SQLite database, atomically replacing any
// previous file at path.
func (idx *Index) Save(path string) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return fmt.Errorf("create index db: %w", err)
	}
	if err := writeStore(db, idx); err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := db.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeStore(db *sql.DB, idx *Index) error {
	if _, err := db.Exec("PRAGMA journal_mode=OFF"); err != nil {
		return err
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", FormatVersion)); err != nil {
		return err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		return fmt.Errorf("create index schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	metaStmt, err := tx.Prepare("INSERT INTO meta(key, value) VALUES(?, ?)")
	if err != nil {
		return err
	}
	defer metaStmt.Close()
	meta := map[string]string{
		"version":      idx.Version,
		"last_updated": idx.LastUpdated.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		if _, err := metaStmt.Exec(key, value); err != nil {
			return err
		}
	}

	trackStmt, err := tx.Prepare(
		"INSERT INTO tracks(track_path, artist, album_path, cd_number, base_name) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer trackStmt.Close()
	fileStmt, err := tx.Prepare(
		"INSERT INTO track_files(track_path, component, file_path, size) VALUES(?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer fileStmt.Close()

	for trackPath, track := range idx.Tracks {
		if _, err := trackStmt.Exec(trackPath, track.Artist, track.AlbumPath, track.CDNumber, track.BaseName); err != nil {
			return err
		}
		for component, files := range track.Files {
			for _, filePath := range files {
				if _, err := fileStmt.Exec(trackPath, component, filePath, track.FileSizes[filePath]); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit()
}

// Load reads an index database fully into memory.
func Load(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	defer db.Close()

	var formatVersion int
	if err := db.QueryRow("PRAGMA user_version").Scan(&formatVersion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if formatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: version %d (want %d)", ErrBadFormat, formatVersion, FormatVersion)
	}

	idx := New()

	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	meta := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			_ = rows.Close()
			return nil, err
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()
	if v, ok := meta["version"]; ok {
		idx.Version = v
	}
	lastUpdated := time.Now().UTC()
	if raw, ok := meta["last_updated"]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			lastUpdated = parsed
		}
	}

	trackRows, err := db.Query("SELECT track_path, artist, album_path, cd_number, base_name FROM tracks")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	for trackRows.Next() {
		var track Track
		if err := trackRows.Scan(&track.TrackPath, &track.Artist, &track.AlbumPath, &track.CDNumber, &track.BaseName); err != nil {
			_ = trackRows.Close()
			return nil, err
		}
		track.Files = map[string][]string{}
		track.FileSizes = map[string]int64{}
		idx.Tracks[track.TrackPath] = &track
	}
	if err := trackRows.Err(); err != nil {
		return nil, err
	}
	_ = trackRows.Close()

	fileRows, err := db.Query("SELECT track_path, component, file_path, size FROM track_files")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	for fileRows.Next() {
		var trackPath, component, filePath string
		var size int64
		if err := fileRows.Scan(&trackPath, &component, &filePath, &size); err != nil {
			_ = fileRows.Close()
			return nil, err
		}
		track, ok := idx.Tracks[trackPath]
		if !ok {
			_ = fileRows.Close()
			return nil, fmt.Errorf("%w: file row references unknown track %s", ErrBadFormat, trackPath)
		}
		track.Files[component] = append(track.Files[component], filePath)
		track.FileSizes[filePath] = size
	}
	if err := fileRows.Err(); err != nil {
		return nil, err
	}
	_ = fileRows.Close()

	for _, track := range idx.Tracks {
		for _, files := range track.Files {
			sort.Strings(files)
		}
	}

	idx.rebuildDerived()
	idx.LastUpdated = lastUpdated
	return idx, nil
}
