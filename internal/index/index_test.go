package index

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func buildTestIndex() *Index {
	idx := New()
	idx.AddFile("Main/Artist_A/Album1/01.One", "Artist_A", "Main/Artist_A/Album1", "", "01.One",
		"instrumental", "Main/Artist_A/Album1/01.One_instrumental.mp3", 4)
	idx.AddFile("Main/Artist_A/Album1/01.One", "Artist_A", "Main/Artist_A/Album1", "", "01.One",
		"mir", "Main/Artist_A/Album1/01.One.mir.json", 2)
	idx.AddFile("Main/Artist_B/Album/CD1/02.Two", "Artist_B", "Main/Artist_B/Album", "CD1", "02.Two",
		"instrumental", "Main/Artist_B/Album/CD1/02.Two_instrumental.mp3", 4)
	idx.AddFile("SSD/Artist_C/Album/03.Three", "Artist_C", "SSD/Artist_C/Album", "", "03.Three",
		"instrumental", "SSD/Artist_C/Album/03.Three_instrumental.mp3", 4)
	idx.Finalize()
	return idx
}

func TestFinalizeAggregates(t *testing.T) {
	idx := buildTestIndex()

	if idx.TotalFiles != 4 {
		t.Fatalf("TotalFiles = %d, want 4", idx.TotalFiles)
	}
	if idx.TotalSize != 14 {
		t.Fatalf("TotalSize = %d, want 14", idx.TotalSize)
	}

	var files int64
	var size int64
	for _, stats := range idx.StatsByLocation {
		files += stats.Files
		size += stats.Size
	}
	if files != idx.TotalFiles || size != idx.TotalSize {
		t.Fatalf("location stats do not aggregate: files=%d size=%d", files, size)
	}

	main := idx.StatsByLocation["Main"]
	if main.Files != 3 || main.Tracks != 2 || main.Albums != 2 || main.Artists != 2 {
		t.Fatalf("Main stats = %+v", main)
	}
	ssd := idx.StatsByLocation["SSD"]
	if ssd.Files != 1 || ssd.Tracks != 1 {
		t.Fatalf("SSD stats = %+v", ssd)
	}
}

func TestHashLookupAgreesWithTracks(t *testing.T) {
	idx := buildTestIndex()
	for _, track := range idx.Tracks {
		for filePath, size := range track.FileSizes {
			info, ok := idx.FileInfoFor(PathHash(filePath))
			if !ok {
				t.Fatalf("no hash entry for %s", filePath)
			}
			if info.Path != filePath || info.Size != size {
				t.Fatalf("hash entry %+v does not match (%s, %d)", info, filePath, size)
			}
		}
	}
	if len(idx.FileInfoByHash) != int(idx.TotalFiles) {
		t.Fatalf("hash map size %d != total files %d", len(idx.FileInfoByHash), idx.TotalFiles)
	}
}

func TestAddFileIsIdempotentPerPath(t *testing.T) {
	idx := New()
	for i := 0; i < 2; i++ {
		idx.AddFile("Main/A/B/t", "A", "Main/A/B", "", "t",
			"instrumental", "Main/A/B/t_instrumental.mp3", 4)
	}
	idx.Finalize()
	if idx.TotalFiles != 1 {
		t.Fatalf("duplicate AddFile created %d files", idx.TotalFiles)
	}
	if got := len(idx.Tracks["Main/A/B/t"].Files["instrumental"]); got != 1 {
		t.Fatalf("component list has %d entries", got)
	}
}

func TestSearchByArtist(t *testing.T) {
	idx := buildTestIndex()

	if got := idx.SearchByArtist("artist_a", false, false); len(got) != 1 || got[0] != "Artist_A" {
		t.Fatalf("case-insensitive search = %v", got)
	}
	if got := idx.SearchByArtist("artist_a", true, false); len(got) != 0 {
		t.Fatalf("case-sensitive search should miss, got %v", got)
	}
	if got := idx.SearchByArtist("", false, false); len(got) != 3 {
		t.Fatalf("empty query should return all artists, got %v", got)
	}
}

func TestSearchByArtistFuzzy(t *testing.T) {
	idx := buildTestIndex()

	got := idx.SearchByArtist("Artist_X", false, true)
	if len(got) == 0 {
		t.Fatal("fuzzy search should rank near misses")
	}
	// Substring matches suppress fuzzy results entirely.
	got = idx.SearchByArtist("Artist_B", false, true)
	if len(got) != 1 || got[0] != "Artist_B" {
		t.Fatalf("exact match should win: %v", got)
	}
}

func TestSearchByAlbumAndTrack(t *testing.T) {
	idx := buildTestIndex()

	albums := idx.SearchByAlbum("Album", "Artist_A")
	if len(albums) != 1 || albums[0] != "Main/Artist_A/Album1" {
		t.Fatalf("album search = %v", albums)
	}

	tracks := idx.SearchByTrack("Two", "", "")
	if len(tracks) != 1 || tracks[0].CDNumber != "CD1" {
		t.Fatalf("track search = %+v", tracks)
	}
	tracks = idx.SearchByTrack("", "Artist_A", "")
	if len(tracks) != 1 || tracks[0].BaseName != "01.One" {
		t.Fatalf("artist-filtered track search = %+v", tracks)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	idx := buildTestIndex()
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(loaded.Tracks) != len(idx.Tracks) {
		t.Fatalf("track count: %d != %d", len(loaded.Tracks), len(idx.Tracks))
	}
	for trackPath, track := range idx.Tracks {
		got, ok := loaded.Tracks[trackPath]
		if !ok {
			t.Fatalf("missing track %s", trackPath)
		}
		if got.Artist != track.Artist || got.AlbumPath != track.AlbumPath ||
			got.CDNumber != track.CDNumber || got.BaseName != track.BaseName {
			t.Fatalf("track %s mismatch: %+v != %+v", trackPath, got, track)
		}
		if len(got.FileSizes) != len(track.FileSizes) {
			t.Fatalf("track %s file count mismatch", trackPath)
		}
		for filePath, size := range track.FileSizes {
			if got.FileSizes[filePath] != size {
				t.Fatalf("track %s file %s size %d != %d", trackPath, filePath, got.FileSizes[filePath], size)
			}
		}
	}
	if loaded.TotalFiles != idx.TotalFiles || loaded.TotalSize != idx.TotalSize {
		t.Fatalf("totals mismatch: %d/%d != %d/%d", loaded.TotalFiles, loaded.TotalSize, idx.TotalFiles, idx.TotalSize)
	}
	for hash, info := range idx.FileInfoByHash {
		if loaded.FileInfoByHash[hash] != info {
			t.Fatalf("hash %d: %+v != %+v", hash, loaded.FileInfoByHash[hash], info)
		}
	}
	if !loaded.LastUpdated.Equal(idx.LastUpdated) {
		t.Fatalf("last_updated not preserved: %v != %v", loaded.LastUpdated, idx.LastUpdated)
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	idx := New()
	idx.Finalize()
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	// A SQLite database whose user_version is not ours must be rejected.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		db.Close()
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.db")); err == nil {
		t.Fatal("loading a missing file should error")
	}
}

func TestHashKeyRoundTrip(t *testing.T) {
	h := PathHash("Main/Artist/Album/track.mp3")
	parsed, err := ParseHashKey(HashKey(h))
	if err != nil {
		t.Fatal(err)
	}
	if parsed != h {
		t.Fatalf("%d != %d", parsed, h)
	}
}
