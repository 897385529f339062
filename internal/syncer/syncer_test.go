package syncer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"blackbird/internal/dataset"
	"blackbird/internal/opstate"
	"blackbird/internal/syncer"
	"blackbird/internal/testsupport"
	"blackbird/internal/webdav"
)

// remoteDataset builds the canonical dataset, indexes it, and returns its
// root so a test server can expose it.
func remoteDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	ds, err := dataset.Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}
	return root
}

func newClient(t *testing.T, url string) *webdav.Client {
	t.Helper()
	client, err := webdav.New(webdav.Config{URL: url, ParallelConnections: 4})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestCloneFiltered(t *testing.T) {
	remote := remoteDataset(t)
	url := testsupport.ServeWebDAV(t, remote)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, url)

	filters := syncer.Filters{
		Components: []string{"instrumental", "mir"},
		Artists:    []string{"Artist_A"},
	}
	stats, err := syncer.Sync(context.Background(), dest, client, filters, "", syncer.Options{Parallel: 2})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Done != 10 {
		t.Fatalf("downloaded = %d, want 10 (5 tracks x 2 components)", stats.Done)
	}
	if stats.Failed != 0 {
		t.Fatalf("failed = %d", stats.Failed)
	}
	if stats.StatePath != "" {
		t.Fatalf("state file should be gone, got %q", stats.StatePath)
	}

	names := dest.Schema.Names()
	if len(names) != 2 || names[0] != "instrumental" || names[1] != "mir" {
		t.Fatalf("local schema components = %v", names)
	}

	if dest.Index == nil {
		t.Fatal("index not rebuilt after clone")
	}
	if dest.Index.TotalFiles != 10 {
		t.Fatalf("local index files = %d, want 10", dest.Index.TotalFiles)
	}
	if len(dest.Index.AlbumByArtist) != 1 {
		t.Fatalf("artists = %v", dest.Index.AlbumByArtist)
	}
}

func TestSyncIdempotent(t *testing.T) {
	remote := remoteDataset(t)
	url := testsupport.ServeWebDAV(t, remote)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, url)

	first, err := syncer.Sync(context.Background(), dest, client, syncer.Filters{}, "", syncer.Options{Parallel: 2})
	if err != nil {
		t.Fatal(err)
	}
	if first.Done != testsupport.CanonicalFileCount || first.Failed != 0 {
		t.Fatalf("first sync: %+v", first)
	}

	second, err := syncer.Sync(context.Background(), dest, client, syncer.Filters{}, "", syncer.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Done != 0 || second.PreSkipped != testsupport.CanonicalFileCount {
		t.Fatalf("second sync should be a no-op: %+v", second)
	}
}

func TestMissingComponentFilter(t *testing.T) {
	remote := remoteDataset(t)
	url := testsupport.ServeWebDAV(t, remote)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, url)
	ctx := context.Background()

	// First pull instrumentals only, then ask for vocals on tracks missing
	// them; every remote track that has vocals qualifies.
	if _, err := syncer.Sync(ctx, dest, client, syncer.Filters{Components: []string{"instrumental"}}, "", syncer.Options{}); err != nil {
		t.Fatal(err)
	}
	stats, err := syncer.Sync(ctx, dest, client, syncer.Filters{
		Components:       []string{"vocals"},
		MissingComponent: "vocals",
	}, "", syncer.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Done != 10 {
		t.Fatalf("vocals downloaded = %d, want 10", stats.Done)
	}
}

func TestResumeAfterFault(t *testing.T) {
	remote := remoteDataset(t)
	flaky := testsupport.ServeFlakyWebDAV(t, remote, 6)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, flaky.URL)
	ctx := context.Background()

	stats, err := syncer.Sync(ctx, dest, client, syncer.Filters{}, "", syncer.Options{Parallel: 1})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 {
		t.Fatalf("failed = %d, want 1", stats.Failed)
	}
	if stats.Done != testsupport.CanonicalFileCount-1 {
		t.Fatalf("done = %d, want %d", stats.Done, testsupport.CanonicalFileCount-1)
	}
	if stats.StatePath == "" {
		t.Fatal("state file should remain after failure")
	}

	state, err := opstate.Load(stats.StatePath)
	if err != nil {
		t.Fatal(err)
	}
	pending, done, failed := state.Counts()
	if pending != 0 || failed != 1 || done != testsupport.CanonicalFileCount-1 {
		t.Fatalf("state counts = %d/%d/%d", pending, done, failed)
	}

	flaky.Restore()
	resumed, err := syncer.Resume(ctx, dest, client, stats.StatePath, syncer.Options{Parallel: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Failed != 0 || resumed.Done != 1 {
		t.Fatalf("resume stats = %+v", resumed)
	}
	if resumed.StatePath != "" {
		t.Fatal("state file should be deleted after successful resume")
	}
	if _, err := os.Stat(stats.StatePath); !os.IsNotExist(err) {
		t.Fatalf("state file still on disk: %v", err)
	}
	if dest.Index == nil || dest.Index.TotalFiles != testsupport.CanonicalFileCount {
		t.Fatalf("final index incomplete: %+v", dest.Index)
	}
}

func TestResumeRefusesCorruptState(t *testing.T) {
	remote := remoteDataset(t)
	url := testsupport.ServeWebDAV(t, remote)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, url)

	bad := filepath.Join(dest.ConfigDir(), "operation_sync_1.json")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := syncer.Resume(context.Background(), dest, client, bad, syncer.Options{}); err == nil {
		t.Fatal("corrupt state must refuse to resume")
	}
}

func TestSyncCancellationKeepsState(t *testing.T) {
	remote := remoteDataset(t)
	url := testsupport.ServeWebDAV(t, remote)

	dest, err := dataset.Create(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	var once bool
	opts := syncer.Options{
		Parallel: 1,
		OnFile: func(p syncer.Progress) {
			if !once {
				once = true
				cancel()
			}
		},
	}
	stats, err := syncer.Sync(ctx, dest, client, syncer.Filters{}, "", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Cancelled {
		t.Fatal("stats should record cancellation")
	}
	if stats.StatePath == "" {
		t.Fatal("cancelled sync must keep its state file")
	}
	state, err := opstate.Load(stats.StatePath)
	if err != nil {
		t.Fatal(err)
	}
	pending, done, _ := state.Counts()
	if pending == 0 || done == 0 {
		t.Fatalf("expected partial progress, got pending=%d done=%d", pending, done)
	}
}
