package webdav_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blackbird/internal/testsupport"
	"blackbird/internal/webdav"
)

func TestNormalizeSchemes(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"http://host/dataset", true},
		{"https://host/dataset", true},
		{"webdav://host/dataset", true},
		{"webdavs://host/dataset", true},
		{"ftp://host/dataset", false},
		{"host/dataset", false},
	}
	for _, tc := range cases {
		_, err := webdav.New(webdav.Config{URL: tc.raw})
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.raw, err)
		}
		if !tc.ok && !errors.Is(err, webdav.ErrBadURL) {
			t.Fatalf("%s: expected ErrBadURL, got %v", tc.raw, err)
		}
	}
}

func TestCheckAndFetch(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := client.Check(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}

	data, err := client.FetchSchema(ctx)
	if err != nil {
		t.Fatalf("fetch schema: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty schema")
	}
}

func TestDownloadReportsSize(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	local := filepath.Join(t.TempDir(), "out", "file.mp3")
	size, err := client.Download(context.Background(), "Artist_A/Album_One/01.First_instrumental.mp3", local)
	if err != nil {
		t.Fatal(err)
	}
	if size != 4 {
		t.Fatalf("size = %d, want 4", size)
	}
	if data, err := os.ReadFile(local); err != nil || len(data) != 4 {
		t.Fatalf("local copy wrong: %v %q", err, data)
	}
}

func TestDownloadMissingFails(t *testing.T) {
	root := t.TempDir()
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Download(context.Background(), "nope/missing.mp3", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, webdav.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestUploadCreatesParents(t *testing.T) {
	root := t.TempDir()
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(t.TempDir(), "result.json")
	if err := os.WriteFile(src, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := client.Upload(context.Background(), src, "Artist/Album/track.out.json"); err != nil {
		t.Fatal(err)
	}

	uploaded, err := os.ReadFile(filepath.Join(root, "Artist", "Album", "track.out.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(uploaded) != `{"ok":true}` {
		t.Fatalf("uploaded content %q", uploaded)
	}
}

func TestBasicAuth(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	url := testsupport.ServeWebDAVWithAuth(t, root, "user", "secret")

	denied, err := webdav.New(webdav.Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := denied.FetchSchema(context.Background()); err == nil {
		t.Fatal("expected auth failure without credentials")
	}

	granted, err := webdav.New(webdav.Config{URL: url, Username: "user", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := granted.FetchSchema(context.Background()); err != nil {
		t.Fatalf("authorized fetch failed: %v", err)
	}
}

func TestProfileRecorder(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url, Profile: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.FetchSchema(context.Background()); err != nil {
		t.Fatal(err)
	}

	snapshot := client.Profile().Snapshot()
	if snapshot["fetch_schema"].Count != 1 {
		t.Fatalf("profile snapshot = %+v", snapshot)
	}
}

func TestCancelledContext(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	url := testsupport.ServeWebDAV(t, root)

	client, err := webdav.New(webdav.Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchIndex(ctx); err == nil {
		t.Fatal("cancelled context should fail the request")
	}
}
