package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"blackbird/internal/dataset"
	"blackbird/internal/testsupport"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, err := runCommand(t)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"reindex", "clone", "sync", "resume", "location", "schema"} {
		if !strings.Contains(out, want) {
			t.Fatalf("help missing %q:\n%s", want, out)
		}
	}
}

func TestReindexAndStats(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)

	out, err := runCommand(t, "reindex", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Indexed 44 files") {
		t.Fatalf("reindex output: %s", out)
	}

	out, err = runCommand(t, "stats", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Main") || !strings.Contains(out, "Total: 44 files") {
		t.Fatalf("stats output: %s", out)
	}
}

func TestStatsMissingComponent(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)
	if _, err := runCommand(t, "reindex", root); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "stats", root, "--missing", "vocals")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 tracks missing") ||
		!strings.Contains(out, "03.Gamma") || !strings.Contains(out, "04.Delta") {
		t.Fatalf("missing output: %s", out)
	}
}

func TestSchemaShow(t *testing.T) {
	root := t.TempDir()
	testsupport.BuildCanonicalDataset(t, root)

	out, err := runCommand(t, "schema", "show", root)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"instrumental", "*_instrumental.mp3", "caption"} {
		if !strings.Contains(out, want) {
			t.Fatalf("schema show missing %q:\n%s", want, out)
		}
	}
}

func TestWebdavSetup(t *testing.T) {
	out, err := runCommand(t, "webdav", "setup", t.TempDir(), "--port", "8099")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "listen 8099;") {
		t.Fatalf("webdav setup output: %s", out)
	}
}

func TestCloneEndToEnd(t *testing.T) {
	remote := t.TempDir()
	testsupport.BuildCanonicalDataset(t, remote)
	rds, err := dataset.Open(remote, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rds.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}
	url := testsupport.ServeWebDAV(t, remote)

	dest := filepath.Join(t.TempDir(), "local")
	out, err := runCommand(t, "clone", url, dest,
		"--components", "instrumental,mir", "--artists", "Artist_A")
	if err != nil {
		t.Fatalf("clone failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Done: 10") {
		t.Fatalf("clone output: %s", out)
	}

	ds, err := dataset.Open(dest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Index == nil || ds.Index.TotalFiles != 10 {
		t.Fatalf("cloned index: %+v", ds.Index)
	}
}

func TestProportionZeroRejected(t *testing.T) {
	if _, err := runCommand(t, "sync", "http://host/x", t.TempDir(), "--proportion", "0"); err == nil {
		t.Fatal("explicit --proportion 0 must be rejected")
	}
}
