package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	dir := filepath.Join(root, "Artist", "Album")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverDerivesComponents(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"01.Track_instrumental.mp3",
		"01.Track_vocals_noreverb.mp3",
		"01.Track.mir.json",
		"01.Track_caption.txt",
	)

	result, err := Discover(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := result.Schema

	wantPatterns := map[string]string{
		"instrumental_audio":    "*_instrumental.mp3",
		"vocals_noreverb_audio": "*_vocals_noreverb.mp3",
		"mir_json":              "*.mir.json",
		"caption":               "*_caption.txt",
	}
	for name, pattern := range wantPatterns {
		def, ok := s.Components[name]
		if !ok {
			t.Fatalf("component %s missing; have %v", name, s.Names())
		}
		if def.Pattern != pattern || def.Multiple {
			t.Fatalf("component %s = %+v", name, def)
		}
	}
}

func TestDiscoverNumericTailBecomesMultiple(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"01.Track_section1.mp3",
		"01.Track_section2.mp3",
		"01.Track_section12.mp3",
	)

	result, err := Discover(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, ok := result.Schema.Components["section_audio"]
	if !ok {
		t.Fatalf("section component missing; have %v", result.Schema.Names())
	}
	if def.Pattern != "*_section*.mp3" || !def.Multiple {
		t.Fatalf("section def = %+v", def)
	}
	if result.FileCounts["section_audio"] != 3 {
		t.Fatalf("count = %d", result.FileCounts["section_audio"])
	}
}

func TestDiscoverSampleArtists(t *testing.T) {
	root := t.TempDir()
	aDir := filepath.Join(root, "A", "Album")
	bDir := filepath.Join(root, "B", "Album")
	for _, dir := range []string{aDir, bDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(aDir, "x_instrumental.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bDir, "y_caption.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Discover(root, []string{"A"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Schema.Has("caption") {
		t.Fatal("unsampled artist leaked into discovery")
	}
	if !result.Schema.Has("instrumental_audio") {
		t.Fatalf("sampled artist missing: %v", result.Schema.Names())
	}
}

func TestDiscoverIgnoresSpacedTails(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "My Song_final mix.mp3")

	result, err := Discover(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	// "final mix" contains a space, so the whole name groups under *.mp3.
	if !result.Schema.Has("audio") {
		t.Fatalf("expected bare audio component, have %v", result.Schema.Names())
	}
}
