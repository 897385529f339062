package schema

import (
	"errors"
	"path/filepath"
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s := New()
	defs := map[string]ComponentDef{
		"instrumental": {Pattern: "*_instrumental.mp3"},
		"vocals":       {Pattern: "*_vocals_noreverb.mp3"},
		"mir":          {Pattern: "*.mir.json"},
		"caption":      {Pattern: "*_caption.txt"},
		"section":      {Pattern: "*_section*.mp3", Multiple: true},
	}
	for _, name := range []string{"instrumental", "vocals", "mir", "caption", "section"} {
		if err := s.AddComponent(name, defs[name]); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	return s
}

func TestMatchStripsSuffix(t *testing.T) {
	s := testSchema(t)

	cases := []struct {
		filename  string
		component string
		base      string
	}{
		{"01.Track_instrumental.mp3", "instrumental", "01.Track"},
		{"01.Track_vocals_noreverb.mp3", "vocals", "01.Track"},
		{"01.Track.mir.json", "mir", "01.Track"},
		{"01.Track_caption.txt", "caption", "01.Track"},
		{"01.Track_section3.mp3", "section", "01.Track"},
	}
	for _, tc := range cases {
		matches := s.Match(tc.filename)
		if len(matches) != 1 {
			t.Fatalf("%s: expected 1 match, got %v", tc.filename, matches)
		}
		if matches[0].Component != tc.component || matches[0].Base != tc.base {
			t.Fatalf("%s: got %+v", tc.filename, matches[0])
		}
	}
}

func TestMatchIsCaseSensitive(t *testing.T) {
	s := testSchema(t)
	if got := s.Match("01.Track_instrumental.MP3"); len(got) != 0 {
		t.Fatalf("upper-case extension should not match, got %v", got)
	}
}

func TestMatchMultipleRequiresDigits(t *testing.T) {
	s := testSchema(t)
	if got := s.Match("01.Track_sectionfinal.mp3"); len(got) != 0 {
		t.Fatalf("multiple component without digits should not match, got %v", got)
	}
}

func TestAddComponentRejectsAmbiguity(t *testing.T) {
	s := testSchema(t)
	err := s.AddComponent("all_audio", ComponentDef{Pattern: "*.mp3"})
	if !errors.Is(err, ErrPatternAmbiguous) {
		t.Fatalf("expected ErrPatternAmbiguous, got %v", err)
	}
	err = s.AddComponent("instrumental", ComponentDef{Pattern: "*_other.flac"})
	if !errors.Is(err, ErrNameExists) {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")

	s := testSchema(t)
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Components) != len(s.Components) {
		t.Fatalf("component count mismatch: %d != %d", len(loaded.Components), len(s.Components))
	}
	for name, def := range s.Components {
		got, ok := loaded.Components[name]
		if !ok || got != def {
			t.Fatalf("component %s: got %+v want %+v", name, got, def)
		}
	}
}

func TestMergeCopiesMissingOnly(t *testing.T) {
	local := New()
	if err := local.AddComponent("instrumental", ComponentDef{Pattern: "*_instrumental.mp3"}); err != nil {
		t.Fatal(err)
	}
	remote := testSchema(t)

	if err := Merge(local, remote, []string{"instrumental", "mir"}); err != nil {
		t.Fatal(err)
	}
	if !local.Has("mir") {
		t.Fatal("mir should have been copied from remote")
	}
	if local.Has("vocals") {
		t.Fatal("unrequested component leaked into local schema")
	}
}

func TestMergeDetectsConflict(t *testing.T) {
	local := New()
	if err := local.AddComponent("mir", ComponentDef{Pattern: "*.analysis.json"}); err != nil {
		t.Fatal(err)
	}
	remote := testSchema(t)

	err := Merge(local, remote, []string{"mir"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMergeUnknownComponent(t *testing.T) {
	err := Merge(New(), testSchema(t), []string{"stems"})
	if !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
}
