package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"blackbird/internal/schema"
)

// Audio and text fixture files are 4 bytes, JSON files 2 bytes.
var (
	audioContent = []byte("mp3!")
	textContent  = []byte("txt!")
	jsonContent  = []byte("{}")
)

// CanonicalSchema returns the component set shared by the end-to-end
// scenarios: instrumental, vocals, mir, caption.
func CanonicalSchema(t testing.TB) *schema.Schema {
	t.Helper()
	s := schema.New()
	defs := []struct {
		name string
		def  schema.ComponentDef
	}{
		{"instrumental", schema.ComponentDef{Pattern: "*_instrumental.mp3"}},
		{"vocals", schema.ComponentDef{Pattern: "*_vocals_noreverb.mp3"}},
		{"mir", schema.ComponentDef{Pattern: "*.mir.json"}},
		{"caption", schema.ComponentDef{Pattern: "*_caption.txt"}},
	}
	for _, d := range defs {
		if err := s.AddComponent(d.name, d.def); err != nil {
			t.Fatalf("canonical schema: %v", err)
		}
	}
	return s
}

// CanonicalTrack describes one fixture track.
type CanonicalTrack struct {
	Dir        string // artist/album[/CD]
	Base       string
	Components []string
}

// CanonicalTracks lists the fixture tracks: Artist_A with two albums (five
// tracks), Artist_B with one multi-CD album (three tracks), Artist_C with one
// album of four tracks of which Gamma and Delta miss vocals and caption.
func CanonicalTracks() []CanonicalTrack {
	complete := []string{"instrumental", "vocals", "mir", "caption"}
	partial := []string{"instrumental", "mir"}
	return []CanonicalTrack{
		{"Artist_A/Album_One", "01.First", complete},
		{"Artist_A/Album_One", "02.Second", complete},
		{"Artist_A/Album_One", "03.Third", complete},
		{"Artist_A/Album_Two", "01.Fourth", complete},
		{"Artist_A/Album_Two", "02.Fifth", complete},
		{"Artist_B/Boxset/CD1", "01.Left", complete},
		{"Artist_B/Boxset/CD1", "02.Right", complete},
		{"Artist_B/Boxset/CD2", "01.Center", complete},
		{"Artist_C/Solo", "01.Alpha", complete},
		{"Artist_C/Solo", "02.Beta", complete},
		{"Artist_C/Solo", "03.Gamma", partial},
		{"Artist_C/Solo", "04.Delta", partial},
	}
}

// CanonicalFileCount is the number of files BuildCanonicalDataset creates:
// ten complete tracks of four components plus two partial tracks of two.
const CanonicalFileCount = 44

// ComponentFileName renders the concrete filename of a component file.
func ComponentFileName(base, component string) string {
	switch component {
	case "instrumental":
		return base + "_instrumental.mp3"
	case "vocals":
		return base + "_vocals_noreverb.mp3"
	case "mir":
		return base + ".mir.json"
	case "caption":
		return base + "_caption.txt"
	default:
		return base + "_" + component
	}
}

func componentContent(component string) []byte {
	switch component {
	case "mir":
		return jsonContent
	case "caption":
		return textContent
	default:
		return audioContent
	}
}

// BuildCanonicalDataset writes the fixture tree under root and persists the
// canonical schema into root/.blackbird/schema.json.
func BuildCanonicalDataset(t testing.TB, root string) *schema.Schema {
	t.Helper()

	for _, track := range CanonicalTracks() {
		dir := filepath.Join(root, filepath.FromSlash(track.Dir))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, component := range track.Components {
			name := ComponentFileName(track.Base, component)
			if err := os.WriteFile(filepath.Join(dir, name), componentContent(component), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}

	s := CanonicalSchema(t)
	cfgDir := filepath.Join(root, ".blackbird")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(filepath.Join(cfgDir, "schema.json")); err != nil {
		t.Fatal(err)
	}
	return s
}
