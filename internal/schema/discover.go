package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverResult carries a derived schema together with per-component counts
// so callers can report what the sample contained.
type DiscoverResult struct {
	Schema     *Schema
	FileCounts map[string]int
}

var discoverableExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".json": {},
	".txt":  {},
}

// Discover walks root and derives component definitions from the file names
// it finds. When sampleArtists is non-empty only those top-level directories
// are visited.
func Discover(root string, sampleArtists []string) (*DiscoverResult, error) {
	sample := map[string]struct{}{}
	for _, artist := range sampleArtists {
		sample[artist] = struct{}{}
	}

	type key struct {
		pattern  string
		multiple bool
	}
	counts := map[key]int{}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if len(sample) > 0 {
			if _, ok := sample[entry.Name()]; !ok {
				continue
			}
		}
		err := filepath.WalkDir(filepath.Join(root, entry.Name()), func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			pattern, multiple, ok := derivePattern(d.Name())
			if !ok {
				return nil
			}
			counts[key{pattern, multiple}]++
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].pattern < keys[j].pattern })

	result := &DiscoverResult{Schema: New(), FileCounts: map[string]int{}}
	for _, k := range keys {
		name := canonicalName(k.pattern)
		if result.Schema.Has(name) {
			name = uniqueName(result.Schema, name)
		}
		def := ComponentDef{Pattern: k.pattern, Multiple: k.multiple}
		if err := result.Schema.AddComponent(name, def); err != nil {
			return nil, fmt.Errorf("discovered schema rejected: %w", err)
		}
		result.FileCounts[name] = counts[k]
	}
	return result, nil
}

// derivePattern turns a concrete filename into the component pattern it
// represents. Files without a recognized extension are ignored.
func derivePattern(filename string) (pattern string, multiple bool, ok bool) {
	ext := extensionOf(filename)
	if ext == "" {
		return "", false, false
	}
	simple := ext[strings.LastIndexByte(ext, '.'):]
	if _, known := discoverableExtensions[strings.ToLower(simple)]; !known {
		return "", false, false
	}

	stem := strings.TrimSuffix(filename, ext)
	suffix, found := suffixTail(stem)
	if !found {
		return "*" + ext, false, true
	}

	word := strings.TrimRight(suffix, "0123456789")
	if word != suffix {
		// Numeric tail becomes a wildcard: one component per section family.
		return "*_" + word + "*" + ext, true, true
	}
	return "*_" + suffix + ext, false, true
}

// suffixTail finds the longest trailing "_<suffix>" of a stem that is
// non-empty and contains no spaces.
func suffixTail(stem string) (string, bool) {
	for idx := 0; idx < len(stem); idx++ {
		if stem[idx] != '_' {
			continue
		}
		tail := stem[idx+1:]
		if tail == "" || strings.ContainsRune(tail, ' ') {
			continue
		}
		return tail, true
	}
	return "", false
}

// canonicalName derives a component name from its pattern: the suffix with
// the leading "*_" stripped and the extension folded in (audio extensions map
// to an _audio suffix, compound extensions to their inner segment).
func canonicalName(pattern string) string {
	lit, ext, _ := splitPattern(pattern)
	name := strings.Trim(lit, "_")

	extPart := strings.Trim(strings.ReplaceAll(ext, ".", "_"), "_")
	switch {
	case isAudioExtension(ext):
		if name == "" {
			return "audio"
		}
		return name + "_audio"
	case name == "":
		return extPart
	case strings.Count(ext, ".") > 1:
		return name + "_" + extPart
	default:
		return name
	}
}

func isAudioExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp3", ".wav", ".flac", ".ogg", ".opus":
		return true
	}
	return false
}

func uniqueName(s *Schema, name string) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !s.Has(candidate) {
			return candidate
		}
	}
}
