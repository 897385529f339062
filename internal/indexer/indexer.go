package indexer

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"blackbird/internal/index"
	"blackbird/internal/location"
	"blackbird/internal/logging"
	"blackbird/internal/schema"
)

// Indexer builds indexes from the filesystem.
type Indexer struct {
	registry *location.Registry
	schema   *schema.Schema
	logger   *slog.Logger
}

// New returns an Indexer over the given registry and schema.
func New(registry *location.Registry, s *schema.Schema, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Indexer{registry: registry, schema: s, logger: logger}
}

// Build walks all locations and returns a finalized index.
func (ix *Indexer) Build(ctx context.Context) (*index.Index, error) {
	idx := index.New()

	for _, name := range ix.registry.Names() {
		root, err := ix.registry.Root(name)
		if err != nil {
			return nil, err
		}
		if err := ix.walkLocation(ctx, idx, name, root); err != nil {
			return nil, err
		}
	}

	idx.Finalize()
	ix.logger.Info("index built",
		logging.Int64("files", idx.TotalFiles),
		logging.Int64("bytes", idx.TotalSize),
		logging.Int("tracks", len(idx.Tracks)))
	return idx, nil
}

func (ix *Indexer) walkLocation(ctx context.Context, idx *index.Index, name, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == location.ConfigDirName {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = norm.NFC.String(filepath.ToSlash(rel))

		artist, albumPath, cdNumber, ok := splitTrackDirs(rel)
		if !ok {
			return nil
		}

		matches := ix.schema.Match(filepath.Base(rel))
		if len(matches) == 0 {
			return nil
		}
		match := matches[0]

		info, err := d.Info()
		if err != nil {
			return err
		}

		filePath := name + "/" + rel
		album := name + "/" + albumPath
		trackPath := album + "/" + match.Base
		if cdNumber != "" {
			trackPath = album + "/" + cdNumber + "/" + match.Base
		}

		idx.AddFile(trackPath, artist, album, cdNumber, match.Base, match.Component, filePath, info.Size())
		return nil
	})
}

// splitTrackDirs decomposes a location-relative path into artist, album path
// (artist/album) and optional CD directory. Files outside the
// artist/album[/CD]/file shape are not indexable.
func splitTrackDirs(rel string) (artist, albumPath, cdNumber string, ok bool) {
	parts := strings.Split(rel, "/")
	switch len(parts) {
	case 3:
		return parts[0], parts[0] + "/" + parts[1], "", true
	case 4:
		if !index.CDPattern.MatchString(parts[2]) {
			return "", "", "", false
		}
		return parts[0], parts[0] + "/" + parts[1], parts[2], true
	default:
		return "", "", "", false
	}
}
