package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"blackbird/internal/index"
	"blackbird/internal/indexer"
	"blackbird/internal/location"
	"blackbird/internal/logging"
	"blackbird/internal/schema"
)

// ErrNoIndex is returned when an operation needs an index that has not been
// built yet.
var ErrNoIndex = errors.New("dataset has no index; run reindex first")

// Dataset ties the registry, schema, and index of one dataset directory
// together.
type Dataset struct {
	root     string
	Registry *location.Registry
	Schema   *schema.Schema
	Index    *index.Index

	logger *slog.Logger
	lock   *flock.Flock
}

// Open loads a dataset rooted at root. A missing schema or index is not an
// error; operations that need them check explicitly.
func Open(root string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry, err := location.Load(root)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		root:     registry.PrimaryRoot(),
		Registry: registry,
		logger:   logger,
		lock:     flock.New(filepath.Join(registry.PrimaryRoot(), location.ConfigDirName, "lock")),
	}

	if s, err := schema.Load(ds.SchemaPath()); err == nil {
		ds.Schema = s
	} else if os.IsNotExist(err) {
		ds.Schema = schema.New()
	} else {
		return nil, err
	}

	if idx, err := index.Load(ds.IndexPath()); err == nil {
		ds.Index = idx
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return ds, nil
}

// Create initializes a dataset directory, writing an empty schema when none
// exists.
func Create(root string, logger *slog.Logger) (*Dataset, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	ds, err := Open(root, logger)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(ds.SchemaPath()); os.IsNotExist(err) {
		if err := os.MkdirAll(ds.ConfigDir(), 0o755); err != nil {
			return nil, err
		}
		if err := ds.Schema.Save(ds.SchemaPath()); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Root returns the primary root directory.
func (ds *Dataset) Root() string { return ds.root }

// ConfigDir returns the .blackbird directory under the primary root.
func (ds *Dataset) ConfigDir() string {
	return filepath.Join(ds.root, location.ConfigDirName)
}

// SchemaPath returns the schema file path.
func (ds *Dataset) SchemaPath() string {
	return filepath.Join(ds.ConfigDir(), schema.FileName)
}

// IndexPath returns the index file path.
func (ds *Dataset) IndexPath() string {
	return filepath.Join(ds.ConfigDir(), index.FileName)
}

// Logger returns the dataset's logger.
func (ds *Dataset) Logger() *slog.Logger { return ds.logger }

// Lock takes the dataset-wide operation lock without waiting. If another
// operation already holds it, Lock returns an error.
func (ds *Dataset) Lock() error {
	if err := os.MkdirAll(ds.ConfigDir(), 0o755); err != nil {
		return err
	}
	locked, err := ds.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire dataset lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("dataset %s is locked by another operation", ds.root)
	}
	return nil
}

// Unlock releases the operation lock.
func (ds *Dataset) Unlock() error {
	return ds.lock.Unlock()
}

// SaveSchema persists the schema.
func (ds *Dataset) SaveSchema() error {
	if err := os.MkdirAll(ds.ConfigDir(), 0o755); err != nil {
		return err
	}
	return ds.Schema.Save(ds.SchemaPath())
}

// SaveLocations persists the registry.
func (ds *Dataset) SaveLocations() error {
	return ds.Registry.Save()
}

// Reindex rebuilds the index from the filesystem and persists it.
func (ds *Dataset) Reindex(ctx context.Context) (*index.Index, error) {
	idx, err := indexer.New(ds.Registry, ds.Schema, ds.logger).Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(ds.ConfigDir(), 0o755); err != nil {
		return nil, err
	}
	if err := idx.Save(ds.IndexPath()); err != nil {
		return nil, err
	}
	ds.Index = idx
	return idx, nil
}

// RequireIndex returns the loaded index or ErrNoIndex.
func (ds *Dataset) RequireIndex() (*index.Index, error) {
	if ds.Index == nil {
		return nil, ErrNoIndex
	}
	return ds.Index, nil
}

// LocationInUse reports whether the index references files in a location.
func (ds *Dataset) LocationInUse(name string) bool {
	return ds.Index != nil && ds.Index.HasLocationFiles(name)
}

// RemoveLocation removes a location honoring the in-use check, and persists
// the registry.
func (ds *Dataset) RemoveLocation(name string, force bool) error {
	if err := ds.Registry.Remove(name, ds.LocationInUse(name), force); err != nil {
		return err
	}
	return ds.SaveLocations()
}
