package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"blackbird/internal/fileutil"
	"blackbird/internal/logging"
	"blackbird/internal/opstate"
	"blackbird/internal/webdav"
)

const (
	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
	backoffFactor  = 4
)

// ErrSizeMismatch is returned when a downloaded file's size differs from the
// remote index entry.
var ErrSizeMismatch = errors.New("size mismatch")

// Progress is reported after every finished file.
type Progress struct {
	Done   int
	Failed int
	Total  int
	Path   string
	Bytes  int64
}

// Options tunes the executor.
type Options struct {
	Parallel int
	Logger   *slog.Logger
	OnFile   func(Progress)
}

// Stats summarizes one executed plan.
type Stats struct {
	Planned    int
	Done       int
	Failed     int
	PreSkipped int
	Bytes      int64
	Cancelled  bool
	StatePath  string
}

// Execute drains the plan through a fixed worker pool. Per-file failures are
// recorded, never fatal. On a clean full completion the state file is
// deleted; otherwise it is kept for resume.
func Execute(ctx context.Context, client *webdav.Client, plan *Plan, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	stats := Stats{
		Planned:    len(plan.Items) + plan.PreSkipped,
		PreSkipped: plan.PreSkipped,
		StatePath:  plan.StatePath,
	}
	if len(plan.Items) == 0 {
		if plan.StatePath != "" {
			if err := opstate.Delete(plan.StatePath); err != nil {
				return stats, err
			}
			stats.StatePath = ""
		}
		return stats, nil
	}

	writer := opstate.NewWriter(plan.StatePath, plan.State, logger)

	items := make(chan Item)
	var mu sync.Mutex
	feed := func() {
		defer close(items)
		for _, item := range plan.Items {
			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		}
	}
	go feed()

	group := new(errgroup.Group)
	for i := 0; i < parallel; i++ {
		group.Go(func() error {
			for item := range items {
				if ctx.Err() != nil {
					return nil
				}
				written, err := transferFile(ctx, client, item)

				mu.Lock()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						// Leave the item pending for resume.
						mu.Unlock()
						return nil
					}
					stats.Failed++
					writer.Set(item.Hash, opstate.FailedStatus(err.Error()))
					logger.Warn("file failed",
						logging.String("path", item.RemoteSym),
						logging.Error(err))
				} else {
					stats.Done++
					stats.Bytes += written
					writer.Set(item.Hash, opstate.StatusDone)
				}
				progress := Progress{
					Done:   stats.Done,
					Failed: stats.Failed,
					Total:  stats.Planned,
					Path:   item.RemoteSym,
					Bytes:  stats.Bytes,
				}
				mu.Unlock()
				if opts.OnFile != nil {
					opts.OnFile(progress)
				}
			}
			return nil
		})
	}
	_ = group.Wait()
	if err := writer.Close(); err != nil {
		return stats, err
	}

	stats.Cancelled = ctx.Err() != nil

	final, err := opstate.Load(plan.StatePath)
	if err != nil {
		return stats, err
	}
	pending, _, failed := final.Counts()
	if pending == 0 && failed == 0 {
		if err := opstate.Delete(plan.StatePath); err != nil {
			return stats, err
		}
		stats.StatePath = ""
	}
	return stats, nil
}

// transferFile performs the ordered per-file sequence: ensure parents,
// download, verify size, with bounded retries and cleanup of partial files.
func transferFile(ctx context.Context, client *webdav.Client, item Item) (int64, error) {
	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, context.Canceled
			}
			backoff *= backoffFactor
		}
		if ctx.Err() != nil {
			return 0, context.Canceled
		}

		_, err := client.Download(ctx, item.RemoteRel, item.LocalAbs)
		if err != nil {
			_ = fileutil.RemoveIfExists(item.LocalAbs)
			if ctx.Err() != nil {
				return 0, context.Canceled
			}
			lastErr = err
			continue
		}
		info, err := os.Stat(item.LocalAbs)
		if err != nil {
			lastErr = err
			continue
		}
		if info.Size() != item.Size {
			_ = fileutil.RemoveIfExists(item.LocalAbs)
			lastErr = fmt.Errorf("%w: %s got %d want %d", ErrSizeMismatch, item.RemoteRel, info.Size(), item.Size)
			continue
		}
		return info.Size(), nil
	}
	return 0, lastErr
}
