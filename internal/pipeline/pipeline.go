package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"blackbird/internal/fileutil"
	"blackbird/internal/index"
	"blackbird/internal/location"
	"blackbird/internal/logging"
	"blackbird/internal/syncer"
	"blackbird/internal/webdav"
)

const (
	maxAttempts      = 3
	initialBackoff   = 100 * time.Millisecond
	backoffFactor    = 4
	uploadQueueSize  = 1024
	drainWorkerGrace = 30 * time.Second
)

// Metadata describes the track an item belongs to.
type Metadata struct {
	Artist    string
	Album     string
	Track     string
	Component string
}

// Item is one downloaded file handed to user code.
type Item struct {
	LocalPath  string
	RemotePath string
	Metadata   Metadata
}

type uploadTask struct {
	sourcePath string // local downloaded source, deleted after upload
	resultPath string
	remote     string
}

// Config tunes the pipeline.
type Config struct {
	Components []string
	Artists    []string
	Albums     []string

	QueueSize       int
	PrefetchWorkers int
	UploadWorkers   int
	WorkDir         string

	Logger *slog.Logger
}

// Stats counts pipeline outcomes.
type Stats struct {
	Downloaded      int
	Uploaded        int
	Skipped         int
	FailedDownloads int
	FailedUploads   int
}

// Pipeline is a running streaming session. Create with Start, always Close.
type Pipeline struct {
	client *webdav.Client
	cfg    Config
	logger *slog.Logger

	state *state

	downloadQueue chan Item
	uploadQueue   chan uploadTask

	cancelPrefetch context.CancelFunc
	prefetchDone   chan struct{}
	uploadersDone  chan struct{}
	closeUploadsMu sync.Mutex
	uploadsClosed  bool

	mu        sync.Mutex
	stats     Stats
	totalWork int
	completed int
}

// Start connects, fetches the remote index, builds the filtered work list,
// resumes pending uploads, and launches the worker pools.
func Start(ctx context.Context, client *webdav.Client, cfg Config) (*Pipeline, error) {
	if cfg.WorkDir == "" {
		return nil, errors.New("pipeline: work dir required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}
	if cfg.PrefetchWorkers <= 0 {
		cfg.PrefetchWorkers = 4
	}
	if cfg.UploadWorkers <= 0 {
		cfg.UploadWorkers = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := fileutil.EnsureDir(cfg.WorkDir); err != nil {
		return nil, err
	}

	_, remoteIdx, err := syncer.FetchRemote(ctx, client, cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	st, err := loadOrCreateState(filepath.Join(cfg.WorkDir, StateFileName), client.Endpoint())
	if err != nil {
		return nil, err
	}

	work, skipped := buildWorkList(remoteIdx, cfg, st.processedSet())

	prefetchCtx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		client:         client,
		cfg:            cfg,
		logger:         logger,
		state:          st,
		downloadQueue:  make(chan Item, cfg.QueueSize),
		uploadQueue:    make(chan uploadTask, uploadQueueSize),
		cancelPrefetch: cancel,
		prefetchDone:   make(chan struct{}),
		uploadersDone:  make(chan struct{}),
	}
	p.stats.Skipped = skipped

	p.totalWork = len(work)

	// Re-queue uploads that were pending when a previous run stopped.
	for _, up := range st.pending() {
		if _, err := os.Stat(up.Local); err != nil {
			logger.Warn("pending upload file missing", logging.String("path", up.Local))
			st.removePendingUpload(up.Remote)
			continue
		}
		p.totalWork++
		p.uploadQueue <- uploadTask{sourcePath: up.SourcePath, resultPath: up.Local, remote: up.Remote}
	}

	next := make(chan workEntry)
	go func() {
		defer close(next)
		for _, entry := range work {
			select {
			case next <- entry:
			case <-prefetchCtx.Done():
				return
			}
		}
	}()

	var prefetchers sync.WaitGroup
	for i := 0; i < cfg.PrefetchWorkers; i++ {
		prefetchers.Add(1)
		go func() {
			defer prefetchers.Done()
			p.prefetchWorker(prefetchCtx, next)
		}()
	}
	go func() {
		prefetchers.Wait()
		close(p.downloadQueue)
		close(p.prefetchDone)
	}()

	var uploaders sync.WaitGroup
	for i := 0; i < cfg.UploadWorkers; i++ {
		uploaders.Add(1)
		go func() {
			defer uploaders.Done()
			p.uploadWorker()
		}()
	}
	go func() {
		uploaders.Wait()
		close(p.uploadersDone)
	}()

	logger.Info("pipeline started",
		logging.Int("files", len(work)),
		logging.Int("resumed_uploads", len(st.pending())),
		logging.Int("prefetch_workers", cfg.PrefetchWorkers),
		logging.Int("upload_workers", cfg.UploadWorkers))
	return p, nil
}

type workEntry struct {
	remotePath string
	meta       Metadata
}

// buildWorkList filters the remote index down to the items to stream,
// excluding anything a previous run already processed.
func buildWorkList(remoteIdx *index.Index, cfg Config, processed map[string]struct{}) ([]workEntry, int) {
	componentSet := map[string]struct{}{}
	for _, name := range cfg.Components {
		componentSet[name] = struct{}{}
	}

	var work []workEntry
	skipped := 0
	for _, track := range remoteIdx.Tracks {
		if len(cfg.Artists) > 0 && !containsName(cfg.Artists, track.Artist) {
			continue
		}
		if len(cfg.Albums) > 0 && !containsName(cfg.Albums, path.Base(track.AlbumPath)) {
			continue
		}
		for component, files := range track.Files {
			if len(componentSet) > 0 {
				if _, ok := componentSet[component]; !ok {
					continue
				}
			}
			for _, symbolic := range files {
				_, rel, err := location.Split(symbolic)
				if err != nil {
					continue
				}
				if _, done := processed[rel]; done {
					skipped++
					continue
				}
				work = append(work, workEntry{
					remotePath: rel,
					meta: Metadata{
						Artist:    track.Artist,
						Album:     path.Base(track.AlbumPath),
						Track:     track.BaseName,
						Component: component,
					},
				})
			}
		}
	}
	sort.Slice(work, func(i, j int) bool { return work[i].remotePath < work[j].remotePath })
	return work, skipped
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Take returns up to count downloaded items, blocking until they are ready.
// Fewer items (possibly none) are returned only when the stream is exhausted
// or the context ends.
func (p *Pipeline) Take(ctx context.Context, count int) []Item {
	var items []Item
	for len(items) < count {
		select {
		case item, ok := <-p.downloadQueue:
			if !ok {
				return items
			}
			items = append(items, item)
		case <-ctx.Done():
			return items
		}
	}
	return items
}

// SubmitResult queues a result for background upload. After a successful
// upload both the downloaded source and the result file are deleted.
// Submitting blocks only when the upload backlog is extraordinarily deep.
func (p *Pipeline) SubmitResult(item Item, resultPath, remoteName string) error {
	if _, err := os.Stat(resultPath); err != nil {
		return fmt.Errorf("result file: %w", err)
	}
	remote := path.Join(path.Dir(item.RemotePath), remoteName)
	p.state.addPendingUpload(pendingUpload{Local: resultPath, Remote: remote, SourcePath: item.LocalPath})
	p.uploadQueue <- uploadTask{sourcePath: item.LocalPath, resultPath: resultPath, remote: remote}
	return nil
}

// Skip deletes the local copy of an item without uploading anything.
func (p *Pipeline) Skip(item Item) {
	_ = fileutil.RemoveIfExists(item.LocalPath)
	p.state.markProcessed(item.RemotePath)
	p.mu.Lock()
	p.stats.Skipped++
	p.completed++
	p.mu.Unlock()
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close stops prefetching, drains pending uploads with a per-worker grace
// period, persists state, and removes the state file when everything
// finished cleanly.
func (p *Pipeline) Close() error {
	p.cancelPrefetch()
	<-p.prefetchDone

	// Drain queued items so their local files do not leak unaccounted.
	for item := range p.downloadQueue {
		_ = fileutil.RemoveIfExists(item.LocalPath)
	}

	p.closeUploads()
	grace := time.Duration(p.cfg.UploadWorkers) * drainWorkerGrace
	select {
	case <-p.uploadersDone:
	case <-time.After(grace):
		p.logger.Warn("upload drain timed out", logging.Duration("grace", grace))
	}

	if err := p.state.flush(); err != nil {
		return err
	}

	stats := p.Stats()
	p.mu.Lock()
	exhausted := p.completed >= p.totalWork
	p.mu.Unlock()
	clean := exhausted && stats.FailedDownloads == 0 && stats.FailedUploads == 0 && len(p.state.pending()) == 0
	if clean {
		if err := p.state.remove(); err != nil {
			return err
		}
		p.logger.Info("pipeline finished cleanly",
			logging.Int("uploaded", stats.Uploaded),
			logging.Int("skipped", stats.Skipped))
	} else {
		p.logger.Warn("pipeline stopped with unfinished work",
			logging.Int("failed_downloads", stats.FailedDownloads),
			logging.Int("failed_uploads", stats.FailedUploads),
			logging.Int("pending_uploads", len(p.state.pending())))
	}
	return nil
}

func (p *Pipeline) closeUploads() {
	p.closeUploadsMu.Lock()
	defer p.closeUploadsMu.Unlock()
	if !p.uploadsClosed {
		p.uploadsClosed = true
		close(p.uploadQueue)
	}
}

func (p *Pipeline) prefetchWorker(ctx context.Context, next <-chan workEntry) {
	for entry := range next {
		if ctx.Err() != nil {
			return
		}
		local := filepath.Join(p.cfg.WorkDir, "downloads", filepath.FromSlash(entry.remotePath))
		if err := p.downloadWithRetry(ctx, entry.remotePath, local); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.mu.Lock()
			p.stats.FailedDownloads++
			p.mu.Unlock()
			p.logger.Error("download failed", logging.String("path", entry.remotePath), logging.Error(err))
			continue
		}
		item := Item{LocalPath: local, RemotePath: entry.remotePath, Metadata: entry.meta}
		select {
		case p.downloadQueue <- item: // blocks when full: backpressure
			p.mu.Lock()
			p.stats.Downloaded++
			p.mu.Unlock()
		case <-ctx.Done():
			_ = fileutil.RemoveIfExists(local)
			return
		}
	}
}

func (p *Pipeline) downloadWithRetry(ctx context.Context, remote, local string) error {
	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= backoffFactor
		}
		if _, err := p.client.Download(ctx, remote, local); err != nil {
			_ = fileutil.RemoveIfExists(local)
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (p *Pipeline) uploadWorker() {
	for task := range p.uploadQueue {
		if err := p.uploadWithRetry(task); err != nil {
			p.mu.Lock()
			p.stats.FailedUploads++
			p.mu.Unlock()
			p.logger.Error("upload failed", logging.String("remote", task.remote), logging.Error(err))
			continue
		}
		_ = fileutil.RemoveIfExists(task.resultPath)
		if task.sourcePath != "" {
			_ = fileutil.RemoveIfExists(task.sourcePath)
		}
		p.state.removePendingUpload(task.remote)
		if task.sourcePath != "" {
			if rel, err := filepath.Rel(filepath.Join(p.cfg.WorkDir, "downloads"), task.sourcePath); err == nil {
				p.state.markProcessed(filepath.ToSlash(rel))
			}
		}
		p.mu.Lock()
		p.stats.Uploaded++
		p.completed++
		p.mu.Unlock()
	}
}

func (p *Pipeline) uploadWithRetry(task uploadTask) error {
	ctx := context.Background()
	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= backoffFactor
		}
		if err := p.client.Upload(ctx, task.resultPath, task.remote); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
