package webdav

import (
	"sort"
	"sync"
	"time"
)

// OpTiming aggregates the durations of one operation kind.
type OpTiming struct {
	Count int64
	Total time.Duration
}

// Recorder collects per-operation timings when profiling is enabled.
type Recorder struct {
	mu      sync.Mutex
	timings map[string]OpTiming
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{timings: map[string]OpTiming{}}
}

// Record adds one observation.
func (r *Recorder) Record(op string, d time.Duration) {
	r.mu.Lock()
	timing := r.timings[op]
	timing.Count++
	timing.Total += d
	r.timings[op] = timing
	r.mu.Unlock()
}

// Snapshot returns a copy of the collected timings.
func (r *Recorder) Snapshot() map[string]OpTiming {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]OpTiming, len(r.timings))
	for op, timing := range r.timings {
		cp[op] = timing
	}
	return cp
}

// Ops returns the recorded operation names, sorted.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.timings))
	for op := range r.timings {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
