package opstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"blackbird/internal/fileutil"
	"blackbird/internal/index"
)

const (
	// StatusPending marks a file not yet transferred.
	StatusPending = "pending"

	// StatusDone marks a file transferred and size-verified.
	StatusDone = "done"

	failedPrefix = "failed: "

	filePrefix = "operation"
)

// ErrCorrupt is returned when a state file cannot be parsed. A corrupt state
// file is never resumed.
var ErrCorrupt = errors.New("corrupt operation state file")

// OpSync and OpMove are the known operation types.
const (
	OpSync = "sync"
	OpMove = "move"
)

// State is the persisted form of one operation.
type State struct {
	OperationID    string            `json:"operation_id"`
	OperationType  string            `json:"operation_type"`
	Timestamp      int64             `json:"timestamp"`
	Source         string            `json:"source"`
	TargetLocation string            `json:"target_location"`
	Components     []string          `json:"components,omitempty"`
	Files          map[string]string `json:"files"`
}

// FailedStatus renders a failure status with its message.
func FailedStatus(msg string) string {
	return failedPrefix + strings.TrimSpace(msg)
}

// IsFailed reports whether a status string records a failure.
func IsFailed(status string) bool {
	return strings.HasPrefix(status, "failed")
}

// FilePath renders the state file path for an operation.
func FilePath(blackbirdDir, opType string, timestamp int64) string {
	return filepath.Join(blackbirdDir, fmt.Sprintf("%s_%s_%d.json", filePrefix, opType, timestamp))
}

// Create writes the initial state file with every hash pending and returns
// its path together with the parsed state.
func Create(blackbirdDir, opType, source, targetLocation string, components []string, hashes []uint64) (string, *State, error) {
	state := &State{
		OperationID:    uuid.NewString(),
		OperationType:  opType,
		Timestamp:      time.Now().Unix(),
		Source:         source,
		TargetLocation: targetLocation,
		Components:     components,
		Files:          make(map[string]string, len(hashes)),
	}
	for _, hash := range hashes {
		state.Files[index.HashKey(hash)] = StatusPending
	}

	if err := fileutil.EnsureDir(blackbirdDir); err != nil {
		return "", nil, err
	}
	path := FilePath(blackbirdDir, opType, state.Timestamp)
	if err := write(path, state); err != nil {
		return "", nil, err
	}
	return path, state, nil
}

// Load parses a state file. Any malformed content is ErrCorrupt.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if state.OperationType == "" || state.Files == nil {
		return nil, fmt.Errorf("%w: %s: missing required fields", ErrCorrupt, path)
	}
	for key := range state.Files {
		if _, err := index.ParseHashKey(key); err != nil {
			return nil, fmt.Errorf("%w: %s: bad hash key %q", ErrCorrupt, path, key)
		}
	}
	return &state, nil
}

// Delete removes a state file, tolerating its absence.
func Delete(path string) error {
	return fileutil.RemoveIfExists(path)
}

// FindLatest returns the newest state file of the given type under
// blackbirdDir, or "" when none exists.
func FindLatest(blackbirdDir, opType string) (string, error) {
	pattern := filepath.Join(blackbirdDir, fmt.Sprintf("%s_%s_*.json", filePrefix, opType))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] > matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], nil
}

// Remaining returns the hashes still pending or failed.
func (s *State) Remaining() []uint64 {
	var out []uint64
	for key, status := range s.Files {
		if status == StatusDone {
			continue
		}
		hash, err := index.ParseHashKey(key)
		if err != nil {
			continue
		}
		out = append(out, hash)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Counts tallies the states.
func (s *State) Counts() (pending, done, failed int) {
	for _, status := range s.Files {
		switch {
		case status == StatusDone:
			done++
		case IsFailed(status):
			failed++
		default:
			pending++
		}
	}
	return pending, done, failed
}

func write(path string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
