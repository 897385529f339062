package pipeline

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"

	"blackbird/internal/fileutil"
)

// StateFileName is the resume state file kept inside the work directory.
const StateFileName = ".pipeline_state.json"

type pendingUpload struct {
	Local      string `json:"local"`
	Remote     string `json:"remote"`
	SourcePath string `json:"source_path,omitempty"`
}

type stateData struct {
	OperationID    string          `json:"operation_id"`
	URL            string          `json:"url"`
	Processed      []string        `json:"processed"`
	PendingUploads []pendingUpload `json:"pending_uploads"`
}

// state is the mutex-guarded persistent pipeline state.
type state struct {
	mu   sync.Mutex
	path string
	data stateData
}

func loadOrCreateState(path, url string) (*state, error) {
	s := &state{path: path}
	raw, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &s.data); jsonErr == nil && s.data.URL != "" {
			return s, nil
		}
		// Unreadable state starts fresh rather than blocking the pipeline.
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	s.data = stateData{OperationID: uuid.NewString(), URL: url}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *state) save() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.path, append(raw, '\n'), 0o644)
}

func (s *state) processedSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(s.data.Processed))
	for _, p := range s.data.Processed {
		set[p] = struct{}{}
	}
	return set
}

func (s *state) markProcessed(remotePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.Processed {
		if p == remotePath {
			return
		}
	}
	s.data.Processed = append(s.data.Processed, remotePath)
	_ = s.save()
}

func (s *state) addPendingUpload(up pendingUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.PendingUploads = append(s.data.PendingUploads, up)
	_ = s.save()
}

func (s *state) removePendingUpload(remote string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.data.PendingUploads[:0]
	for _, up := range s.data.PendingUploads {
		if up.Remote != remote {
			kept = append(kept, up)
		}
	}
	s.data.PendingUploads = kept
	_ = s.save()
}

func (s *state) pending() []pendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pendingUpload{}, s.data.PendingUploads...)
}

func (s *state) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *state) remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.RemoveIfExists(s.path)
}
