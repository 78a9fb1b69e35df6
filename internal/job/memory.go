package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

// MemoryStore keeps job records for the orchestrator process lifetime.
// Contention is per transition window only, so one RWMutex is enough.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Put(ctx context.Context, j *Job) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("%w: job %s already exists", apperr.ErrInvalidArgument, j.ID)
	}
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.Metadata == nil {
		j.Metadata = make(map[string]any)
	}
	s.jobs[j.ID] = j.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
	}
	return j.Clone(), nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, userID string) ([]*Job, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Job
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, j.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkProcessing(ctx context.Context, id string) error {
	_ = ctx
	return s.transition(id, StatusProcessing, "", nil)
}

func (s *MemoryStore) Complete(ctx context.Context, id string, outputPath string, meta map[string]any) error {
	_ = ctx
	return s.transition(id, StatusCompleted, outputPath, meta)
}

func (s *MemoryStore) Fail(ctx context.Context, id string, errMsg string) error {
	_ = ctx
	return s.transition(id, StatusFailed, "", map[string]any{MetaError: errMsg})
}

// transition swaps status, metadata and output path atomically under the
// write lock so polling readers never observe a half-applied update.
func (s *MemoryStore) transition(id string, next Status, outputPath string, meta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
	}
	if err := CheckTransition(j.Status, next); err != nil {
		return err
	}

	j.Status = next
	if outputPath != "" {
		j.OutputAudioPath = outputPath
	}
	for k, v := range meta {
		j.Metadata[k] = v
	}
	j.UpdatedAt = time.Now()
	return nil
}

// CheckTransition enforces the monotone pending -> processing -> terminal
// order shared by every Store implementation.
func CheckTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: job already %s", apperr.ErrInvalidState, from)
	}
	if to == StatusCompleted && from != StatusProcessing {
		return fmt.Errorf("%w: cannot complete a %s job", apperr.ErrInvalidState, from)
	}
	if to.rank() <= from.rank() {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidState, from, to)
	}
	return nil
}
