package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests. It enforces the same
// transition rules as the real backends.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]Job
	files map[uuid.UUID]UploadedFile
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[uuid.UUID]Job),
		files: make(map[uuid.UUID]UploadedFile),
	}
}

func (s *MemoryStore) CreateJob(ctx context.Context, j *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = StatusPending
	}
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := j
	return &copied, nil
}

func (s *MemoryStore) transition(id uuid.UUID, to Status, mutate func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !canTransition(j.Status, to) {
		return ErrIllegalTransition
	}

	j.Status = to
	j.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(&j)
	}
	s.jobs[id] = j
	return nil
}

func (s *MemoryStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.transition(id, StatusProcessing, nil)
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, id uuid.UUID, outputKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.transition(id, StatusCompleted, func(j *Job) {
		j.OutputKey = outputKey
		j.ErrorDetail = ""
	})
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.transition(id, StatusFailed, func(j *Job) {
		j.ErrorDetail = detail
		j.OutputKey = ""
	})
}

func (s *MemoryStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// JobCount reports how many job records exist. Test helper.
func (s *MemoryStore) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *MemoryStore) CreateFile(ctx context.Context, f *UploadedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	s.files[f.ID] = *f
	return nil
}

func (s *MemoryStore) GetFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := f
	return &copied, nil
}

func (s *MemoryStore) GetFiles(ctx context.Context, ids []uuid.UUID) ([]UploadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]UploadedFile, 0, len(ids))
	for _, id := range ids {
		f, ok := s.files[id]
		if !ok {
			return nil, ErrNotFound
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}
