package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix  = "job:"
	fileKeyPrefix = "file:"

	// recordTTL bounds how long finished records linger. Outputs are
	// swept by the janitor after a day; records stay a little longer so
	// clients can still read the terminal status.
	recordTTL = 7 * 24 * time.Hour
)

// RedisStore keeps job and file records as JSON values in Redis. A single
// worker owns each job at a time, so transitions are plain read-modify-write
// guarded by the status rules.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(id uuid.UUID) string  { return jobKeyPrefix + id.String() }
func fileKey(id uuid.UUID) string { return fileKeyPrefix + id.String() }

func (s *RedisStore) setJob(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", j.ID, err)
	}
	if err := s.client.Set(ctx, jobKey(j.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", j.ID, err)
	}
	return nil
}

func (s *RedisStore) CreateJob(ctx context.Context, j *Job) error {
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = StatusPending
	}
	return s.setJob(ctx, j)
}

func (s *RedisStore) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

func (s *RedisStore) transition(ctx context.Context, id uuid.UUID, to Status, mutate func(*Job)) error {
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !canTransition(j.Status, to) {
		return ErrIllegalTransition
	}

	j.Status = to
	j.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(j)
	}
	return s.setJob(ctx, j)
}

func (s *RedisStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusProcessing, nil)
}

func (s *RedisStore) MarkCompleted(ctx context.Context, id uuid.UUID, outputKey string) error {
	return s.transition(ctx, id, StatusCompleted, func(j *Job) {
		j.OutputKey = outputKey
		j.ErrorDetail = ""
	})
}

func (s *RedisStore) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	return s.transition(ctx, id, StatusFailed, func(j *Job) {
		j.ErrorDetail = detail
		j.OutputKey = ""
	})
}

func (s *RedisStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.client.Del(ctx, jobKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) CreateFile(ctx context.Context, f *UploadedFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal file %s: %w", f.ID, err)
	}
	if err := s.client.Set(ctx, fileKey(f.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("store file %s: %w", f.ID, err)
	}
	return nil
}

func (s *RedisStore) GetFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error) {
	data, err := s.client.Get(ctx, fileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load file %s: %w", id, err)
	}

	var f UploadedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}
	return &f, nil
}

func (s *RedisStore) GetFiles(ctx context.Context, ids []uuid.UUID) ([]UploadedFile, error) {
	files := make([]UploadedFile, 0, len(ids))
	for _, id := range ids {
		f, err := s.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, nil
}

func (s *RedisStore) DeleteFile(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.client.Del(ctx, fileKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}
