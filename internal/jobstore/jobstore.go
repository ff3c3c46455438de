package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fileworks/fileworks/internal/tool"
)

var (
	ErrNotFound          = errors.New("jobstore: record not found")
	ErrIllegalTransition = errors.New("jobstore: illegal status transition")
)

// Status is the lifecycle state of a conversion job. Transitions are forward
// only: PENDING -> PROCESSING -> COMPLETED or FAILED. Terminal states never
// change again.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition encodes the forward-only lifecycle.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job is the persistent record of one conversion request.
type Job struct {
	ID          uuid.UUID   `json:"id"`
	Tool        tool.Type   `json:"tool_type"`
	Params      tool.Params `json:"params"`
	FileIDs     []uuid.UUID `json:"file_ids"`
	SubmitterID string      `json:"submitter_id,omitempty"`
	Status      Status      `json:"status"`
	OutputKey   string      `json:"output_key,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UploadedFile is the record of one uploaded source file.
type UploadedFile struct {
	ID           uuid.UUID `json:"id"`
	Key          string    `json:"key"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store interface {
	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	// MarkProcessing claims a pending job. Returns ErrIllegalTransition if
	// the job is not PENDING.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	// MarkCompleted commits the successful terminal state with the output
	// location.
	MarkCompleted(ctx context.Context, id uuid.UUID, outputKey string) error
	// MarkFailed commits the failed terminal state with a human-readable
	// cause.
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	DeleteJob(ctx context.Context, id uuid.UUID) error

	CreateFile(ctx context.Context, f *UploadedFile) error
	GetFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error)
	GetFiles(ctx context.Context, ids []uuid.UUID) ([]UploadedFile, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
}
