package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fileworks/fileworks/internal/tool"
)

// PostgresStore keeps job and file records in Postgres. Status transitions
// are compare-and-set updates keyed on the expected current status, so a
// stale writer can never move a job backwards.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS conversion_jobs (
	id           UUID PRIMARY KEY,
	tool         TEXT NOT NULL,
	params       JSONB NOT NULL DEFAULT '{}',
	file_ids     UUID[] NOT NULL DEFAULT '{}',
	submitter    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'PENDING',
	output_key   TEXT NOT NULL DEFAULT '',
	error_detail TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS uploaded_files (
	id            UUID PRIMARY KEY,
	key           TEXT NOT NULL,
	original_name TEXT NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	size          BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversion_jobs_status ON conversion_jobs (status);
`

// Migrate creates the tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, j *Job) error {
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = StatusPending
	}

	params, err := json.Marshal(j.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversion_jobs (id, tool, params, file_ids, submitter, status, output_key, error_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		j.ID, j.Tool.String(), params, j.FileIDs, j.SubmitterID, string(j.Status), j.OutputKey, j.ErrorDetail, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tool, params, file_ids, submitter, status, output_key, error_detail, created_at, updated_at
		FROM conversion_jobs WHERE id = $1`, id)

	var (
		j        Job
		toolName string
		status   string
		params   []byte
	)
	err := row.Scan(&j.ID, &toolName, &params, &j.FileIDs, &j.SubmitterID, &status, &j.OutputKey, &j.ErrorDetail, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	if j.Tool, err = tool.ParseType(toolName); err != nil {
		j.Tool = tool.TypeUnknown
	}
	j.Status = Status(status)
	if err := json.Unmarshal(params, &j.Params); err != nil {
		return nil, fmt.Errorf("decode params for job %s: %w", id, err)
	}
	return &j, nil
}

// transition performs a compare-and-set status update. fromStatuses lists
// the states the update may start from.
func (s *PostgresStore) transition(ctx context.Context, id uuid.UUID, to Status, fromStatuses []string, outputKey, errorDetail string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversion_jobs
		SET status = $2, output_key = $3, error_detail = $4, updated_at = now()
		WHERE id = $1 AND status = ANY($5)`,
		id, string(to), outputKey, errorDetail, fromStatuses,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return ErrIllegalTransition
	}
	return nil
}

func (s *PostgresStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusProcessing, []string{string(StatusPending)}, "", "")
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id uuid.UUID, outputKey string) error {
	return s.transition(ctx, id, StatusCompleted, []string{string(StatusProcessing)}, outputKey, "")
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	return s.transition(ctx, id, StatusFailed, []string{string(StatusPending), string(StatusProcessing)}, "", detail)
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversion_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateFile(ctx context.Context, f *UploadedFile) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO uploaded_files (id, key, original_name, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.Key, f.OriginalName, f.ContentType, f.Size, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file %s: %w", f.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetFile(ctx context.Context, id uuid.UUID) (*UploadedFile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, key, original_name, content_type, size, created_at
		FROM uploaded_files WHERE id = $1`, id)

	var f UploadedFile
	err := row.Scan(&f.ID, &f.Key, &f.OriginalName, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load file %s: %w", id, err)
	}
	return &f, nil
}

func (s *PostgresStore) GetFiles(ctx context.Context, ids []uuid.UUID) ([]UploadedFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, key, original_name, content_type, size, created_at
		FROM uploaded_files WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]UploadedFile, len(ids))
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(&f.ID, &f.Key, &f.OriginalName, &f.ContentType, &f.Size, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}

	// Preserve request order and fail on any missing id.
	files := make([]UploadedFile, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *PostgresStore) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM uploaded_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
