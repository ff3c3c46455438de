package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/storage"
)

// Workspace is the per-job staging area on local disk. Sources are fetched
// into in/, executors write artifacts into out/, and the whole tree is
// removed when the job finishes either way.
type Workspace struct {
	JobID  uuid.UUID
	Dir    string
	InDir  string
	OutDir string
}

func NewWorkspace(tempDir string, jobID uuid.UUID) (*Workspace, error) {
	dir, err := os.MkdirTemp(tempDir, "job-"+jobID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &Workspace{
		JobID:  jobID,
		Dir:    dir,
		InDir:  filepath.Join(dir, "in"),
		OutDir: filepath.Join(dir, "out"),
	}
	for _, sub := range []string{ws.InDir, ws.OutDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("create workspace dir: %w", err)
		}
	}
	return ws, nil
}

// InputPath returns the staged path for a source file name.
func (w *Workspace) InputPath(name string) string {
	return filepath.Join(w.InDir, filepath.Base(name))
}

// OutputPath returns the path for an artifact file name.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.OutDir, filepath.Base(name))
}

// Fetch downloads a stored object into in/ under the given name.
func (w *Workspace) Fetch(ctx context.Context, store storage.Storage, key, name string) (string, error) {
	reader, err := store.Download(ctx, key)
	if err != nil {
		return "", err
	}
	defer func() { _ = reader.Close() }()

	path := w.InputPath(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}

	_, err = io.Copy(f, reader)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes the workspace tree. Failures are logged, never escalated.
func (w *Workspace) Cleanup(ctx context.Context) {
	if err := os.RemoveAll(w.Dir); err != nil {
		logger.FromContext(ctx).Warn("workspace cleanup failed", "dir", w.Dir, "error", err)
	}
}

// FinishResult stats an artifact and fills in the Result bookkeeping.
func FinishResult(path, filename, contentType string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact %s: %w", filename, err)
	}
	return &Result{
		Path:        path,
		Filename:    filename,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}
