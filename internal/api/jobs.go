package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fileworks/fileworks/internal/apperror"
	"github.com/fileworks/fileworks/internal/jobstore"
	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/metrics"
	"github.com/fileworks/fileworks/internal/storage"
	"github.com/fileworks/fileworks/internal/tool"
	"github.com/fileworks/fileworks/internal/worker"
)

type jobResponse struct {
	ID          string      `json:"id"`
	ToolType    string      `json:"tool_type"`
	Status      string      `json:"status"`
	Params      tool.Params `json:"params"`
	OutputURL   string      `json:"output_url,omitempty"`
	ErrorDetail string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (s *Server) jobResponse(j *jobstore.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID.String(),
		ToolType:    j.Tool.String(),
		Status:      string(j.Status),
		Params:      j.Params,
		ErrorDetail: j.ErrorDetail,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Status == jobstore.StatusCompleted && j.OutputKey != "" {
		resp.OutputURL = strings.TrimSuffix(s.BaseURL, "/") + "/files/" + j.OutputKey
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".gif": true, ".bmp": true, ".tiff": true, ".tif": true,
}

// SubmitImageJob handles POST /api/v1/jobs/image.
func (s *Server) SubmitImageJob(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, true)
}

// SubmitPDFJob handles POST /api/v1/jobs/pdf.
func (s *Server) SubmitPDFJob(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, false)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, imageFamily bool) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apperror.WriteJSON(w, r, apperror.ErrFileTooLarge)
			return
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}

	toolType, err := tool.ParseType(r.FormValue("tool_type"))
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
			map[string]string{"tool_type": err.Error()}))
		return
	}
	if toolType.IsImage() != imageFamily {
		apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
			map[string]string{"tool_type": fmt.Sprintf("%s is not valid for this endpoint", toolType)}))
		return
	}

	params, verr := parseParams(r)
	if verr != nil {
		apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
			map[string]string{verr.Field: verr.Reason}))
		return
	}

	uploads := formFiles(r)
	if len(uploads) == 0 {
		apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
			map[string]string{"file": "no files provided for this operation"}))
		return
	}
	if !toolType.MultiInput() && len(uploads) > 1 {
		apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
			map[string]string{"file": "this tool accepts a single file"}))
		return
	}
	for _, fh := range uploads {
		if !allowedUpload(fh.Filename, imageFamily) {
			apperror.WriteJSON(w, r, apperror.ErrInvalidFileType)
			return
		}
	}

	// Validate before any storage I/O so bad requests cost nothing.
	inputs := make([]tool.Input, 0, len(uploads))
	for _, fh := range uploads {
		fileID := uuid.New()
		inputs = append(inputs, tool.Input{
			FileID: fileID,
			Key:    storage.UploadKey(fileID.String(), filepath.Base(fh.Filename)),
			Name:   filepath.Base(fh.Filename),
		})
	}
	if _, err := tool.BuildPlan(toolType, params, inputs); err != nil {
		var v *tool.ValidationError
		if errors.As(err, &v) {
			apperror.WriteJSON(w, r, apperror.WithDetails(apperror.ErrBadRequest,
				map[string]string{v.Field: v.Reason}))
			return
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}

	fileIDs := make([]uuid.UUID, 0, len(uploads))
	for i, fh := range uploads {
		if err := s.storeUpload(r, fh, inputs[i]); err != nil {
			metrics.RecordFileUpload("error", 0)
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		metrics.RecordFileUpload("success", fh.Size)
		fileIDs = append(fileIDs, inputs[i].FileID)
	}

	job := &jobstore.Job{
		ID:          uuid.New(),
		Tool:        toolType,
		Params:      params,
		FileIDs:     fileIDs,
		SubmitterID: SubmitterID(ctx),
		Status:      jobstore.StatusPending,
	}
	if err := s.Store.CreateJob(ctx, job); err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	if _, err := worker.EnqueueProcess(s.Broker, job.ID); err != nil {
		// No delivery means no worker will ever move this job forward, so
		// the record must not survive as PENDING. The uploads themselves are
		// left to the retention janitor.
		if derr := s.Store.DeleteJob(ctx, job.ID); derr != nil {
			log.Error("orphaned job record could not be removed", "job_id", job.ID, "error", derr)
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrServiceUnavailable))
		return
	}
	metrics.RecordJobEnqueued(toolType.String())

	s.Quota.Consume(ctx)

	log.Info("job submitted", "job_id", job.ID, "tool", toolType.String(), "files", len(fileIDs))
	writeJSON(w, http.StatusAccepted, s.jobResponse(job))
}

// formFiles collects uploads from the multi-file "files" field, falling back
// to the single "file" field.
func formFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if fhs := r.MultipartForm.File["files"]; len(fhs) > 0 {
		return fhs
	}
	return r.MultipartForm.File["file"]
}

func allowedUpload(filename string, imageFamily bool) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if imageFamily {
		return imageExtensions[ext]
	}
	return ext == ".pdf"
}

func (s *Server) storeUpload(r *http.Request, fh *multipart.FileHeader, in tool.Input) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.Storage.Upload(r.Context(), in.Key, f, contentType, fh.Size); err != nil {
		return fmt.Errorf("store upload %s: %w", fh.Filename, err)
	}

	return s.Store.CreateFile(r.Context(), &jobstore.UploadedFile{
		ID:           in.FileID,
		Key:          in.Key,
		OriginalName: in.Name,
		ContentType:  contentType,
		Size:         fh.Size,
	})
}

// parseParams lifts the flat form fields into the params bag. merge_order
// arrives as a JSON-encoded array of filenames.
func parseParams(r *http.Request) (tool.Params, *tool.ValidationError) {
	var p tool.Params

	for _, field := range []struct {
		name string
		dst  **int
	}{
		{"quality", &p.Quality},
		{"width", &p.Width},
		{"height", &p.Height},
	} {
		raw := r.FormValue(field.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return tool.Params{}, &tool.ValidationError{Field: field.name, Reason: "must be an integer"}
		}
		*field.dst = &n
	}

	p.TargetFormat = r.FormValue("target_format")
	p.CompressionLevel = r.FormValue("compression_level")
	p.PageRanges = r.FormValue("page_ranges")

	if raw := r.FormValue("merge_order"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.MergeOrder); err != nil {
			return tool.Params{}, &tool.ValidationError{Field: "merge_order", Reason: "must be a JSON array of filenames"}
		}
	}

	return p, nil
}

// GetJob handles GET /api/v1/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromPath(r)
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.jobResponse(job))
}

// DownloadJob handles GET /api/v1/jobs/{id}/download. Only COMPLETED jobs
// have anything to stream.
func (s *Server) DownloadJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromPath(r)
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	if job.Status != jobstore.StatusCompleted {
		apperror.WriteJSON(w, r, apperror.ErrNotFound)
		return
	}

	prefix := "processed/" + job.ID.String() + "/"
	if !strings.HasPrefix(job.OutputKey, prefix) {
		apperror.WriteJSON(w, r, apperror.WrapWithMessage(
			fmt.Errorf("job %s has malformed output key %q", job.ID, job.OutputKey),
			apperror.ErrInternal.Code, apperror.ErrInternal.Message, http.StatusInternalServerError))
		return
	}
	filename := strings.TrimPrefix(job.OutputKey, prefix)

	reader, err := s.Storage.Download(r.Context(), job.OutputKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			apperror.WriteJSON(w, r, apperror.ErrNotFound)
			return
		}
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}
	defer func() { _ = reader.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, reader); err != nil {
		logger.FromContext(r.Context()).Error("download stream interrupted", "job_id", job.ID, "error", err)
	}
}

// DeleteJob handles DELETE /api/v1/jobs/{id}. Destroying the record cascades
// physical deletion of the output and every input file.
func (s *Server) DeleteJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	job, err := s.jobFromPath(r)
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	if job.OutputKey != "" {
		if err := s.Storage.Delete(ctx, job.OutputKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn("output deletion failed", "key", job.OutputKey, "error", err)
		}
	}

	for _, fileID := range job.FileIDs {
		file, err := s.Store.GetFile(ctx, fileID)
		if errors.Is(err, jobstore.ErrNotFound) {
			continue
		}
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		if err := s.Storage.Delete(ctx, file.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn("input deletion failed", "key", file.Key, "error", err)
		}
		if err := s.Store.DeleteFile(ctx, fileID); err != nil && !errors.Is(err, jobstore.ErrNotFound) {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		metrics.RecordFileDeletion("success")
	}

	if err := s.Store.DeleteJob(ctx, job.ID); err != nil && !errors.Is(err, jobstore.ErrNotFound) {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	log.Info("job deleted", "job_id", job.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) jobFromPath(r *http.Request) (*jobstore.Job, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, apperror.ErrNotFound
	}

	job, err := s.Store.GetJob(r.Context(), id)
	if errors.Is(err, jobstore.ErrNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrInternal)
	}
	return job, nil
}
