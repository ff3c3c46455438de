package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fileworks/fileworks/internal/jobstore"
	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/metrics"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/processor/image"
	"github.com/fileworks/fileworks/internal/processor/pdf"
	"github.com/fileworks/fileworks/internal/storage"
	"github.com/fileworks/fileworks/internal/tool"
)

// Executors holds one executor per tool. The set mirrors the sealed plan
// variants, so execute can switch exhaustively.
type Executors struct {
	ImageResize   *image.ResizeExecutor
	ImageCompress *image.CompressExecutor
	ImageConvert  *image.ConvertExecutor
	PDFConvert    *pdf.ConvertExecutor
	PDFCompress   *pdf.CompressExecutor
	PDFMerge      *pdf.MergeExecutor
	PDFSplit      *pdf.SplitExecutor
}

// DefaultExecutors wires the production executor set. The quantizer is
// injected so PNG compression can run without pngquant installed.
func DefaultExecutors(q image.Quantizer) Executors {
	return Executors{
		ImageResize:   image.NewResizeExecutor(),
		ImageCompress: image.NewCompressExecutor(q),
		ImageConvert:  image.NewConvertExecutor(),
		PDFConvert:    pdf.NewConvertExecutor(),
		PDFCompress:   pdf.NewCompressExecutor(),
		PDFMerge:      pdf.NewMergeExecutor(),
		PDFSplit:      pdf.NewSplitExecutor(),
	}
}

// Runner drives one conversion job from claim to terminal state. Infra
// failures (store or storage unreachable) bubble up so the queue retries the
// delivery; anything wrong with the job itself marks it FAILED and is never
// retried.
type Runner struct {
	Store   jobstore.Store
	Storage storage.Storage
	Execs   Executors
	TempDir string
	Timeout time.Duration
}

func New(store jobstore.Store, st storage.Storage, execs Executors, tempDir string, timeout time.Duration) *Runner {
	return &Runner{
		Store:   store,
		Storage: st,
		Execs:   execs,
		TempDir: tempDir,
		Timeout: timeout,
	}
}

// Run processes the job with the given id.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := r.Store.GetJob(ctx, jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		// The record was deleted after enqueue, nothing left to do.
		logger.FromContext(ctx).Warn("job record gone, dropping delivery", "job_id", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	ctx = logger.WithJob(ctx, job.ID.String(), job.Tool.String())
	log := logger.FromContext(ctx)

	if job.Status.Terminal() {
		log.Info("job already terminal, skipping", "status", string(job.Status))
		return nil
	}

	if err := r.Store.MarkProcessing(ctx, job.ID); err != nil {
		if !errors.Is(err, jobstore.ErrIllegalTransition) {
			return fmt.Errorf("claim job %s: %w", job.ID, err)
		}
		// Already PROCESSING: a previous attempt crashed mid-flight and the
		// delivery came back. Re-read and carry on unless it went terminal.
		job, err = r.Store.GetJob(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("reload job %s: %w", jobID, err)
		}
		if job.Status != jobstore.StatusProcessing {
			log.Info("job claimed elsewhere, skipping", "status", string(job.Status))
			return nil
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	return r.process(ctx, job)
}

func (r *Runner) process(ctx context.Context, job *jobstore.Job) (err error) {
	log := logger.FromContext(ctx)
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while processing job", "panic", rec)
			err = r.fail(ctx, job, "internal processing error")
		}
	}()

	files, ferr := r.Store.GetFiles(ctx, job.FileIDs)
	if errors.Is(ferr, jobstore.ErrNotFound) {
		return r.fail(ctx, job, "uploaded file records are missing")
	}
	if ferr != nil {
		return fmt.Errorf("load files for job %s: %w", job.ID, ferr)
	}

	inputs := make([]tool.Input, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, tool.Input{FileID: f.ID, Key: f.Key, Name: f.OriginalName})
	}

	plan, perr := tool.BuildPlan(job.Tool, job.Params, inputs)
	if perr != nil {
		return r.fail(ctx, job, perr.Error())
	}

	ws, werr := processor.NewWorkspace(r.TempDir, job.ID)
	if werr != nil {
		return werr
	}
	defer ws.Cleanup(ctx)

	fetchStart := time.Now()
	for _, in := range inputs {
		if _, ferr := ws.Fetch(ctx, r.Storage, in.Key, in.Name); ferr != nil {
			if errors.Is(ferr, storage.ErrNotFound) {
				return r.fail(ctx, job, fmt.Sprintf("source file %s is missing from storage", in.Name))
			}
			return fmt.Errorf("fetch %s: %w", in.Key, ferr)
		}
	}
	metrics.RecordJobStage(job.Tool.String(), "fetch", time.Since(fetchStart).Seconds())

	processStart := time.Now()
	res, xerr := r.execute(ctx, plan, ws)
	if xerr != nil {
		if ctx.Err() != nil {
			return r.fail(ctx, job, "processing timed out")
		}
		return r.fail(ctx, job, xerr.Error())
	}
	metrics.RecordJobStage(job.Tool.String(), "process", time.Since(processStart).Seconds())

	uploadStart := time.Now()
	key := storage.OutputKey(job.ID.String(), res.Filename)
	artifact, oerr := os.Open(res.Path)
	if oerr != nil {
		return fmt.Errorf("open artifact %s: %w", res.Path, oerr)
	}
	uerr := r.Storage.Upload(ctx, key, artifact, res.ContentType, res.Size)
	_ = artifact.Close()
	if uerr != nil {
		return fmt.Errorf("upload artifact %s: %w", key, uerr)
	}
	metrics.RecordJobStage(job.Tool.String(), "upload", time.Since(uploadStart).Seconds())

	if cerr := r.Store.MarkCompleted(ctx, job.ID, key); cerr != nil {
		if errors.Is(cerr, jobstore.ErrIllegalTransition) {
			log.Warn("job reached terminal state elsewhere, dropping result")
			return nil
		}
		return fmt.Errorf("complete job %s: %w", job.ID, cerr)
	}

	metrics.RecordJobProcessed(job.Tool.String(), "completed", time.Since(started).Seconds())
	log.Info("job completed", "output_key", key, "size", res.Size, "duration", time.Since(started))
	return nil
}

// fail commits the FAILED terminal state. The detail is what the status
// endpoint will show, so it carries the cause without internals.
func (r *Runner) fail(ctx context.Context, job *jobstore.Job, detail string) error {
	log := logger.FromContext(ctx)

	// The terminal write must land even when the job context timed out.
	ctx = context.WithoutCancel(ctx)

	if err := r.Store.MarkFailed(ctx, job.ID, detail); err != nil {
		if errors.Is(err, jobstore.ErrIllegalTransition) {
			log.Warn("job already terminal, dropping failure", "detail", detail)
			return nil
		}
		return fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}

	metrics.RecordJobProcessed(job.Tool.String(), "failed", 0)
	log.Info("job failed", "detail", detail)
	return nil
}

func (r *Runner) execute(ctx context.Context, plan tool.Plan, ws *processor.Workspace) (*processor.Result, error) {
	switch p := plan.(type) {
	case tool.ResizePlan:
		return r.Execs.ImageResize.Execute(ctx, p, ws)
	case tool.CompressImagePlan:
		return r.Execs.ImageCompress.Execute(ctx, p, ws)
	case tool.ConvertImagePlan:
		return r.Execs.ImageConvert.Execute(ctx, p, ws)
	case tool.ConvertPDFPlan:
		return r.Execs.PDFConvert.Execute(ctx, p, ws)
	case tool.CompressPDFPlan:
		return r.Execs.PDFCompress.Execute(ctx, p, ws)
	case tool.MergePlan:
		return r.Execs.PDFMerge.Execute(ctx, p, ws)
	case tool.SplitPlan:
		return r.Execs.PDFSplit.Execute(ctx, p, ws)
	default:
		return nil, fmt.Errorf("no executor for tool %s", plan.Tool())
	}
}
