package pdf

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// SplitExecutor extracts each planned page interval into its own document
// and delivers the set as a single archive.
type SplitExecutor struct{}

func NewSplitExecutor() *SplitExecutor {
	return &SplitExecutor{}
}

// partName follows "<base>_page_N.pdf" for single pages and
// "<base>_pages_N-M.pdf" for intervals.
func partName(base string, r tool.PageRange) string {
	if r.Single() {
		return base + "_page_" + strconv.Itoa(r.Start) + ".pdf"
	}
	return fmt.Sprintf("%s_pages_%d-%d.pdf", base, r.Start, r.End)
}

func pageSelection(r tool.PageRange) []string {
	if r.Single() {
		return []string{strconv.Itoa(r.Start)}
	}
	return []string{fmt.Sprintf("%d-%d", r.Start, r.End)}
}

func (e *SplitExecutor) Execute(ctx context.Context, plan tool.SplitPlan, ws *processor.Workspace) (*processor.Result, error) {
	inPath := ws.InputPath(plan.Source.Name)

	total, err := pageCount(inPath)
	if err != nil {
		return nil, err
	}

	// Validate every interval before writing anything: one bad range fails
	// the whole job with no partial parts.
	for _, r := range plan.Ranges {
		if r.End > total {
			return nil, fmt.Errorf("%w: pages %d-%d requested, document has %d", processor.ErrPageOutOfBounds, r.Start, r.End, total)
		}
	}

	base := baseName(plan.Source.Name)
	var entries []processor.ZipEntry
	for _, r := range plan.Ranges {
		name := partName(base, r)
		outPath := ws.OutputPath(name)
		if err := api.CollectFile(inPath, outPath, pageSelection(r), nil); err != nil {
			return nil, fmt.Errorf("%w: extract pages %d-%d: %v", processor.ErrProcessingFailed, r.Start, r.End, err)
		}
		entries = append(entries, processor.ZipEntry{Path: outPath, Name: name})
	}

	archiveName := "split_" + base + ".zip"
	archivePath := ws.OutputPath(archiveName)
	if err := processor.CreateZip(ctx, archivePath, entries); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("pdf split", "parts", len(entries), "pages", total)
	return processor.FinishResult(archivePath, archiveName, "application/zip")
}
