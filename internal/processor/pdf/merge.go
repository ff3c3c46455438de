package pdf

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// MergeExecutor concatenates the planned sources, in order, into one
// document.
type MergeExecutor struct{}

func NewMergeExecutor() *MergeExecutor {
	return &MergeExecutor{}
}

const mergedName = "merged_document.pdf"

func (e *MergeExecutor) Execute(ctx context.Context, plan tool.MergePlan, ws *processor.Workspace) (*processor.Result, error) {
	log := logger.FromContext(ctx)

	for _, name := range plan.Skipped {
		log.Warn("merge order names a file that was not uploaded, skipping", "name", name)
	}

	paths := make([]string, 0, len(plan.Sources))
	for _, source := range plan.Sources {
		path := ws.InputPath(source.Name)
		if _, err := pageCount(path); err != nil {
			return nil, fmt.Errorf("%s: %w", source.Name, err)
		}
		paths = append(paths, path)
	}

	outPath := ws.OutputPath(mergedName)
	if err := api.MergeCreateFile(paths, outPath, false, nil); err != nil {
		return nil, fmt.Errorf("%w: merge: %v", processor.ErrProcessingFailed, err)
	}

	log.Info("pdfs merged", "count", len(paths))
	return processor.FinishResult(outPath, mergedName, "application/pdf")
}
