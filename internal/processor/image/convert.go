package image

import (
	"context"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// ConvertExecutor re-encodes a single image into the planned target format.
// The alpha policy lives in encodeToFile: transparency survives into
// alpha-capable targets and is composited onto white otherwise.
type ConvertExecutor struct{}

func NewConvertExecutor() *ConvertExecutor {
	return &ConvertExecutor{}
}

func (e *ConvertExecutor) Execute(ctx context.Context, plan tool.ConvertImagePlan, ws *processor.Workspace) (*processor.Result, error) {
	img, sourceFormat, err := decodeFile(ws.InputPath(plan.Source.Name))
	if err != nil {
		return nil, err
	}

	filename := outputName("converted", plan.Source.Name, plan.Target.Ext())
	outPath := ws.OutputPath(filename)
	if err := encodeToFile(ctx, img, plan.Target, plan.Quality, outPath); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("image converted",
		"source", plan.Source.Name,
		"from", string(sourceFormat),
		"to", string(plan.Target),
	)
	return processor.FinishResult(outPath, filename, contentTypeFor(plan.Target))
}
