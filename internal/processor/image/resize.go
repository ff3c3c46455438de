package image

import (
	"context"
	"math"

	"github.com/disintegration/imaging"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// ResizeExecutor scales a single image to the planned dimensions and
// re-encodes it in its source format.
type ResizeExecutor struct{}

func NewResizeExecutor() *ResizeExecutor {
	return &ResizeExecutor{}
}

func (e *ResizeExecutor) Execute(ctx context.Context, plan tool.ResizePlan, ws *processor.Workspace) (*processor.Result, error) {
	img, format, err := decodeFile(ws.InputPath(plan.Source.Name))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := deriveDimensions(bounds.Dx(), bounds.Dy(), plan.Width, plan.Height)

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	filename := outputName("resized", plan.Source.Name, format.Ext())
	outPath := ws.OutputPath(filename)
	if err := encodeToFile(ctx, resized, format, plan.Quality, outPath); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("image resized",
		"source", plan.Source.Name,
		"width", width,
		"height", height,
		"format", string(format),
	)
	return processor.FinishResult(outPath, filename, contentTypeFor(format))
}

// deriveDimensions fills a missing dimension from the source aspect ratio.
// When both are given the output uses them exactly.
func deriveDimensions(origW, origH, width, height int) (int, int) {
	switch {
	case width == 0:
		width = int(math.Round(float64(origW) * float64(height) / float64(origH)))
	case height == 0:
		height = int(math.Round(float64(origH) * float64(width) / float64(origW)))
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
