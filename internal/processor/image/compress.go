package image

import (
	"context"
	"image/png"
	"os"

	"github.com/disintegration/imaging"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// CompressExecutor shrinks a single image in place, keeping its format.
// PNGs prefer the lossy quantizer when one is installed; every other format
// is re-encoded at the planned quality.
type CompressExecutor struct {
	quantizer Quantizer
}

func NewCompressExecutor(q Quantizer) *CompressExecutor {
	return &CompressExecutor{quantizer: q}
}

func (e *CompressExecutor) Execute(ctx context.Context, plan tool.CompressImagePlan, ws *processor.Workspace) (*processor.Result, error) {
	sourcePath := ws.InputPath(plan.Source.Name)

	img, format, err := decodeFile(sourcePath)
	if err != nil {
		return nil, err
	}

	filename := outputName("compressed", plan.Source.Name, format.Ext())
	outPath := ws.OutputPath(filename)

	if format == tool.FormatPNG {
		if err := e.compressPNG(ctx, sourcePath, outPath); err != nil {
			return nil, err
		}
	} else if err := encodeToFile(ctx, img, format, plan.Quality, outPath); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("image compressed",
		"source", plan.Source.Name,
		"format", string(format),
		"quality", plan.Quality,
	)
	return processor.FinishResult(outPath, filename, contentTypeFor(format))
}

// compressPNG quantizes when possible and otherwise re-encodes losslessly at
// the strongest compression level. A broken or missing quantizer never fails
// the job.
func (e *CompressExecutor) compressPNG(ctx context.Context, sourcePath, outPath string) error {
	log := logger.FromContext(ctx)

	if e.quantizer != nil && e.quantizer.Available() {
		if err := e.quantizer.Quantize(ctx, sourcePath, outPath); err == nil {
			return nil
		} else {
			log.Warn("png quantizer failed, falling back to lossless encode", "error", err)
		}
	} else {
		log.Debug("png quantizer unavailable, using lossless encode")
	}

	img, err := imaging.Open(sourcePath)
	if err != nil {
		return processor.ErrCorruptedFile
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	err = encoder.Encode(out, img)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}
