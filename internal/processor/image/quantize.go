package image

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/fileworks/fileworks/internal/processor"
)

// Quantizer is an optional lossy PNG optimizer. Compression works without
// one; the caller falls back to lossless encoding when Available reports
// false or Quantize fails.
type Quantizer interface {
	Available() bool
	Quantize(ctx context.Context, inPath, outPath string) error
}

// PngquantQuantizer shells out to pngquant with a fixed quality range.
type PngquantQuantizer struct {
	QualityRange string
}

var _ Quantizer = (*PngquantQuantizer)(nil)

func NewPngquantQuantizer() *PngquantQuantizer {
	return &PngquantQuantizer{QualityRange: "60-85"}
}

func (q *PngquantQuantizer) Available() bool {
	_, err := exec.LookPath("pngquant")
	return err == nil
}

func (q *PngquantQuantizer) Quantize(ctx context.Context, inPath, outPath string) error {
	args := []string{
		"--quality", q.QualityRange,
		"--force",
		"--output", outPath,
		inPath,
	}

	cmd := exec.CommandContext(ctx, "pngquant", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("%w: pngquant: %v: %s", processor.ErrExternalTool, err, stderr.String())
	}
	return nil
}
