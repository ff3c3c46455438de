package image

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/png"
	"os"
	"os/exec"
	"strconv"

	"github.com/fileworks/fileworks/internal/processor"
)

func cwebpAvailable() bool {
	_, err := exec.LookPath("cwebp")
	return err == nil
}

// encodeWebP writes img as WEBP via the cwebp binary. The Go ecosystem only
// decodes WEBP, so a missing binary fails the encode.
func encodeWebP(ctx context.Context, img stdimage.Image, quality int, outPath string) error {
	if !cwebpAvailable() {
		return fmt.Errorf("%w: cwebp is not installed", processor.ErrExternalTool)
	}

	// cwebp reads PNG, so stage the pixels losslessly first.
	staged, err := os.CreateTemp("", "cwebp-in-*.png")
	if err != nil {
		return fmt.Errorf("stage webp input: %w", err)
	}
	stagedPath := staged.Name()
	defer func() { _ = os.Remove(stagedPath) }()

	err = png.Encode(staged, img)
	if cerr := staged.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("stage webp input: %w", err)
	}

	args := []string{
		"-q", strconv.Itoa(quality),
		stagedPath,
		"-o", outPath,
	}

	cmd := exec.CommandContext(ctx, "cwebp", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("%w: cwebp: %v: %s", processor.ErrExternalTool, err, stderr.String())
	}
	return nil
}
