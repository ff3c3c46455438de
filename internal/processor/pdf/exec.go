package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fileworks/fileworks/internal/processor"
)

// runTool executes an external command and folds stderr into the error so
// job failure details carry the tool's own diagnostics.
func runTool(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s is not installed", processor.ErrExternalTool, name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", processor.ErrExternalTool, name, detail)
	}
	return nil
}

// pageCount reads the page count, mapping parse failures to the corrupted
// file sentinel.
func pageCount(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return 0, processor.ErrSourceMissing
		}
		return 0, err
	}

	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}
	return n, nil
}

// baseName strips the directory and extension from a source file name.
func baseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
