package pdf

import (
	"context"
	"fmt"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// CompressExecutor shrinks PDFs with Ghostscript. One input yields the
// compressed document directly; several inputs are compressed individually
// and zipped.
type CompressExecutor struct{}

func NewCompressExecutor() *CompressExecutor {
	return &CompressExecutor{}
}

// gsPreset maps the requested level to a Ghostscript quality preset. Higher
// compression means more aggressive downsampling.
func gsPreset(level tool.CompressionLevel) string {
	switch level {
	case tool.CompressionHigh:
		return "/screen"
	case tool.CompressionLow:
		return "/printer"
	default:
		return "/ebook"
	}
}

func gsArgs(preset, inPath, outPath string) []string {
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=" + preset,
		"-dNOPAUSE",
		"-dBATCH",
		"-dQUIET",
		"-sOutputFile=" + outPath,
		inPath,
	}
}

func (e *CompressExecutor) Execute(ctx context.Context, plan tool.CompressPDFPlan, ws *processor.Workspace) (*processor.Result, error) {
	log := logger.FromContext(ctx)
	preset := gsPreset(plan.Level)

	var entries []processor.ZipEntry
	for _, source := range plan.Sources {
		inPath := ws.InputPath(source.Name)
		if _, err := pageCount(inPath); err != nil {
			return nil, fmt.Errorf("%s: %w", source.Name, err)
		}

		partName := "compressed_" + baseName(source.Name) + ".pdf"
		outPath := ws.OutputPath(partName)
		if err := runTool(ctx, "gs", gsArgs(preset, inPath, outPath)...); err != nil {
			return nil, fmt.Errorf("%s: %w", source.Name, err)
		}
		entries = append(entries, processor.ZipEntry{Path: outPath, Name: partName})
	}

	log.Info("pdf compression finished", "files", len(entries), "preset", preset)

	if len(entries) == 1 {
		return processor.FinishResult(entries[0].Path, entries[0].Name, "application/pdf")
	}

	const archiveName = "compressed_files.zip"
	archivePath := ws.OutputPath(archiveName)
	if err := processor.CreateZip(ctx, archivePath, entries); err != nil {
		return nil, err
	}
	return processor.FinishResult(archivePath, archiveName, "application/zip")
}
