package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fileworks/fileworks/internal/logger"
	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// ConvertExecutor turns a PDF into another document format. Page rendering
// goes through pdftoppm, text recovery through pdftotext; the office formats
// are written as OOXML packages.
type ConvertExecutor struct{}

func NewConvertExecutor() *ConvertExecutor {
	return &ConvertExecutor{}
}

func (e *ConvertExecutor) Execute(ctx context.Context, plan tool.ConvertPDFPlan, ws *processor.Workspace) (*processor.Result, error) {
	inPath := ws.InputPath(plan.Source.Name)

	total, err := pageCount(inPath)
	if err != nil {
		return nil, err
	}

	base := baseName(plan.Source.Name)
	log := logger.FromContext(ctx)
	log.Info("pdf conversion started", "source", plan.Source.Name, "target", string(plan.Target), "pages", total)

	switch plan.Target {
	case tool.DocJPG:
		return e.toJPEG(ctx, ws, inPath, base)
	case tool.DocDOCX:
		return e.toDOCX(ctx, ws, inPath, base, total)
	case tool.DocXLSX:
		return e.toXLSX(ctx, ws, inPath, base, total)
	case tool.DocPPTX:
		return e.toPPTX(ctx, ws, inPath, base)
	default:
		return nil, fmt.Errorf("%w: %s", processor.ErrUnsupportedFormat, plan.Target)
	}
}

// renderPages rasterizes every page to JPEG and returns the image paths in
// page order.
func renderPages(ctx context.Context, ws *processor.Workspace, inPath string) ([]string, error) {
	renderDir := filepath.Join(ws.Dir, "render")
	if err := os.MkdirAll(renderDir, 0o755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}

	prefix := filepath.Join(renderDir, "page")
	if err := runTool(ctx, "pdftoppm", "-jpeg", "-r", "150", inPath, prefix); err != nil {
		return nil, err
	}

	pages, err := filepath.Glob(prefix + "*.jpg")
	if err != nil {
		return nil, fmt.Errorf("collect rendered pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdftoppm produced no pages", processor.ErrProcessingFailed)
	}

	// pdftoppm zero-pads page numbers, so lexicographic order is page order.
	sort.Strings(pages)
	return pages, nil
}

// extractText runs pdftotext for one page. Layout mode preserves column
// spacing for table detection.
func extractText(ctx context.Context, ws *processor.Workspace, inPath string, page int, layout bool) (string, error) {
	outPath := filepath.Join(ws.Dir, fmt.Sprintf("text-%d.txt", page))
	defer func() { _ = os.Remove(outPath) }()

	args := []string{"-f", strconv.Itoa(page), "-l", strconv.Itoa(page)}
	if layout {
		args = append(args, "-layout")
	}
	args = append(args, inPath, outPath)

	if err := runTool(ctx, "pdftotext", args...); err != nil {
		return "", err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return string(data), nil
}

func (e *ConvertExecutor) toJPEG(ctx context.Context, ws *processor.Workspace, inPath, base string) (*processor.Result, error) {
	pages, err := renderPages(ctx, ws, inPath)
	if err != nil {
		return nil, err
	}

	entries := make([]processor.ZipEntry, 0, len(pages))
	for i, path := range pages {
		entries = append(entries, processor.ZipEntry{
			Path: path,
			Name: fmt.Sprintf("page_%d.jpg", i+1),
		})
	}

	archiveName := "converted_" + base + ".zip"
	archivePath := ws.OutputPath(archiveName)
	if err := processor.CreateZip(ctx, archivePath, entries); err != nil {
		return nil, err
	}
	return processor.FinishResult(archivePath, archiveName, "application/zip")
}

func (e *ConvertExecutor) toDOCX(ctx context.Context, ws *processor.Workspace, inPath, base string, total int) (*processor.Result, error) {
	pages := make([][]string, 0, total)
	for page := 1; page <= total; page++ {
		text, err := extractText(ctx, ws, inPath, page, false)
		if err != nil {
			return nil, err
		}
		pages = append(pages, strings.Split(strings.TrimRight(text, "\n\f"), "\n"))
	}

	filename := "converted_" + base + ".docx"
	outPath := ws.OutputPath(filename)
	if err := writeDOCX(outPath, pages); err != nil {
		return nil, fmt.Errorf("%w: docx: %v", processor.ErrProcessingFailed, err)
	}
	return processor.FinishResult(outPath, filename,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func (e *ConvertExecutor) toXLSX(ctx context.Context, ws *processor.Workspace, inPath, base string, total int) (*processor.Result, error) {
	var tables [][][]string
	for page := 1; page <= total; page++ {
		text, err := extractText(ctx, ws, inPath, page, true)
		if err != nil {
			return nil, err
		}
		tables = append(tables, extractTables(text)...)
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if len(tables) == 0 {
		if err := wb.SetCellValue("Sheet1", "A1", "No tables found in the PDF."); err != nil {
			return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
		}
	} else {
		for i, table := range tables {
			sheet := "Table " + strconv.Itoa(i+1)
			if i == 0 {
				if err := wb.SetSheetName("Sheet1", sheet); err != nil {
					return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
				}
			} else if _, err := wb.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
			}
			for r, row := range table {
				cell, err := excelize.CoordinatesToCellName(1, r+1)
				if err != nil {
					return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
				}
				if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
					return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
				}
			}
		}
	}

	filename := "converted_" + base + ".xlsx"
	outPath := ws.OutputPath(filename)
	if err := wb.SaveAs(outPath); err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", processor.ErrProcessingFailed, err)
	}
	return processor.FinishResult(outPath, filename,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (e *ConvertExecutor) toPPTX(ctx context.Context, ws *processor.Workspace, inPath, base string) (*processor.Result, error) {
	pages, err := renderPages(ctx, ws, inPath)
	if err != nil {
		return nil, err
	}

	filename := "converted_" + base + ".pptx"
	outPath := ws.OutputPath(filename)
	if err := writePPTX(outPath, pages); err != nil {
		return nil, fmt.Errorf("%w: pptx: %v", processor.ErrProcessingFailed, err)
	}
	return processor.FinishResult(outPath, filename,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation")
}
