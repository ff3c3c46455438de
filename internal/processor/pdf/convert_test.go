package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

func TestConvertToJPEG(t *testing.T) {
	requireTool(t, "pdftoppm")

	ws := newTestWorkspace(t)
	stagePDF(t, ws, "slides.pdf", 3)

	plan := tool.ConvertPDFPlan{Source: tool.Input{Name: "slides.pdf"}, Target: tool.DocJPG}
	res, err := NewConvertExecutor().Execute(context.Background(), plan, ws)
	require.NoError(t, err)

	assert.Equal(t, "converted_slides.zip", res.Filename)
	assert.Equal(t, "application/zip", res.ContentType)
	assert.Equal(t, []string{"page_1.jpg", "page_2.jpg", "page_3.jpg"}, zipEntryNames(t, res.Path))
}

func TestConvertToDOCX(t *testing.T) {
	requireTool(t, "pdftotext")

	ws := newTestWorkspace(t)
	stagePDF(t, ws, "letter.pdf", 2)

	plan := tool.ConvertPDFPlan{Source: tool.Input{Name: "letter.pdf"}, Target: tool.DocDOCX}
	res, err := NewConvertExecutor().Execute(context.Background(), plan, ws)
	require.NoError(t, err)

	assert.Equal(t, "converted_letter.docx", res.Filename)
	assert.Contains(t, zipEntryNames(t, res.Path), "word/document.xml")
}

func TestConvertToXLSX(t *testing.T) {
	requireTool(t, "pdftotext")

	ws := newTestWorkspace(t)
	stagePDF(t, ws, "report.pdf", 1)

	plan := tool.ConvertPDFPlan{Source: tool.Input{Name: "report.pdf"}, Target: tool.DocXLSX}
	res, err := NewConvertExecutor().Execute(context.Background(), plan, ws)
	require.NoError(t, err)

	assert.Equal(t, "converted_report.xlsx", res.Filename)

	// Pages with no tabular text land on the placeholder sheet.
	wb, err := excelize.OpenFile(res.Path)
	require.NoError(t, err)
	defer wb.Close()
	val, err := wb.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "No tables found in the PDF.", val)
}

func TestConvertToPPTX(t *testing.T) {
	requireTool(t, "pdftoppm")

	ws := newTestWorkspace(t)
	stagePDF(t, ws, "deck.pdf", 2)

	plan := tool.ConvertPDFPlan{Source: tool.Input{Name: "deck.pdf"}, Target: tool.DocPPTX}
	res, err := NewConvertExecutor().Execute(context.Background(), plan, ws)
	require.NoError(t, err)

	assert.Equal(t, "converted_deck.pptx", res.Filename)
	names := zipEntryNames(t, res.Path)
	assert.Contains(t, names, "ppt/presentation.xml")
	assert.Contains(t, names, "ppt/slides/slide1.xml")
	assert.Contains(t, names, "ppt/slides/slide2.xml")
	assert.Contains(t, names, "ppt/media/image1.jpg")
}

func TestConvertCorruptedSource(t *testing.T) {
	ws := newTestWorkspace(t)
	stageJPEG(t, ws.InputPath("fake.pdf"), 8, 8)

	plan := tool.ConvertPDFPlan{Source: tool.Input{Name: "fake.pdf"}, Target: tool.DocJPG}
	_, err := NewConvertExecutor().Execute(context.Background(), plan, ws)
	require.ErrorIs(t, err, processor.ErrCorruptedFile)
}
