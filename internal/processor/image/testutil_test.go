package image

import (
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

func newTestWorkspace(t *testing.T) *processor.Workspace {
	t.Helper()

	ws, err := processor.NewWorkspace(t.TempDir(), uuid.New())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	t.Cleanup(func() { ws.Cleanup(context.Background()) })
	return ws
}

// makeOpaqueImage returns a gradient image with no transparency.
func makeOpaqueImage(width, height int) *stdimage.NRGBA {
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// makeAlphaImage returns an image whose left half is fully transparent.
func makeAlphaImage(width, height int) *stdimage.NRGBA {
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a := uint8(255)
			if x < width/2 {
				a = 0
			}
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: a})
		}
	}
	return img
}

// stagePNG writes img into the workspace input dir under name.
func stagePNG(t *testing.T, ws *processor.Workspace, name string, img stdimage.Image) tool.Input {
	t.Helper()

	f, err := os.Create(ws.InputPath(name))
	if err != nil {
		t.Fatalf("create staged input: %v", err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode staged input: %v", err)
	}
	return tool.Input{FileID: uuid.New(), Name: name}
}

// stageBytes writes raw bytes as a staged input, for corrupted-file cases.
func stageBytes(t *testing.T, ws *processor.Workspace, name string, data []byte) tool.Input {
	t.Helper()

	if err := os.WriteFile(ws.InputPath(name), data, 0o644); err != nil {
		t.Fatalf("write staged input: %v", err)
	}
	return tool.Input{FileID: uuid.New(), Name: name}
}

func decodeResult(t *testing.T, res *processor.Result) (stdimage.Image, string) {
	t.Helper()

	f, err := os.Open(res.Path)
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	defer func() { _ = f.Close() }()

	img, format, err := stdimage.Decode(f)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return img, format
}
