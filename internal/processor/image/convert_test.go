package image

import (
	"context"
	"errors"
	stdimage "image"
	"testing"

	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

func TestConvertExecutor_AlphaToJPEGCompositesWhite(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stagePNG(t, ws, "logo.png", makeAlphaImage(40, 20))

	res, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatJPEG, Quality: 90,
	}, ws)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.Filename != "converted_logo.jpg" {
		t.Errorf("Filename = %q, want converted_logo.jpg", res.Filename)
	}

	img, format := decodeResult(t, res)
	if format != "jpeg" {
		t.Fatalf("output format = %q, want jpeg", format)
	}

	// The transparent left half must come out near-white, not black.
	r, g, b, _ := img.At(5, 10).RGBA()
	for name, v := range map[string]uint32{"r": r, "g": g, "b": b} {
		if v < 0xe000 {
			t.Errorf("transparent region channel %s = %#x, want near white", name, v)
		}
	}
}

func TestConvertExecutor_AlphaSurvivesPNG(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stagePNG(t, ws, "logo.png", makeAlphaImage(40, 20))

	res, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatPNG, Quality: tool.DefaultQuality,
	}, ws)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	img, format := decodeResult(t, res)
	if format != "png" {
		t.Fatalf("output format = %q, want png", format)
	}
	if _, _, _, a := img.At(5, 10).RGBA(); a != 0 {
		t.Errorf("transparent pixel alpha = %#x, want 0", a)
	}
}

func TestConvertExecutor_GIFKeepsTransparency(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stagePNG(t, ws, "logo.png", makeAlphaImage(40, 20))

	res, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatGIF, Quality: tool.DefaultQuality,
	}, ws)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	img, format := decodeResult(t, res)
	if format != "gif" {
		t.Fatalf("output format = %q, want gif", format)
	}

	paletted, ok := img.(*stdimage.Paletted)
	if !ok {
		t.Fatalf("gif frame type = %T, want *image.Paletted", img)
	}
	if len(paletted.Palette) > 256 {
		t.Errorf("palette size = %d, want <= 256", len(paletted.Palette))
	}
	if _, _, _, a := paletted.At(5, 10).RGBA(); a != 0 {
		t.Errorf("transparent pixel alpha = %#x, want 0", a)
	}
	if _, _, _, a := paletted.At(30, 10).RGBA(); a == 0 {
		t.Error("opaque pixel came out transparent")
	}
}

func TestConvertExecutor_BMPFlattens(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stagePNG(t, ws, "logo.png", makeAlphaImage(40, 20))

	res, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatBMP, Quality: tool.DefaultQuality,
	}, ws)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Filename != "converted_logo.bmp" {
		t.Errorf("Filename = %q, want converted_logo.bmp", res.Filename)
	}
}

func TestConvertExecutor_WEBPNeedsCwebp(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stagePNG(t, ws, "logo.png", makeOpaqueImage(40, 20))

	res, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatWEBP, Quality: 80,
	}, ws)

	if !cwebpAvailable() {
		if !errors.Is(err, processor.ErrExternalTool) {
			t.Errorf("Execute() without cwebp error = %v, want ErrExternalTool", err)
		}
		return
	}

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Filename != "converted_logo.webp" {
		t.Errorf("Filename = %q, want converted_logo.webp", res.Filename)
	}
	if res.ContentType != "image/webp" {
		t.Errorf("ContentType = %q, want image/webp", res.ContentType)
	}
}

func TestConvertExecutor_CorruptedSource(t *testing.T) {
	ws := newTestWorkspace(t)
	src := stageBytes(t, ws, "broken.png", []byte{0x00, 0x01})

	_, err := NewConvertExecutor().Execute(context.Background(), tool.ConvertImagePlan{
		Source: src, Target: tool.FormatPNG, Quality: tool.DefaultQuality,
	}, ws)
	if !errors.Is(err, processor.ErrCorruptedFile) {
		t.Errorf("Execute() error = %v, want ErrCorruptedFile", err)
	}
}
