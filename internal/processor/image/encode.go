package image

import (
	"context"
	"fmt"
	stdimage "image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/fileworks/fileworks/internal/processor"
	"github.com/fileworks/fileworks/internal/tool"
)

// decodeFile opens and decodes a staged source image. The returned format is
// the canonical source format.
func decodeFile(path string) (stdimage.Image, tool.ImageFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", processor.ErrSourceMissing
		}
		return nil, "", fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, name, err := stdimage.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}

	format, ok := tool.ParseImageFormat(name)
	if !ok {
		return nil, "", fmt.Errorf("%w: source format %q", processor.ErrUnsupportedFormat, name)
	}
	return img, format, nil
}

// encodeToFile writes img to outPath in the requested format, applying the
// alpha policy for the target: JPEG and BMP flatten transparency onto white,
// GIF quantizes to a 256-color palette with a transparent index, the rest
// keep the alpha channel. WEBP goes through the external cwebp encoder.
func encodeToFile(ctx context.Context, img stdimage.Image, format tool.ImageFormat, quality int, outPath string) error {
	if format == tool.FormatWEBP {
		return encodeWebP(ctx, img, quality, outPath)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	switch format {
	case tool.FormatJPEG:
		err = imaging.Encode(out, flattenWhite(img), imaging.JPEG, imaging.JPEGQuality(quality))
	case tool.FormatPNG:
		err = imaging.Encode(out, img, imaging.PNG)
	case tool.FormatGIF:
		err = encodeGIF(out, img)
	case tool.FormatBMP:
		err = imaging.Encode(out, flattenWhite(img), imaging.BMP)
	case tool.FormatTIFF:
		err = imaging.Encode(out, img, imaging.TIFF)
	default:
		err = fmt.Errorf("%w: %s", processor.ErrUnsupportedFormat, format)
	}

	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}

func contentTypeFor(format tool.ImageFormat) string {
	switch format {
	case tool.FormatJPEG:
		return "image/jpeg"
	case tool.FormatPNG:
		return "image/png"
	case tool.FormatWEBP:
		return "image/webp"
	case tool.FormatGIF:
		return "image/gif"
	case tool.FormatBMP:
		return "image/bmp"
	case tool.FormatTIFF:
		return "image/tiff"
	}
	return "application/octet-stream"
}

// outputName builds "<prefix>_<basename>.<ext>" from the source file name.
func outputName(prefix, sourceName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	return fmt.Sprintf("%s_%s.%s", prefix, base, ext)
}

func hasAlpha(img stdimage.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

// flattenWhite composites the image onto a white background for targets
// without an alpha channel.
func flattenWhite(img stdimage.Image) stdimage.Image {
	if !hasAlpha(img) {
		return img
	}

	bounds := img.Bounds()
	dst := stdimage.NewNRGBA(bounds)
	draw.Draw(dst, bounds, stdimage.NewUniform(color.White), stdimage.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

func encodeGIF(out io.Writer, img stdimage.Image) error {
	if !hasAlpha(img) {
		return gif.Encode(out, img, &gif.Options{NumColors: 256})
	}

	// Reserve palette index 0 for transparency, quantize the rest.
	pal := make(color.Palette, 0, 256)
	pal = append(pal, color.NRGBA{})
	pal = append(pal, palette.Plan9[:255]...)

	bounds := img.Bounds()
	dst := stdimage.NewPaletted(bounds, pal)
	draw.FloydSteinberg.Draw(dst, bounds, img, bounds.Min)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0x8000 {
				dst.SetColorIndex(x, y, 0)
			}
		}
	}

	return gif.EncodeAll(out, &gif.GIF{
		Image: []*stdimage.Paletted{dst},
		Delay: []int{0},
	})
}
