package tool

import (
	"strings"

	"github.com/google/uuid"
)

// Params is the raw option bag lifted from the submission request. Values
// are normalized into a typed Plan by BuildPlan; nothing downstream reads
// Params directly.
type Params struct {
	Quality          *int     `json:"quality,omitempty"`
	Width            *int     `json:"width,omitempty"`
	Height           *int     `json:"height,omitempty"`
	TargetFormat     string   `json:"target_format,omitempty"`
	CompressionLevel string   `json:"compression_level,omitempty"`
	PageRanges       string   `json:"page_ranges,omitempty"`
	MergeOrder       []string `json:"merge_order,omitempty"`
}

// Input describes one uploaded source file for plan building.
type Input struct {
	FileID uuid.UUID
	Key    string
	Name   string
}

// ImageFormat is a supported image conversion target.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatWEBP ImageFormat = "webp"
	FormatGIF  ImageFormat = "gif"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
)

func ParseImageFormat(s string) (ImageFormat, bool) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWEBP, true
	case "gif":
		return FormatGIF, true
	case "bmp":
		return FormatBMP, true
	case "tiff", "tif":
		return FormatTIFF, true
	}
	return "", false
}

// Ext returns the file extension for the format, without the dot.
func (f ImageFormat) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// DocFormat is a supported PDF conversion target.
type DocFormat string

const (
	DocDOCX DocFormat = "docx"
	DocXLSX DocFormat = "xlsx"
	DocPPTX DocFormat = "pptx"
	DocJPG  DocFormat = "jpg"
)

func ParseDocFormat(s string) (DocFormat, bool) {
	switch strings.ToLower(s) {
	case "docx":
		return DocDOCX, true
	case "xlsx":
		return DocXLSX, true
	case "pptx":
		return DocPPTX, true
	case "jpg", "jpeg":
		return DocJPG, true
	}
	return "", false
}

// CompressionLevel selects a Ghostscript preset for PDF compression.
type CompressionLevel string

const (
	CompressionHigh   CompressionLevel = "high"
	CompressionMedium CompressionLevel = "medium"
	CompressionLow    CompressionLevel = "low"
)

func ParseCompressionLevel(s string) (CompressionLevel, bool) {
	switch strings.ToLower(s) {
	case "high":
		return CompressionHigh, true
	case "medium":
		return CompressionMedium, true
	case "low":
		return CompressionLow, true
	}
	return "", false
}

// DefaultQuality is the encode quality used when the caller omits one.
const DefaultQuality = 85
