package processor

import "errors"

// Sentinel errors shared by all executors. Wrapped causes carry the
// tool-specific detail; callers match with errors.Is.
var (
	ErrCorruptedFile     = errors.New("processor: file appears corrupted")
	ErrProcessingFailed  = errors.New("processor: processing failed")
	ErrUnsupportedFormat = errors.New("processor: unsupported target format")
	ErrExternalTool      = errors.New("processor: external tool failed")
	ErrSourceMissing     = errors.New("processor: source file missing")
	ErrPageOutOfBounds   = errors.New("processor: page range outside the document")
)

// Result describes the single output artifact an executor produced. The file
// lives inside the job workspace until the runner uploads it.
type Result struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}
