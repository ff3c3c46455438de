package tool

import "fmt"

// ValidationError reports a single rejected submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Plan is a fully validated, typed description of the work a job will do.
// The set of variants is sealed; executors switch over them exhaustively.
type Plan interface {
	Tool() Type
	sealedPlan()
}

type ResizePlan struct {
	Source Input
	// Width and Height are the requested dimensions. Zero means "derive
	// from the source aspect ratio", which needs the decoded image and so
	// happens in the executor.
	Width   int
	Height  int
	Quality int
}

type CompressImagePlan struct {
	Source  Input
	Quality int
}

type ConvertImagePlan struct {
	Source  Input
	Target  ImageFormat
	Quality int
}

type ConvertPDFPlan struct {
	Source Input
	Target DocFormat
}

type CompressPDFPlan struct {
	Sources []Input
	Level   CompressionLevel
}

type MergePlan struct {
	// Sources is the resolved input sequence in merge_order. Names listed
	// in merge_order but absent from the uploads land in Skipped.
	Sources []Input
	Skipped []string
}

type SplitPlan struct {
	Source Input
	Ranges []PageRange
}

func (ResizePlan) Tool() Type        { return TypeImageResize }
func (CompressImagePlan) Tool() Type { return TypeImageCompress }
func (ConvertImagePlan) Tool() Type  { return TypeImageConvert }
func (ConvertPDFPlan) Tool() Type    { return TypePDFConvert }
func (CompressPDFPlan) Tool() Type   { return TypePDFCompress }
func (MergePlan) Tool() Type         { return TypePDFMerge }
func (SplitPlan) Tool() Type         { return TypePDFSplit }

func (ResizePlan) sealedPlan()        {}
func (CompressImagePlan) sealedPlan() {}
func (ConvertImagePlan) sealedPlan()  {}
func (ConvertPDFPlan) sealedPlan()    {}
func (CompressPDFPlan) sealedPlan()   {}
func (MergePlan) sealedPlan()         {}
func (SplitPlan) sealedPlan()         {}

// BuildPlan validates params against the tool's rules and returns the typed
// plan. It is pure: the same arguments always produce the same result, so it
// runs once at submission (to reject bad requests with field details) and
// again in the worker (to shape execution).
func BuildPlan(t Type, p Params, inputs []Input) (Plan, error) {
	switch t {
	case TypeImageResize:
		return buildResizePlan(p, inputs)
	case TypeImageCompress:
		return buildCompressImagePlan(p, inputs)
	case TypeImageConvert:
		return buildConvertImagePlan(p, inputs)
	case TypePDFConvert:
		return buildConvertPDFPlan(p, inputs)
	case TypePDFCompress:
		return buildCompressPDFPlan(p, inputs)
	case TypePDFMerge:
		return buildMergePlan(p, inputs)
	case TypePDFSplit:
		return buildSplitPlan(p, inputs)
	default:
		return nil, invalid("tool_type", "unknown tool type")
	}
}

func singleInput(inputs []Input) (Input, *ValidationError) {
	if len(inputs) != 1 {
		return Input{}, invalid("file", "exactly one file is required")
	}
	return inputs[0], nil
}

func qualityOrDefault(p Params) (int, *ValidationError) {
	if p.Quality == nil {
		return DefaultQuality, nil
	}
	q := *p.Quality
	if q < 0 || q > 100 {
		return 0, invalid("quality", "must be between 0 and 100")
	}
	return q, nil
}

func buildResizePlan(p Params, inputs []Input) (Plan, error) {
	source, verr := singleInput(inputs)
	if verr != nil {
		return nil, verr
	}

	if p.Width == nil && p.Height == nil {
		return nil, invalid("width", "at least one of width or height is required")
	}

	var width, height int
	if p.Width != nil {
		if *p.Width < 1 {
			return nil, invalid("width", "must be a positive integer")
		}
		width = *p.Width
	}
	if p.Height != nil {
		if *p.Height < 1 {
			return nil, invalid("height", "must be a positive integer")
		}
		height = *p.Height
	}

	quality, verr := qualityOrDefault(p)
	if verr != nil {
		return nil, verr
	}

	return ResizePlan{Source: source, Width: width, Height: height, Quality: quality}, nil
}

func buildCompressImagePlan(p Params, inputs []Input) (Plan, error) {
	source, verr := singleInput(inputs)
	if verr != nil {
		return nil, verr
	}

	quality, verr := qualityOrDefault(p)
	if verr != nil {
		return nil, verr
	}

	return CompressImagePlan{Source: source, Quality: quality}, nil
}

func buildConvertImagePlan(p Params, inputs []Input) (Plan, error) {
	source, verr := singleInput(inputs)
	if verr != nil {
		return nil, verr
	}

	if p.TargetFormat == "" {
		return nil, invalid("target_format", "target format is required")
	}
	target, ok := ParseImageFormat(p.TargetFormat)
	if !ok {
		return nil, invalid("target_format", fmt.Sprintf("unsupported image format %q", p.TargetFormat))
	}

	quality, verr := qualityOrDefault(p)
	if verr != nil {
		return nil, verr
	}

	return ConvertImagePlan{Source: source, Target: target, Quality: quality}, nil
}

func buildConvertPDFPlan(p Params, inputs []Input) (Plan, error) {
	source, verr := singleInput(inputs)
	if verr != nil {
		return nil, verr
	}

	if p.TargetFormat == "" {
		return nil, invalid("target_format", "target format is required")
	}
	target, ok := ParseDocFormat(p.TargetFormat)
	if !ok {
		return nil, invalid("target_format", fmt.Sprintf("unsupported document format %q", p.TargetFormat))
	}

	return ConvertPDFPlan{Source: source, Target: target}, nil
}

func buildCompressPDFPlan(p Params, inputs []Input) (Plan, error) {
	if len(inputs) == 0 {
		return nil, invalid("files", "at least one file is required")
	}

	if p.CompressionLevel == "" {
		return nil, invalid("compression_level", "compression level is required")
	}
	level, ok := ParseCompressionLevel(p.CompressionLevel)
	if !ok {
		return nil, invalid("compression_level", fmt.Sprintf("unsupported compression level %q, expected high, medium or low", p.CompressionLevel))
	}

	return CompressPDFPlan{Sources: inputs, Level: level}, nil
}

func buildMergePlan(p Params, inputs []Input) (Plan, error) {
	if len(inputs) < 2 {
		return nil, invalid("files", "at least two files are required")
	}
	if len(p.MergeOrder) == 0 {
		return nil, invalid("merge_order", "merge order is required")
	}

	byName := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		byName[in.Name] = in
	}

	var sources []Input
	var skipped []string
	for _, name := range p.MergeOrder {
		in, ok := byName[name]
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		sources = append(sources, in)
	}

	if len(sources) < 2 {
		return nil, invalid("merge_order", "fewer than two listed files match the uploads")
	}

	return MergePlan{Sources: sources, Skipped: skipped}, nil
}

func buildSplitPlan(p Params, inputs []Input) (Plan, error) {
	source, verr := singleInput(inputs)
	if verr != nil {
		return nil, verr
	}

	if p.PageRanges == "" {
		return nil, invalid("page_ranges", "page ranges are required")
	}
	ranges, err := ParsePageRanges(p.PageRanges)
	if err != nil {
		return nil, invalid("page_ranges", err.Error())
	}

	return SplitPlan{Source: source, Ranges: ranges}, nil
}
