package tool

import (
	"encoding/json"
	"fmt"
)

// Type identifies one of the supported conversion tools. The set is closed:
// anything else is rejected when the request is parsed, long before a worker
// sees the job.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeImageResize
	TypeImageCompress
	TypeImageConvert
	TypePDFConvert
	TypePDFCompress
	TypePDFMerge
	TypePDFSplit
)

var typeNames = map[Type]string{
	TypeImageResize:   "image_resizer",
	TypeImageCompress: "image_compressor",
	TypeImageConvert:  "image_converter",
	TypePDFConvert:    "pdf_converter",
	TypePDFCompress:   "file_compressor",
	TypePDFMerge:      "pdf_merger",
	TypePDFSplit:      "pdf_splitter",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

func ParseType(s string) (Type, error) {
	if t, ok := typesByName[s]; ok {
		return t, nil
	}
	return TypeUnknown, fmt.Errorf("unknown tool type %q", s)
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsImage reports whether the tool operates on images rather than PDFs.
func (t Type) IsImage() bool {
	switch t {
	case TypeImageResize, TypeImageCompress, TypeImageConvert:
		return true
	}
	return false
}

// MultiInput reports whether the tool accepts more than one uploaded file.
func (t Type) MultiInput() bool {
	switch t {
	case TypePDFCompress, TypePDFMerge:
		return true
	}
	return false
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
