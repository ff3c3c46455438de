package tool

import (
	"fmt"
	"strconv"
	"strings"
)

// PageRange is a 1-based inclusive page interval. A single page is encoded
// with Start == End.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) Single() bool {
	return r.Start == r.End
}

// ParsePageRanges parses expressions such as "1-5, 8, 10-12" into intervals.
// Tokens are comma separated; whitespace is ignored and empty tokens are
// skipped. Bounds against the actual page count are checked at execution
// time, where the document is available.
func ParsePageRanges(expr string) ([]PageRange, error) {
	var ranges []PageRange

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if before, after, found := strings.Cut(token, "-"); found {
			start, err := parsePageNumber(before)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", token, err)
			}
			end, err := parsePageNumber(after)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", token, err)
			}
			if start > end {
				return nil, fmt.Errorf("invalid range %q: start page after end page", token)
			}
			ranges = append(ranges, PageRange{Start: start, End: end})
			continue
		}

		page, err := parsePageNumber(token)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q: %w", token, err)
		}
		ranges = append(ranges, PageRange{Start: page, End: page})
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("no page ranges in %q", expr)
	}
	return ranges, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if n < 1 {
		return 0, fmt.Errorf("pages are numbered from 1")
	}
	return n, nil
}
