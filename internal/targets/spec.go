package targets

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSpace covers the RIDs a typical domain hands out.
	DefaultSpace = "0-299999"
	// DefaultBatchSize bounds one harvest run, so that each batch gets its
	// own give-up window.
	DefaultBatchSize = 30000
)

// ParseRIDs expands a string like "500-1000,1103,2000-2100" into spans.
// Order is preserved; overlapping spans are kept as given.
func ParseRIDs(spec string) (Ranges, error) {
	var out Ranges
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty RID spec %q", spec)
	}
	return out, nil
}

func parseRange(part string) (Range, error) {
	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return Range{}, fmt.Errorf("invalid RID range: %s", part)
		}
		start, err1 := parseRID(bounds[0])
		end, err2 := parseRID(bounds[1])
		if err1 != nil || err2 != nil {
			return Range{}, fmt.Errorf("invalid RID numbers: %s", part)
		}
		if start > end {
			return Range{}, fmt.Errorf("invalid RID range bounds: %d-%d", start, end)
		}
		return Range{First: start, Last: end}, nil
	}

	rid, err := parseRID(part)
	if err != nil {
		return Range{}, fmt.Errorf("invalid RID: %s", part)
	}
	return Range{First: rid, Last: rid}, nil
}

func parseRID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
