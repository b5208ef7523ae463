package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ecmwf/gribjump/pkg/block"
)

// parseIntervals parses a comma-separated list of "start-end" ranges
// (end exclusive) into Spans, e.g. "0-10,20-30". The Spans keep the
// order given; they are not sorted and their ordering is not checked.
func parseIntervals(s string) ([]block.Span, error) {
	if s == "" {
		return nil, fmt.Errorf("no intervals given")
	}
	parts := strings.Split(s, ",")
	spans := make([]block.Span, 0, len(parts))
	for _, p := range parts {
		bounds := strings.SplitN(strings.TrimSpace(p), "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid interval %q: want start-end", p)
		}
		start, err := strconv.ParseUint(bounds[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", p, err)
		}
		end, err := strconv.ParseUint(bounds[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", p, err)
		}
		if end <= start {
			return nil, fmt.Errorf("invalid interval %q: end must be greater than start", p)
		}
		spans = append(spans, block.Span{Offset: start, Size: end - start})
	}
	return spans, nil
}
