package normalize

import (
	"github.com/colisflow/colisflow/pkg/extract"
)

// numberValue parses a numeric cell, keeping the raw text when the cell
// holds something non-numeric and nil when it is empty.
func numberValue(s string) any {
	if s == "" {
		return nil
	}
	if v, ok := extract.ParseNumber(s); ok {
		return v
	}
	return s
}

// timestampOrNil parses a timestamp cell; empty cells become nil and
// unparsable ones keep their raw text.
func timestampOrNil(s string) any {
	if s == "" {
		return nil
	}
	if t, ok := extract.ParseTimestamp(s); ok {
		return t
	}
	return s
}
