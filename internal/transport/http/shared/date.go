package shared

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidTime = errors.New("must be RFC3339 or YYYY-MM-DD")

// ParseTimeParam parses an optional query value. Empty input yields nil.
func ParseTimeParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, ErrInvalidTime
}
