package ranking

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Period is either a calendar month or the consolidated pseudo-period.
// The zero value is invalid.
type Period struct {
	month        time.Time
	consolidated bool
}

func Month(year int, month time.Month) Period {
	return Period{month: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// MonthOf truncates t to its calendar month.
func MonthOf(t time.Time) Period {
	return Month(t.Year(), t.Month())
}

func Consolidated() Period {
	return Period{consolidated: true}
}

// ParsePeriod accepts YYYY-MM, YYYY-MM-DD or "consolidated".
func ParsePeriod(raw string) (Period, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, ConsolidatedKey) {
		return Consolidated(), nil
	}
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return MonthOf(t), nil
		}
	}
	return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
}

func (p Period) IsConsolidated() bool { return p.consolidated }

func (p Period) IsZero() bool { return !p.consolidated && p.month.IsZero() }

// Start is the first day of the month; zero for consolidated.
func (p Period) Start() time.Time { return p.month }

func (p Period) Previous() Period {
	if p.consolidated || p.IsZero() {
		return Period{}
	}
	return Period{month: p.month.AddDate(0, -1, 0)}
}

func (p Period) Next() Period {
	if p.consolidated || p.IsZero() {
		return Period{}
	}
	return Period{month: p.month.AddDate(0, 1, 0)}
}

// Contains reports whether t falls in the month. Consolidated contains everything.
func (p Period) Contains(t time.Time) bool {
	if p.consolidated {
		return true
	}
	return !p.IsZero() && t.Year() == p.month.Year() && t.Month() == p.month.Month()
}

func (p Period) Kind() string {
	if p.consolidated {
		return KindConsolidated
	}
	return KindMonthly
}

func (p Period) String() string {
	switch {
	case p.consolidated:
		return ConsolidatedKey
	case p.IsZero():
		return ""
	default:
		return p.month.Format("2006-01")
	}
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts everything ParsePeriod does; empty text is the
// zero Period, mirroring MarshalText.
func (p *Period) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
