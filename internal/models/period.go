package models

import (
	"fmt"
	"strconv"
	"time"
)

// Period is a contract year-month, the time half of a Unit.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses the upstream DEAL_YMD format (YYYYMM).
func ParsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYYMM", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	month, err := strconv.Atoi(s[4:])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// PreviousPeriod returns the most recently completed month relative to now.
func PreviousPeriod(now time.Time) Period {
	return PeriodOf(now).Prev()
}

func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}

func periodFromIndex(i int) Period {
	return Period{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func (p Period) Next() Period {
	return periodFromIndex(p.index() + 1)
}

func (p Period) Prev() Period {
	return periodFromIndex(p.index() - 1)
}

// Compare returns -1, 0 or +1 like cmp.Compare.
func (p Period) Compare(other Period) int {
	switch a, b := p.index(), other.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// PeriodRange enumerates every period in [from, to] inclusive.
func PeriodRange(from, to Period) ([]Period, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid period range: %s is after %s", from, to)
	}
	periods := make([]Period, 0, to.index()-from.index()+1)
	for p := from; !to.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
