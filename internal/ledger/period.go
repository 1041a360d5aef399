package ledger

import (
	"fmt"
	"time"

	"github.com/tinoosan/firmledger/internal/errs"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

// Period is a calendar month. All bounds are computed in UTC.
type Period struct {
	Month int
	Year  int
}

// NewPeriod validates and returns a Period.
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	return p, p.Validate()
}

// PeriodOf returns the period containing t (in UTC).
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Month: int(t.Month()), Year: t.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return errs.Validationf("month must be between 1 and 12, got %d", p.Month)
	}
	if p.Year < MinYear || p.Year > MaxYear {
		return errs.Validationf("year must be between %d and %d, got %d", MinYear, MaxYear, p.Year)
	}
	return nil
}

// Start is the first instant of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant after the period; ranges are half-open [Start, End).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
