package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Pattern is the cadence of a recurring task.
type Pattern string

const (
	Daily   Pattern = "daily"
	Weekly  Pattern = "weekly"
	Monthly Pattern = "monthly"
	Yearly  Pattern = "yearly"
	Custom  Pattern = "custom"
)

// ErrInvalidRule is returned when a rule cannot produce a positive step.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule describes how a task repeats. Build it with New so that Next can
// assume a valid step.
type Rule struct {
	Pattern      Pattern
	IntervalDays int
	EndDate      *time.Time
}

// ParsePattern accepts pattern names case-insensitively.
func ParsePattern(raw string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case Daily, Weekly, Monthly, Yearly, Custom:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, raw)
	}
}

// New validates and builds a rule. intervalDays is ignored for every
// pattern except Custom.
func New(pattern Pattern, intervalDays int, endDate *time.Time) (*Rule, error) {
	r := &Rule{Pattern: pattern, EndDate: endDate}
	if pattern == Custom {
		r.IntervalDays = intervalDays
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if endDate != nil {
		end := endDate.UTC()
		r.EndDate = &end
	}
	return r, nil
}

// Validate reports whether the rule yields a strictly positive step.
func (r Rule) Validate() error {
	switch r.Pattern {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	case Custom:
		if r.IntervalDays <= 0 {
			return fmt.Errorf("%w: custom interval must be positive, got %d", ErrInvalidRule, r.IntervalDays)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, r.Pattern)
	}
}

// Next returns the occurrence that follows previous. The second result is
// false once the computed occurrence falls strictly after EndDate.
func (r Rule) Next(previous time.Time) (time.Time, bool) {
	var next time.Time
	switch r.Pattern {
	case Daily:
		next = previous.AddDate(0, 0, 1)
	case Weekly:
		next = previous.AddDate(0, 0, 7)
	case Monthly:
		next = addMonthsClamped(previous, 1)
	case Yearly:
		next = addMonthsClamped(previous, 12)
	case Custom:
		next = previous.AddDate(0, 0, r.IntervalDays)
	default:
		return time.Time{}, false
	}

	if r.EndDate != nil && next.After(*r.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// String renders the rule for logs and chat messages.
func (r Rule) String() string {
	var s string
	switch r.Pattern {
	case Custom:
		s = fmt.Sprintf("every %d days", r.IntervalDays)
	default:
		s = string(r.Pattern)
	}
	if r.EndDate != nil {
		s += " until " + r.EndDate.Format("2006-01-02")
	}
	return s
}

// addMonthsClamped keeps the day of month, clamping to the last day of the
// target month instead of overflowing into the next one.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(target.Month(), target.Year()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
