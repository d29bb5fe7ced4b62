package generic

import "time"

// =============================================================================
// PERIOD - The accounting window of a quota
// =============================================================================

// Period defines the time boundary of a quota bucket.
// Balances are ALWAYS computed for a period, not at a point in time.
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - Fiscal year 2025: Jun 1 2025 - May 31 2026
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsTime is Contains for wall-clock instants; End is inclusive up to
// the last second of its day.
func (p Period) ContainsTime(t time.Time) bool {
	end := EndOfDay(p.End.Year(), p.End.Month(), p.End.Day())
	return !t.Before(p.Start.normalize()) && !t.After(end)
}

// Validate rejects periods that end before they start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// YearPeriod is the calendar year as a Period.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}
