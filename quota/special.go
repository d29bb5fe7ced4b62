package quota

import (
	"time"

	"github.com/warp/leave-quota/generic"
)

// =============================================================================
// DAY/MONTH WINDOWS
// =============================================================================

// Window is a day/month range, recurring every year unless SpecificYear is
// set. A window whose start month is after its end month spans New Year.
type Window struct {
	StartDay     int `json:"startDay"`
	StartMonth   int `json:"startMonth"`
	EndDay       int `json:"endDay"`
	EndMonth     int `json:"endMonth"`
	SpecificYear int `json:"specificYear,omitempty"` // 0 = recurring
}

// SpansYearBoundary reports whether the window wraps from December into January.
func (w Window) SpansYearBoundary() bool {
	return w.StartMonth > w.EndMonth
}

// Validate rejects day/month pairs that cannot exist.
func (w Window) Validate() error {
	if !generic.ValidDayOfMonth(w.StartMonth, w.StartDay) {
		return invalidRule("invalid window start %02d-%02d", w.StartMonth, w.StartDay)
	}
	if !generic.ValidDayOfMonth(w.EndMonth, w.EndDay) {
		return invalidRule("invalid window end %02d-%02d", w.EndMonth, w.EndDay)
	}
	if w.StartMonth == w.EndMonth && w.StartDay > w.EndDay {
		return invalidRule("window ends before it starts")
	}
	if w.SpecificYear < 0 {
		return invalidRule("invalid specific year %d", w.SpecificYear)
	}
	return nil
}

// Contains reports whether the calendar day of date falls inside the window.
//
// The window is resolved against anchor year Y, the specific year when set
// and the date's own year otherwise:
//   - start month <= end month: [start(Y), end(Y)]
//   - spanning New Year, date month >= start month: [start(Y), Dec 31 Y]
//   - spanning New Year, date month <  start month: [start(Y-1), end(Y)]
func (w Window) Contains(date time.Time) bool {
	year := w.SpecificYear
	if year == 0 {
		year = date.Year()
	}
	day := dayKey(date.Year(), int(date.Month()), date.Day())

	if !w.SpansYearBoundary() {
		return between(day, dayKey(year, w.StartMonth, w.StartDay), dayKey(year, w.EndMonth, w.EndDay))
	}
	if int(date.Month()) >= w.StartMonth {
		return between(day, dayKey(year, w.StartMonth, w.StartDay), dayKey(year, 12, 31))
	}
	return between(day, dayKey(year-1, w.StartMonth, w.StartDay), dayKey(year, w.EndMonth, w.EndDay))
}

// Bounds returns the concrete occurrence of the window that starts in year.
func (w Window) Bounds(year int) generic.Period {
	if w.SpecificYear != 0 {
		year = w.SpecificYear
	}
	start := generic.NewTimePoint(year, time.Month(w.StartMonth), w.StartDay)
	endYear := year
	if w.SpansYearBoundary() {
		endYear++
	}
	return generic.Period{Start: start, End: generic.NewTimePoint(endYear, time.Month(w.EndMonth), w.EndDay)}
}

func dayKey(year, month, day int) int { return year*10000 + month*100 + day }

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

// =============================================================================
// SPECIAL PERIODS
// =============================================================================

// SpecialPeriodRule is a high-demand window with a guaranteed minimum quota
// and ordered priority rules for resolving simultaneous absences.
type SpecialPeriodRule struct {
	ID                     string
	Name                   string
	Description            string
	PeriodType             SpecialPeriodType
	Window                 Window
	MinimumQuotaGuaranteed generic.Amount // zero = none
	PriorityRules          []string
	Active                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Validate checks the rule definition.
func (r SpecialPeriodRule) Validate() error {
	if r.Name == "" {
		return invalidRule("special period name is required")
	}
	switch r.PeriodType {
	case PeriodSummer, PeriodWinter, PeriodHolidays, PeriodOther:
	default:
		return invalidRule("unknown special period type %q", r.PeriodType)
	}
	if r.MinimumQuotaGuaranteed.IsNegative() {
		return invalidRule("minimum guaranteed quota must not be negative")
	}
	return r.Window.Validate()
}

// IsInSpecialPeriod reports whether date falls inside the rule's window.
// The active flag is not consulted; see ActiveSpecialPeriods.
func IsInSpecialPeriod(date time.Time, rule SpecialPeriodRule) bool {
	return rule.Window.Contains(date)
}

// ActiveSpecialPeriods returns the active rules whose window contains date,
// in input order.
func ActiveSpecialPeriods(date time.Time, rules []SpecialPeriodRule) []SpecialPeriodRule {
	var out []SpecialPeriodRule
	for _, r := range rules {
		if r.Active && IsInSpecialPeriod(date, r) {
			out = append(out, r)
		}
	}
	return out
}
