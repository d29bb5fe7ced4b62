package quota

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-quota/generic"
)

// TransferRecord is a persisted transfer request, as listed in history.
type TransferRecord struct {
	ID           string
	UserID       generic.EntityID
	UserName     string
	Department   string
	SourceType   LeaveType
	TargetType   LeaveType
	SourceAmount generic.Amount
	TargetAmount generic.Amount
	Ratio        decimal.Decimal
	Status       Status
	RuleID       string
	Comment      string
	CreatedAt    time.Time
	ProcessedAt  time.Time // zero while pending
	ProcessedBy  string
}

// CarryOverRecord is a persisted carry-over request, as listed in history.
type CarryOverRecord struct {
	ID              string
	UserID          generic.EntityID
	LeaveType       LeaveType
	FromYear        int
	ToYear          int
	RequestedAmount generic.Amount
	CarriedAmount   generic.Amount
	ExpiryDate      time.Time
	Status          Status
	RuleID          string
	Comment         string
	CreatedAt       time.Time
	ProcessedAt     time.Time
	ProcessedBy     string
}

// Landed reports whether the carried days were credited to ToYear.
func (r CarryOverRecord) Landed() bool {
	return r.Status == StatusCompleted || r.Status == StatusApproved
}

// TransferResult is returned by an executed transfer.
type TransferResult struct {
	Success    bool
	TransferID string
	Status     Status
	Simulation TransferSimulation
	Message    string
}

// CarryOverResult is returned by an executed carry-over.
type CarryOverResult struct {
	Success     bool
	CarryOverID string
	Status      Status
	Calculation CarryOverCalculation
	Message     string
}

// QuotaPeriod is an accounting year with an optional carry-over deadline.
type QuotaPeriod struct {
	ID                string
	Name              string
	Period            generic.Period
	Active            bool
	CarryOverDeadline time.Time // zero = none
}

// Deadline is a day of the year following a quota period, such as
// March 31. The zero Deadline means carry-overs never close.
type Deadline struct {
	Month time.Month
	Day   int
}

// ParseDeadline reads a "MM-DD" deadline. An empty string is no deadline.
func ParseDeadline(s string) (Deadline, error) {
	if s == "" {
		return Deadline{}, nil
	}
	m, d, ok := strings.Cut(s, "-")
	month, errM := strconv.Atoi(m)
	day, errD := strconv.Atoi(d)
	if !ok || errM != nil || errD != nil || !generic.ValidDayOfMonth(month, day) {
		return Deadline{}, fmt.Errorf("%w: deadline %q, want MM-DD", generic.ErrInvalidInput, s)
	}
	return Deadline{Month: time.Month(month), Day: day}, nil
}

func (d Deadline) IsZero() bool { return d.Month == 0 }

// QuotaPeriodForYear returns the calendar-year period for year. A non-zero
// deadline closes carry-overs out of it on that day of year+1.
func QuotaPeriodForYear(year int, deadline Deadline) QuotaPeriod {
	p := generic.YearPeriod(year)
	q := QuotaPeriod{
		ID:     p.Start.String(),
		Name:   p.String(),
		Period: p,
		Active: true,
	}
	if !deadline.IsZero() {
		q.CarryOverDeadline = time.Date(year+1, deadline.Month, deadline.Day, 0, 0, 0, 0, time.UTC)
	}
	return q
}

// CarryOverOpen reports whether carry-overs out of the period are still
// accepted at now. The deadline day itself is open.
func (q QuotaPeriod) CarryOverOpen(now time.Time) bool {
	if q.CarryOverDeadline.IsZero() {
		return true
	}
	d := q.CarryOverDeadline
	return !now.After(generic.EndOfDay(d.Year(), d.Month(), d.Day()))
}
