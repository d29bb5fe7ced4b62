package quota

import (
	"time"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
)

type WarningLevel string

const (
	WarningNone   WarningLevel = ""
	WarningLow    WarningLevel = "LOW"
	WarningMedium WarningLevel = "MEDIUM"
	WarningHigh   WarningLevel = "HIGH"
)

// Thresholds on the days left after a request.
var (
	MediumWarningDays = Days(2)
	LowWarningDays    = Days(5)
)

// Availability answers whether a request of RequestedDays fits the quota.
type Availability struct {
	LeaveType        LeaveType
	Eligible         bool
	AvailableDays    generic.Amount
	RequestedDays    generic.Amount
	RemainingAfter   generic.Amount
	ExceededBy       generic.Amount // zero unless exceeded
	RequiresApproval bool
	WarningLevel     WarningLevel
	Quota            QuotaForType
	Notice           i18n.Notice
}

// CalculateAvailability checks requested days of t against the balance.
func CalculateAvailability(b LeaveBalance, t LeaveType, requested generic.Amount) Availability {
	q := b.QuotaFor(t)
	label := i18n.Label(i18n.LabelKey(string(t)))
	a := Availability{
		LeaveType:      t,
		AvailableDays:  q.Remaining,
		RequestedDays:  requested,
		RemainingAfter: zeroDays(),
		ExceededBy:     zeroDays(),
		Quota:          q,
	}

	if requested.GreaterThan(q.Remaining) {
		a.ExceededBy = requested.Sub(q.Remaining)
		a.RequiresApproval = true
		a.WarningLevel = WarningHigh
		a.Notice = i18n.NewNotice(i18n.AvailabilityExceeded, requested.String(), label, a.ExceededBy.String())
		return a
	}

	a.Eligible = true
	a.RemainingAfter = q.Remaining.Sub(requested)
	switch {
	case !a.RemainingAfter.GreaterThan(MediumWarningDays):
		a.WarningLevel = WarningMedium
	case !a.RemainingAfter.GreaterThan(LowWarningDays):
		a.WarningLevel = WarningLow
	}
	a.Notice = i18n.NewNotice(i18n.AvailabilityOK, requested.String(), label, a.RemainingAfter.String())
	return a
}

// ExpiringAlerts returns one alert notice per landed carry-over batch
// expiring after now and within ExpiryWarningDays.
func ExpiringAlerts(carryOvers []CarryOverRecord, now time.Time) []ExpiringAlert {
	var out []ExpiringAlert
	for _, c := range carryOvers {
		if !c.Landed() || !c.ExpiryDate.After(now) {
			continue
		}
		days := DaysUntil(now, c.ExpiryDate)
		if days > ExpiryWarningDays {
			continue
		}
		out = append(out, ExpiringAlert{
			Record:          c,
			DaysUntilExpiry: days,
			Notice: i18n.NewNotice(i18n.AlertExpiring, c.CarriedAmount.String(),
				i18n.Label(i18n.LabelKey(string(c.LeaveType))), c.ExpiryDate.Format(generic.DateLayout)),
		})
	}
	return out
}

// ExpiringAlert flags a carry-over batch about to expire.
type ExpiringAlert struct {
	Record          CarryOverRecord
	DaysUntilExpiry int
	Notice          i18n.Notice
}
