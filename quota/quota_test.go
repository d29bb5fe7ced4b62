package quota_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func days(v float64) generic.Amount { return quota.Days(v) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// balanceWith builds a balance with one allowance/used/pending triple per type.
func balanceWith(year int, rows map[quota.LeaveType][3]float64) quota.LeaveBalance {
	b := quota.NewLeaveBalance("emp-1", year)
	for t, r := range rows {
		b.SetAllowance(t, days(r[0]))
		d := b.Detail(t)
		d.Used = days(r[1])
		d.Pending = days(r[2])
		b.DetailsByType[t] = d
	}
	return b
}

// standardBalance is 25 annual days with 8 used and 2 pending (15 remaining)
// and 7 recovery days.
func standardBalance() quota.LeaveBalance {
	return balanceWith(2025, map[quota.LeaveType][3]float64{
		quota.LeaveAnnual:   {25, 8, 2},
		quota.LeaveRecovery: {7, 0, 0},
	})
}
