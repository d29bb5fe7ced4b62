package quota

import (
	"sort"
	"time"

	"github.com/warp/leave-quota/generic"
)

// QuotaSummary is a user's year at a glance: balances per type, requests
// awaiting a decision and carried days about to expire.
type QuotaSummary struct {
	UserID            generic.EntityID
	Year              int
	Balances          []QuotaForType
	PendingTransfers  []TransferRecord
	PendingCarryOvers []CarryOverRecord
	Expiring          []ExpiringAlert
}

// BuildSummary assembles a QuotaSummary from fetched data.
func BuildSummary(b LeaveBalance, transfers []TransferRecord, carryOvers []CarryOverRecord, now time.Time) QuotaSummary {
	s := QuotaSummary{UserID: b.UserID, Year: b.Year}
	for _, t := range allLeaveTypes {
		s.Balances = append(s.Balances, b.QuotaFor(t))
	}
	for _, t := range transfers {
		if t.Status == StatusPending {
			s.PendingTransfers = append(s.PendingTransfers, t)
		}
	}
	var landed []CarryOverRecord
	for _, c := range carryOvers {
		if c.Status == StatusPending {
			s.PendingCarryOvers = append(s.PendingCarryOvers, c)
		}
		if c.ToYear == b.Year {
			landed = append(landed, c)
		}
	}
	s.Expiring = ExpiringAlerts(landed, now)
	return s
}

// DashboardTopUsers is how many users a Dashboard ranks.
const DashboardTopUsers = 5

// Dashboard is the HR overview of a year, for everyone or one department.
type Dashboard struct {
	Year        int
	Department  string
	Utilization QuotaStatistics
	Transfers   ReportSummary
	CarriedOver generic.Amount
	Expired     generic.Amount
	// TopUsers ranks users by days transferred, most first.
	TopUsers []ReportGroup
}

// BuildDashboard joins the year's statistics with its transfer summary.
// transfers should be grouped by user for TopUsers to be filled.
func BuildDashboard(year int, department string, stats QuotaStatistics, transfers ReportSummary) Dashboard {
	top := append([]ReportGroup(nil), transfers.ByUser...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Days.GreaterThan(top[j].Days) })
	if len(top) > DashboardTopUsers {
		top = top[:DashboardTopUsers]
	}
	return Dashboard{
		Year:        year,
		Department:  department,
		Utilization: stats,
		Transfers:   transfers,
		CarriedOver: stats.TotalCarriedOver,
		Expired:     stats.TotalExpired,
		TopUsers:    top,
	}
}
