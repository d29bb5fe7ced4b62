/*
state.go - Enhanced quota state and statistics

PURPOSE:
  Joins a balance with transfer and carry-over history into one row per
  leave type. Pure aggregation over already-fetched slices.

FILTERS:
  - transfers: created within the calendar year, any status
  - carry-overs: landed (COMPLETED or APPROVED) into the year
  - expiring: landed batches expiring after now and within 30 days,
    the earliest one is surfaced
*/
package quota

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-quota/generic"
)

// ExpiryWarningDays is the horizon under which carried days are flagged.
const ExpiryWarningDays = 30

type TransferDirection string

const (
	TransferIn  TransferDirection = "in"
	TransferOut TransferDirection = "out"
)

// TransferItem is one transfer as seen from a single leave type.
type TransferItem struct {
	Direction   TransferDirection
	RelatedType LeaveType
	Amount      generic.Amount
	Date        time.Time
}

// CarriedOverItem is one carry-over batch credited to the year.
type CarriedOverItem struct {
	FromYear   int
	Amount     generic.Amount
	ExpiryDate time.Time
}

// ExpiringCarryOver is the nearest batch about to expire.
type ExpiringCarryOver struct {
	Amount          generic.Amount
	ExpiryDate      time.Time
	DaysUntilExpiry int
}

// EnhancedQuotaState is the per-type view of a user's quota for a year.
type EnhancedQuotaState struct {
	Type                LeaveType
	Total               generic.Amount
	Used                generic.Amount
	Pending             generic.Amount
	Remaining           generic.Amount
	TotalCarriedOver    generic.Amount
	TotalExpired        generic.Amount
	TotalTransferredIn  generic.Amount
	TotalTransferredOut generic.Amount
	CarriedOverItems    []CarriedOverItem
	TransferItems       []TransferItem // newest first
	ExpiringCarryOver   *ExpiringCarryOver
}

// DaysUntil returns the number of started days between now and t.
func DaysUntil(now, t time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// BuildEnhancedState produces one row per leave type, in display order.
func BuildEnhancedState(b LeaveBalance, transfers []TransferRecord, carryOvers []CarryOverRecord, year int, now time.Time) []EnhancedQuotaState {
	window := generic.YearPeriod(year)

	var yearTransfers []TransferRecord
	for _, t := range transfers {
		if window.ContainsTime(t.CreatedAt) {
			yearTransfers = append(yearTransfers, t)
		}
	}

	out := make([]EnhancedQuotaState, 0, len(allLeaveTypes))
	for _, lt := range allLeaveTypes {
		q := b.QuotaFor(lt)
		st := EnhancedQuotaState{
			Type:                lt,
			Total:               q.Total,
			Used:                q.Used,
			Pending:             q.Pending,
			Remaining:           q.Remaining,
			TotalCarriedOver:    zeroDays(),
			TotalExpired:        zeroDays(),
			TotalTransferredIn:  zeroDays(),
			TotalTransferredOut: zeroDays(),
		}

		for _, t := range yearTransfers {
			if t.TargetType == lt {
				st.TotalTransferredIn = st.TotalTransferredIn.Add(t.TargetAmount)
				st.TransferItems = append(st.TransferItems, TransferItem{
					Direction: TransferIn, RelatedType: t.SourceType, Amount: t.TargetAmount, Date: t.CreatedAt,
				})
			}
			if t.SourceType == lt {
				st.TotalTransferredOut = st.TotalTransferredOut.Add(t.SourceAmount)
				st.TransferItems = append(st.TransferItems, TransferItem{
					Direction: TransferOut, RelatedType: t.TargetType, Amount: t.SourceAmount, Date: t.CreatedAt,
				})
			}
		}
		sort.SliceStable(st.TransferItems, func(i, j int) bool {
			return st.TransferItems[i].Date.After(st.TransferItems[j].Date)
		})

		var expiring []CarryOverRecord
		for _, c := range carryOvers {
			if c.LeaveType != lt || c.ToYear != year {
				continue
			}
			if c.Status == StatusExpired {
				st.TotalExpired = st.TotalExpired.Add(c.CarriedAmount)
				continue
			}
			if !c.Landed() {
				continue
			}
			st.TotalCarriedOver = st.TotalCarriedOver.Add(c.CarriedAmount)
			st.CarriedOverItems = append(st.CarriedOverItems, CarriedOverItem{
				FromYear: c.FromYear, Amount: c.CarriedAmount, ExpiryDate: c.ExpiryDate,
			})
			if c.ExpiryDate.After(now) && DaysUntil(now, c.ExpiryDate) <= ExpiryWarningDays {
				expiring = append(expiring, c)
			}
		}
		if len(expiring) > 0 {
			sort.SliceStable(expiring, func(i, j int) bool {
				return expiring[i].ExpiryDate.Before(expiring[j].ExpiryDate)
			})
			first := expiring[0]
			st.ExpiringCarryOver = &ExpiringCarryOver{
				Amount:          first.CarriedAmount,
				ExpiryDate:      first.ExpiryDate,
				DaysUntilExpiry: DaysUntil(now, first.ExpiryDate),
			}
		}

		out = append(out, st)
	}
	return out
}

// =============================================================================
// STATISTICS
// =============================================================================

// TypeStatistics is the per-type line of QuotaStatistics.
type TypeStatistics struct {
	LeaveType    LeaveType
	Initial      generic.Amount
	Used         generic.Amount
	Remaining    generic.Amount
	TransfersIn  generic.Amount
	TransfersOut generic.Amount
	CarriedOver  generic.Amount
}

// QuotaStatistics aggregates quota states of one or more users.
type QuotaStatistics struct {
	TotalInitial      generic.Amount
	TotalUsed         generic.Amount
	TotalPending      generic.Amount
	TotalRemaining    generic.Amount
	TotalTransfersIn  generic.Amount
	TotalTransfersOut generic.Amount
	TotalCarriedOver  generic.Amount
	TotalExpired      generic.Amount
	// UtilizationRate is used / initial as a percentage, two decimals.
	UtilizationRate decimal.Decimal
	ByLeaveType     []TypeStatistics
}

// ComputeStatistics sums enhanced states. Several users' states may be
// passed at once; lines are merged per leave type in first-seen order.
func ComputeStatistics(states []EnhancedQuotaState) QuotaStatistics {
	s := QuotaStatistics{
		TotalInitial:      zeroDays(),
		TotalUsed:         zeroDays(),
		TotalPending:      zeroDays(),
		TotalRemaining:    zeroDays(),
		TotalTransfersIn:  zeroDays(),
		TotalTransfersOut: zeroDays(),
		TotalCarriedOver:  zeroDays(),
		TotalExpired:      zeroDays(),
		UtilizationRate:   decimal.Zero,
	}
	index := make(map[LeaveType]int)
	for _, st := range states {
		s.TotalInitial = s.TotalInitial.Add(st.Total)
		s.TotalUsed = s.TotalUsed.Add(st.Used)
		s.TotalPending = s.TotalPending.Add(st.Pending)
		s.TotalRemaining = s.TotalRemaining.Add(st.Remaining)
		s.TotalTransfersIn = s.TotalTransfersIn.Add(st.TotalTransferredIn)
		s.TotalTransfersOut = s.TotalTransfersOut.Add(st.TotalTransferredOut)
		s.TotalCarriedOver = s.TotalCarriedOver.Add(st.TotalCarriedOver)
		s.TotalExpired = s.TotalExpired.Add(st.TotalExpired)

		i, ok := index[st.Type]
		if !ok {
			i = len(s.ByLeaveType)
			index[st.Type] = i
			s.ByLeaveType = append(s.ByLeaveType, TypeStatistics{
				LeaveType: st.Type, Initial: zeroDays(), Used: zeroDays(), Remaining: zeroDays(),
				TransfersIn: zeroDays(), TransfersOut: zeroDays(), CarriedOver: zeroDays(),
			})
		}
		line := &s.ByLeaveType[i]
		line.Initial = line.Initial.Add(st.Total)
		line.Used = line.Used.Add(st.Used)
		line.Remaining = line.Remaining.Add(st.Remaining)
		line.TransfersIn = line.TransfersIn.Add(st.TotalTransferredIn)
		line.TransfersOut = line.TransfersOut.Add(st.TotalTransferredOut)
		line.CarriedOver = line.CarriedOver.Add(st.TotalCarriedOver)
	}
	if s.TotalInitial.IsPositive() {
		s.UtilizationRate = s.TotalUsed.Value.Div(s.TotalInitial.Value).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
