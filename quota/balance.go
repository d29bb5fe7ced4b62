/*
balance.go - Leave balances per user and year

PURPOSE:
  A LeaveBalance answers "how many days of each leave type does this user
  have left this year?". Remaining is never stored; it is recomputed from
  allowance, used and pending on every read.

REMAINING:
  total(ANNUAL)   = InitialAllowance
  total(RECOVERY) = AdditionalAllowance
  total(other)    = DetailsByType[type].Allowance
  remaining(type) = max(0, total - used - pending)

LEDGER FOLD:
  BalanceFromTransactions builds a LeaveBalance from ledger entries.
  Allocation entries (grant, transfer, carry-over, adjustment, expiration)
  move the allowance; USAGE and PENDING entries move used and pending;
  CANCELLATION entries give back days, reversing the entry they reference.
*/
package quota

import (
	"github.com/warp/leave-quota/generic"
)

// TypeDetail is the per-type breakdown of a balance.
type TypeDetail struct {
	Allowance generic.Amount
	Used      generic.Amount
	Pending   generic.Amount
}

// LeaveBalance is a user's quota for one accounting year.
type LeaveBalance struct {
	UserID              generic.EntityID
	Year                int
	InitialAllowance    generic.Amount
	AdditionalAllowance generic.Amount
	DetailsByType       map[LeaveType]TypeDetail
}

// NewLeaveBalance returns an empty balance for user and year.
func NewLeaveBalance(userID generic.EntityID, year int) LeaveBalance {
	return LeaveBalance{
		UserID:              userID,
		Year:                year,
		InitialAllowance:    zeroDays(),
		AdditionalAllowance: zeroDays(),
		DetailsByType:       make(map[LeaveType]TypeDetail),
	}
}

// Detail returns the breakdown for t, zero-valued when absent.
func (b LeaveBalance) Detail(t LeaveType) TypeDetail {
	d, ok := b.DetailsByType[t]
	if !ok {
		return TypeDetail{Allowance: zeroDays(), Used: zeroDays(), Pending: zeroDays()}
	}
	return d
}

// Total is the allowance of t before usage.
func (b LeaveBalance) Total(t LeaveType) generic.Amount {
	switch t {
	case LeaveAnnual:
		return b.InitialAllowance
	case LeaveRecovery:
		return b.AdditionalAllowance
	default:
		return b.Detail(t).Allowance
	}
}

func (b LeaveBalance) Used(t LeaveType) generic.Amount    { return b.Detail(t).Used }
func (b LeaveBalance) Pending(t LeaveType) generic.Amount { return b.Detail(t).Pending }

// Remaining is max(0, total - used - pending).
func (b LeaveBalance) Remaining(t LeaveType) generic.Amount {
	d := b.Detail(t)
	return b.Total(t).Sub(d.Used).Sub(d.Pending).ClampZero()
}

// QuotaForType is the flattened view of one leave type.
type QuotaForType struct {
	Type      LeaveType
	Total     generic.Amount
	Used      generic.Amount
	Pending   generic.Amount
	Remaining generic.Amount
}

// QuotaFor returns the flattened view of t.
func (b LeaveBalance) QuotaFor(t LeaveType) QuotaForType {
	d := b.Detail(t)
	return QuotaForType{
		Type:      t,
		Total:     b.Total(t),
		Used:      d.Used,
		Pending:   d.Pending,
		Remaining: b.Remaining(t),
	}
}

// SetAllowance sets the allowance of t, keeping the ANNUAL and RECOVERY
// top-level fields in sync with their detail rows.
func (b *LeaveBalance) SetAllowance(t LeaveType, amount generic.Amount) {
	if b.DetailsByType == nil {
		b.DetailsByType = make(map[LeaveType]TypeDetail)
	}
	d := b.Detail(t)
	d.Allowance = amount
	b.DetailsByType[t] = d
	switch t {
	case LeaveAnnual:
		b.InitialAllowance = amount
	case LeaveRecovery:
		b.AdditionalAllowance = amount
	}
}

// =============================================================================
// LEDGER FOLD
// =============================================================================

// BalanceFromTransactions folds the year's ledger entries into a balance.
// Entries whose resource is not a LeaveType are ignored.
func BalanceFromTransactions(userID generic.EntityID, year int, txs []generic.Transaction) LeaveBalance {
	b := NewLeaveBalance(userID, year)

	reversed := make(map[string]generic.TransactionType)
	byID := make(map[generic.TransactionID]generic.TransactionType, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx.Type
	}
	for _, tx := range txs {
		if tx.Type == generic.TxCancellation {
			reversed[string(tx.ID)] = byID[generic.TransactionID(tx.ReferenceID)]
		}
	}

	for _, tx := range txs {
		t, ok := tx.ResourceType.(LeaveType)
		if !ok {
			continue
		}
		d := b.Detail(t)
		switch {
		case tx.Type.IsAllocation():
			d.Allowance = d.Allowance.Add(tx.Delta)
		case tx.Type == generic.TxUsage:
			d.Used = d.Used.Sub(tx.Delta)
		case tx.Type == generic.TxPending:
			d.Pending = d.Pending.Sub(tx.Delta)
		case tx.Type == generic.TxCancellation:
			if reversed[string(tx.ID)] == generic.TxPending {
				d.Pending = d.Pending.Sub(tx.Delta)
			} else {
				d.Used = d.Used.Sub(tx.Delta)
			}
		}
		b.DetailsByType[t] = d
	}

	b.InitialAllowance = b.Detail(LeaveAnnual).Allowance
	b.AdditionalAllowance = b.Detail(LeaveRecovery).Allowance
	return b
}
