/*
Package generic provides the core quota bookkeeping primitives.

PURPOSE:
  This package contains domain-agnostic types for tracking day-based
  quotas: amounts, identifiers, time points, periods and the append-only
  transaction ledger. The leave-quota domain (package quota) builds its
  balances, transfers and carry-overs on top of these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 5 days, 3.5 days)
  - Transaction: An immutable ledger entry recording a quota change
  - Entity/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only compensated
  2. Precision: Uses decimal.Decimal, half days must stay exact
  3. Type Safety: Strong typing for IDs prevents mixing entity/transaction IDs

USAGE:
  amount := generic.NewAmount(2.5, generic.UnitDays)
  tx := generic.Transaction{
      EntityID:     "emp-123",
      ResourceType: quota.LeaveAnnual,
      Delta:        amount,
      Type:         generic.TxTransfer,
  }

SEE ALSO:
  - ledger.go: Transaction persistence interface
  - period.go: Quota periods (calendar or fiscal year)
  - quota/balance.go: Leave balances derived from transactions
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

var half = decimal.NewFromFloat(0.5)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

// Days is shorthand for an amount in days.
func Days(value float64) Amount { return NewAmount(value, UnitDays) }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.unitOr(b)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.unitOr(b)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Float64() float64             { f, _ := a.Value.Float64(); return f }
func (a Amount) String() string               { return a.Value.String() }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampZero returns the amount, or zero when it is negative.
func (a Amount) ClampZero() Amount {
	if a.IsNegative() {
		return a.Zero()
	}
	return a
}

// Percent returns pct percent of the amount.
func (a Amount) Percent(pct decimal.Decimal) Amount {
	return a.Mul(pct).Div(decimal.NewFromInt(100))
}

// Floor rounds down to a whole unit.
func (a Amount) Floor() Amount { return Amount{Value: a.Value.Floor(), Unit: a.Unit} }

// RoundToHalf rounds to the nearest half unit (half-day granularity).
func (a Amount) RoundToHalf() Amount {
	return Amount{Value: a.Value.Mul(decimal.NewFromInt(2)).Round(0).Mul(half), Unit: a.Unit}
}

// unitOr keeps the receiver's unit, falling back to b's when the receiver
// is a zero-value Amount.
func (a Amount) unitOr(b Amount) Unit {
	if a.Unit == "" {
		return b.Unit
	}
	return a.Unit
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type TransactionID string

// ResourceType identifies what kind of quota bucket is being tracked.
// This is an interface so domain packages define their own concrete types.
//
// Domain packages implement this:
//
//	// In quota/types.go
//	type LeaveType string
//	func (t LeaveType) ResourceID() string { return string(t) }
//	func (t LeaveType) ResourceDomain() string { return "leave" }
type ResourceType interface {
	// ResourceID returns the unique identifier for this resource type.
	ResourceID() string

	// ResourceDomain returns which domain this resource belongs to.
	ResourceDomain() string
}

// =============================================================================
// TRANSACTION - Atomic change to a quota bucket
// =============================================================================

type TransactionType string

const (
	TxInitialGrant TransactionType = "INITIAL_GRANT" // Yearly allowance
	TxTransfer     TransactionType = "TRANSFER"      // One leg of a transfer between leave types
	TxCarryOver    TransactionType = "CARRY_OVER"    // One leg of a carry-over between years
	TxAdjustment   TransactionType = "ADJUSTMENT"    // Manual admin correction
	TxExpiration   TransactionType = "EXPIRATION"    // Carried-over days that expired
	TxUsage        TransactionType = "USAGE"         // Days taken
	TxPending      TransactionType = "PENDING"       // Days reserved by a request awaiting approval
	TxCancellation TransactionType = "CANCELLATION"  // Undo of a usage or pending reservation
)

// AllocationTypes are the transaction types that change a bucket's allowance.
var AllocationTypes = []TransactionType{TxInitialGrant, TxTransfer, TxCarryOver, TxAdjustment, TxExpiration}

// IsAllocation reports whether the type changes the allowance rather than usage.
func (t TransactionType) IsAllocation() bool {
	for _, a := range AllocationTypes {
		if a == t {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	ResourceType   ResourceType
	EffectiveAt    TimePoint
	Delta          Amount
	Type           TransactionType
	ReferenceID    string // transfer or carry-over request that produced this entry
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string

	// Audit fields
	CreatedBy string
	CreatedAt TimePoint
}
