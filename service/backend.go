/*
backend.go - What the services need from the quota backend

PURPOSE:
  The services never talk HTTP or SQL themselves. They depend on Backend,
  which api.Client implements over REST and sqlite.Store implements
  locally. The interface is split by concern so tests can fake only what
  they exercise.

SEE ALSO:
  - api/client.go: REST implementation
  - store/sqlite/quota.go: local implementation
*/
package service

import (
	"context"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

// BalanceSource reads balances.
type BalanceSource interface {
	LeaveBalance(ctx context.Context, userID generic.EntityID, year int) (quota.LeaveBalance, error)
}

// RuleSource reads rules in backend order. First match wins downstream,
// so the order is significant.
type RuleSource interface {
	TransferRules(ctx context.Context) ([]quota.TransferRule, error)
	CarryOverRules(ctx context.Context) ([]quota.CarryOverRule, error)
	SpecialPeriods(ctx context.Context) ([]quota.SpecialPeriodRule, error)
}

// RuleAdmin creates, updates and deletes rules. An empty ID creates.
type RuleAdmin interface {
	SaveTransferRule(ctx context.Context, rule quota.TransferRule) (quota.TransferRule, error)
	DeleteTransferRule(ctx context.Context, id string) error
	SaveCarryOverRule(ctx context.Context, rule quota.CarryOverRule) (quota.CarryOverRule, error)
	DeleteCarryOverRule(ctx context.Context, id string) error
	SaveSpecialPeriod(ctx context.Context, rule quota.SpecialPeriodRule) (quota.SpecialPeriodRule, error)
	DeleteSpecialPeriod(ctx context.Context, id string) error
}

// HistorySource reads requests and ledger entries.
type HistorySource interface {
	TransferHistory(ctx context.Context, userID generic.EntityID) ([]quota.TransferRecord, error)
	CarryOverHistory(ctx context.Context, userID generic.EntityID) ([]quota.CarryOverRecord, error)
	Transactions(ctx context.Context, q TransactionQuery) ([]generic.Transaction, error)
}

// RequestSink submits and decides requests. Implementations re-check the
// balance atomically; the services' own checks are advisory.
type RequestSink interface {
	SubmitTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferResult, error)
	SubmitCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error)
	ProcessTransfer(ctx context.Context, d Decision) (quota.TransferRecord, error)
	ProcessCarryOver(ctx context.Context, d Decision) (quota.CarryOverRecord, error)
	AdjustBalance(ctx context.Context, a Adjustment) (quota.LeaveBalance, error)
}

// ReportSource produces reports and statistics.
type ReportSource interface {
	TransferReport(ctx context.Context, opts quota.ReportOptions) (quota.TransferReport, error)
	ExportTransferReport(ctx context.Context, opts quota.ReportOptions) (Export, error)
	Statistics(ctx context.Context, q StatisticsQuery) (quota.QuotaStatistics, error)
}

// Backend is everything the services use.
type Backend interface {
	BalanceSource
	RuleSource
	RuleAdmin
	HistorySource
	RequestSink
	ReportSource
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Decision approves or rejects a pending request.
type Decision struct {
	RequestID   string
	Approve     bool
	ProcessedBy string
	Comment     string
}

// Adjustment is a manual correction of an allowance. Amount may be negative.
type Adjustment struct {
	UserID    generic.EntityID
	LeaveType quota.LeaveType
	Year      int
	Amount    generic.Amount
	Reason    string
	AdminID   string
}

// TransactionQuery filters ledger entries. Zero fields match everything.
type TransactionQuery struct {
	UserID generic.EntityID
	Year   int
	Type   generic.TransactionType
}

// StatisticsQuery scopes statistics to a user or a department.
type StatisticsQuery struct {
	UserID     generic.EntityID
	Department string
	Year       int
}

// Export is a rendered report, opaque to this package.
type Export struct {
	Format      quota.ExportFormat
	ContentType string
	Data        []byte
}
