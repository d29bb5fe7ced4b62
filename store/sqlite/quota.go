package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

var _ service.Backend = (*Store)(nil)

// =============================================================================
// BALANCES
// =============================================================================

// LeaveBalance folds the employee's ledger rows effective in year.
func (s *Store) LeaveBalance(ctx context.Context, userID generic.EntityID, year int) (quota.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.leaveBalance(ctx, s.db, userID, year)
}

func (s *Store) leaveBalance(ctx context.Context, db querier, userID generic.EntityID, year int) (quota.LeaveBalance, error) {
	if _, err := getEmployee(ctx, db, string(userID)); err != nil {
		return quota.LeaveBalance{}, err
	}
	txs, err := s.yearTransactions(ctx, db, userID, year)
	if err != nil {
		return quota.LeaveBalance{}, err
	}
	return quota.BalanceFromTransactions(userID, year, txs), nil
}

// GrantAllowance appends the yearly INITIAL_GRANT of t, effective Jan 1.
func (s *Store) GrantAllowance(ctx context.Context, userID generic.EntityID, t quota.LeaveType, year int, amount generic.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger(s.db).Append(ctx, generic.Transaction{
		ID:             generic.TransactionID(uuid.NewString()),
		EntityID:       userID,
		ResourceType:   t,
		EffectiveAt:    generic.StartOfYear(year),
		Delta:          amount,
		Type:           generic.TxInitialGrant,
		Reason:         "yearly allowance",
		IdempotencyKey: fmt.Sprintf("grant:%s:%s:%d", userID, t, year),
	})
}

// RecordUsage appends days taken (USAGE) or reserved (PENDING) on date.
func (s *Store) RecordUsage(ctx context.Context, userID generic.EntityID, t quota.LeaveType, date time.Time, amount generic.Amount, pending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txType := generic.TxUsage
	if pending {
		txType = generic.TxPending
	}
	return s.ledger(s.db).Append(ctx, generic.Transaction{
		ID:           generic.TransactionID(uuid.NewString()),
		EntityID:     userID,
		ResourceType: t,
		EffectiveAt:  generic.At(date),
		Delta:        amount.Neg(),
		Type:         txType,
	})
}

// AdjustBalance appends a manual ADJUSTMENT. A negative amount may not
// take the allowance below zero.
func (s *Store) AdjustBalance(ctx context.Context, a service.Adjustment) (quota.LeaveBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var balance quota.LeaveBalance
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		b, err := s.leaveBalance(ctx, tx, a.UserID, a.Year)
		if err != nil {
			return err
		}
		if b.Total(a.LeaveType).Add(a.Amount).IsNegative() {
			return &generic.InsufficientBalanceError{
				EntityID:     a.UserID,
				ResourceType: a.LeaveType,
				Available:    b.Total(a.LeaveType),
				Requested:    a.Amount.Neg(),
			}
		}
		if err := s.ledger(tx).Append(ctx, generic.Transaction{
			ID:           generic.TransactionID(uuid.NewString()),
			EntityID:     a.UserID,
			ResourceType: a.LeaveType,
			EffectiveAt:  effectiveIn(a.Year, now),
			Delta:        a.Amount,
			Type:         generic.TxAdjustment,
			Reason:       a.Reason,
			CreatedBy:    a.AdminID,
		}); err != nil {
			return err
		}
		balance, err = s.leaveBalance(ctx, tx, a.UserID, a.Year)
		return err
	})
	return balance, err
}

// effectiveIn places a ledger row in year: now when now is in year,
// otherwise Jan 1 of year.
func effectiveIn(year int, now time.Time) generic.TimePoint {
	if now.Year() == year {
		return generic.At(now)
	}
	return generic.StartOfYear(year)
}

// =============================================================================
// RULES
// =============================================================================

// TransferRules returns every transfer rule in insertion order.
func (s *Store) TransferRules(ctx context.Context) ([]quota.TransferRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadRules[quota.TransferRule](ctx, s.db, "transfer_rules")
}

// CarryOverRules returns every carry-over rule in insertion order.
func (s *Store) CarryOverRules(ctx context.Context) ([]quota.CarryOverRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadRules[quota.CarryOverRule](ctx, s.db, "carry_over_rules")
}

// SpecialPeriods returns every special period in insertion order.
func (s *Store) SpecialPeriods(ctx context.Context) ([]quota.SpecialPeriodRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadRules[quota.SpecialPeriodRule](ctx, s.db, "special_periods")
}

func loadRules[T any](ctx context.Context, db querier, table string) ([]T, error) {
	rows, err := db.QueryContext(ctx, "SELECT rule_json FROM "+table+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r T
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveTransferRule validates and upserts a rule. An empty ID creates one;
// updates keep the rule's position.
func (s *Store) SaveTransferRule(ctx context.Context, r quota.TransferRule) (quota.TransferRule, error) {
	if err := r.Validate(); err != nil {
		return quota.TransferRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID, r.CreatedAt, r.UpdatedAt = s.stamp(r.ID, r.CreatedAt)
	raw, _ := json.Marshal(r)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_rules (id, source_type, target_type, active, rule_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_type = excluded.source_type,
			target_type = excluded.target_type,
			active = excluded.active,
			rule_json = excluded.rule_json,
			updated_at = excluded.updated_at
	`, r.ID, r.SourceType, r.TargetType, r.Active, string(raw), formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return quota.TransferRule{}, fmt.Errorf("failed to save transfer rule: %w", err)
	}
	return r, nil
}

// SaveCarryOverRule validates and upserts a rule.
func (s *Store) SaveCarryOverRule(ctx context.Context, r quota.CarryOverRule) (quota.CarryOverRule, error) {
	if err := r.Validate(); err != nil {
		return quota.CarryOverRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID, r.CreatedAt, r.UpdatedAt = s.stamp(r.ID, r.CreatedAt)
	raw, _ := json.Marshal(r)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carry_over_rules (id, leave_type, active, rule_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type = excluded.leave_type,
			active = excluded.active,
			rule_json = excluded.rule_json,
			updated_at = excluded.updated_at
	`, r.ID, r.LeaveType, r.Active, string(raw), formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return quota.CarryOverRule{}, fmt.Errorf("failed to save carry-over rule: %w", err)
	}
	return r, nil
}

// SaveSpecialPeriod validates and upserts a special period.
func (s *Store) SaveSpecialPeriod(ctx context.Context, r quota.SpecialPeriodRule) (quota.SpecialPeriodRule, error) {
	if err := r.Validate(); err != nil {
		return quota.SpecialPeriodRule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID, r.CreatedAt, r.UpdatedAt = s.stamp(r.ID, r.CreatedAt)
	raw, _ := json.Marshal(r)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO special_periods (id, name, active, rule_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			rule_json = excluded.rule_json,
			updated_at = excluded.updated_at
	`, r.ID, r.Name, r.Active, string(raw), formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return quota.SpecialPeriodRule{}, fmt.Errorf("failed to save special period: %w", err)
	}
	return r, nil
}

// stamp assigns an ID to new rules and the created/updated timestamps.
func (s *Store) stamp(id string, created time.Time) (string, time.Time, time.Time) {
	now := s.now().UTC().Truncate(time.Second)
	if id == "" {
		id = uuid.NewString()
	}
	if created.IsZero() {
		created = now
	}
	return id, created, now
}

// DeleteTransferRule removes a transfer rule.
func (s *Store) DeleteTransferRule(ctx context.Context, id string) error {
	return s.deleteRule(ctx, "transfer_rules", id)
}

// DeleteCarryOverRule removes a carry-over rule.
func (s *Store) DeleteCarryOverRule(ctx context.Context, id string) error {
	return s.deleteRule(ctx, "carry_over_rules", id)
}

// DeleteSpecialPeriod removes a special period.
func (s *Store) DeleteSpecialPeriod(ctx context.Context, id string) error {
	return s.deleteRule(ctx, "special_periods", id)
}

func (s *Store) deleteRule(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, quota.ErrRuleNotFound)
	}
	return nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

// SubmitTransfer re-evaluates the transfer against the current balance and
// rules inside one SQL transaction. Valid transfers needing approval are
// stored PENDING; the others are COMPLETED with both ledger legs appended.
func (s *Store) SubmitTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result quota.TransferResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		year := req.BalanceYear(now)
		balance, err := s.leaveBalance(ctx, tx, req.UserID, year)
		if err != nil {
			return err
		}
		rules, err := loadRules[quota.TransferRule](ctx, tx, "transfer_rules")
		if err != nil {
			return err
		}
		sim := quota.EvaluateTransfer(balance, rules, req, quota.AdvancedTransfer, now)
		if !sim.Valid {
			return fmt.Errorf("%w: %w", quota.ErrTransferRejected, sim.Reason)
		}

		rec := quota.TransferRecord{
			ID:           uuid.NewString(),
			UserID:       req.UserID,
			SourceType:   req.SourceType,
			TargetType:   req.TargetType,
			SourceAmount: sim.SourceAmount,
			TargetAmount: sim.TargetAmount,
			Ratio:        sim.AppliedRatio,
			Status:       quota.StatusCompleted,
			Comment:      req.Comment,
			CreatedAt:    now,
		}
		if sim.AppliedRule != nil {
			rec.RuleID = sim.AppliedRule.ID
		}
		if sim.RequiresApproval {
			rec.Status = quota.StatusPending
		} else {
			rec.ProcessedAt = now
		}
		if err := insertTransfer(ctx, tx, rec, year); err != nil {
			return err
		}
		if rec.Status == quota.StatusCompleted {
			if err := s.ledger(tx).AppendBatch(ctx, transferLegs(rec, year, now)); err != nil {
				return err
			}
		}
		result = quota.TransferResult{Success: true, TransferID: rec.ID, Status: rec.Status, Simulation: sim}
		return nil
	})
	return result, err
}

// ProcessTransfer approves or rejects a PENDING transfer. Approval
// re-checks the source balance and appends the ledger legs.
func (s *Store) ProcessTransfer(ctx context.Context, d service.Decision) (quota.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var rec quota.TransferRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, year, err := getTransfer(ctx, tx, d.RequestID)
		if err != nil {
			return err
		}
		if r.Status.IsFinal() {
			return fmt.Errorf("transfer %s is %s: %w", r.ID, r.Status, quota.ErrAlreadyProcessed)
		}

		r.Status = quota.StatusRejected
		r.ProcessedAt = now
		r.ProcessedBy = d.ProcessedBy
		if d.Approve {
			balance, err := s.leaveBalance(ctx, tx, r.UserID, year)
			if err != nil {
				return err
			}
			if remaining := balance.Remaining(r.SourceType); r.SourceAmount.GreaterThan(remaining) {
				return &generic.InsufficientBalanceError{
					EntityID: r.UserID, ResourceType: r.SourceType, Available: remaining, Requested: r.SourceAmount,
				}
			}
			if err := s.ledger(tx).AppendBatch(ctx, transferLegs(r, year, now)); err != nil {
				return err
			}
			r.Status = quota.StatusApproved
		}
		if d.Comment != "" {
			r.Comment = d.Comment
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE transfers SET status = ?, processed_at = ?, processed_by = ?, comment = ? WHERE id = ?",
			r.Status, formatTime(now), r.ProcessedBy, r.Comment, r.ID,
		); err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// transferLegs debits the source bucket and credits the target bucket.
func transferLegs(rec quota.TransferRecord, year int, now time.Time) []generic.Transaction {
	at := effectiveIn(year, now)
	return []generic.Transaction{
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       rec.UserID,
			ResourceType:   rec.SourceType,
			EffectiveAt:    at,
			Delta:          rec.SourceAmount.Neg(),
			Type:           generic.TxTransfer,
			ReferenceID:    rec.ID,
			Reason:         "transfer to " + string(rec.TargetType),
			IdempotencyKey: "transfer:" + rec.ID + ":debit",
			CreatedBy:      rec.ProcessedBy,
		},
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       rec.UserID,
			ResourceType:   rec.TargetType,
			EffectiveAt:    at,
			Delta:          rec.TargetAmount,
			Type:           generic.TxTransfer,
			ReferenceID:    rec.ID,
			Reason:         "transfer from " + string(rec.SourceType),
			IdempotencyKey: "transfer:" + rec.ID + ":credit",
			CreatedBy:      rec.ProcessedBy,
		},
	}
}

func insertTransfer(ctx context.Context, db querier, r quota.TransferRecord, year int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO transfers (id, user_id, source_type, target_type, source_amount, target_amount,
			ratio, balance_year, status, rule_id, comment, created_at, processed_at, processed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.SourceType, r.TargetType, r.SourceAmount.Value.String(), r.TargetAmount.Value.String(),
		r.Ratio.String(), year, r.Status, nullString(r.RuleID), r.Comment, formatTime(r.CreatedAt),
		nullTime(&r.ProcessedAt), nullString(r.ProcessedBy))
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

const transferColumns = `t.id, t.user_id, COALESCE(e.name, ''), COALESCE(e.department, ''),
	t.source_type, t.target_type, t.source_amount, t.target_amount, t.ratio, t.balance_year,
	t.status, t.rule_id, t.comment, t.created_at, t.processed_at, t.processed_by`

func getTransfer(ctx context.Context, db querier, id string) (quota.TransferRecord, int, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+transferColumns+`
		FROM transfers t LEFT JOIN employees e ON e.id = t.user_id
		WHERE t.id = ?`, id)
	if err != nil {
		return quota.TransferRecord{}, 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return quota.TransferRecord{}, 0, err
		}
		return quota.TransferRecord{}, 0, fmt.Errorf("transfer %s: %w", id, quota.ErrRequestNotFound)
	}
	return scanTransfer(rows)
}

// TransferHistory lists transfers newest first. An empty userID lists all.
func (s *Store) TransferHistory(ctx context.Context, userID generic.EntityID) ([]quota.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listTransfers(ctx, s.db, userID)
}

func listTransfers(ctx context.Context, db querier, userID generic.EntityID) ([]quota.TransferRecord, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers t LEFT JOIN employees e ON e.id = t.user_id`
	var args []any
	if userID != "" {
		query += " WHERE t.user_id = ?"
		args = append(args, userID)
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY t.created_at DESC, t.id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []quota.TransferRecord
	for rows.Next() {
		r, _, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTransfer(rows *sql.Rows) (quota.TransferRecord, int, error) {
	var (
		r                      quota.TransferRecord
		year                   int
		srcAmount, tgtAmount   string
		ratio                  string
		ruleID, comment        sql.NullString
		createdAt              string
		processedAt, processor sql.NullString
	)
	if err := rows.Scan(
		&r.ID, &r.UserID, &r.UserName, &r.Department,
		&r.SourceType, &r.TargetType, &srcAmount, &tgtAmount, &ratio, &year,
		&r.Status, &ruleID, &comment, &createdAt, &processedAt, &processor,
	); err != nil {
		return r, 0, fmt.Errorf("failed to scan transfer: %w", err)
	}
	r.SourceAmount = parseAmount(srcAmount, string(generic.UnitDays))
	r.TargetAmount = parseAmount(tgtAmount, string(generic.UnitDays))
	r.Ratio = generic.MustParseDecimal(ratio)
	r.RuleID = ruleID.String
	r.Comment = comment.String
	r.CreatedAt = parseTime(createdAt)
	if t := parseNullTime(processedAt); t != nil {
		r.ProcessedAt = *t
	}
	r.ProcessedBy = processor.String
	return r, year, nil
}

// =============================================================================
// CARRY-OVERS
// =============================================================================

// SubmitCarryOver re-evaluates the carry-over of the FromYear balance and
// stores it. One active carry-over per (user, leave type, from year).
func (s *Store) SubmitCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result quota.CarryOverResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = s.submitCarryOver(ctx, tx, req, s.now())
		return err
	})
	return result, err
}

func (s *Store) submitCarryOver(ctx context.Context, tx querier, req quota.CarryOverRequest, now time.Time) (quota.CarryOverResult, error) {
	if period := quota.QuotaPeriodForYear(req.FromYear, s.deadline); !period.CarryOverOpen(now) {
		return quota.CarryOverResult{}, fmt.Errorf("carry-over from %d closed on %s: %w",
			req.FromYear, period.CarryOverDeadline.Format(time.DateOnly), quota.ErrCarryOverClosed)
	}
	balance, err := s.leaveBalance(ctx, tx, req.UserID, req.FromYear)
	if err != nil {
		return quota.CarryOverResult{}, err
	}
	var existing int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM carry_overs
		WHERE user_id = ? AND leave_type = ? AND from_year = ? AND status IN (?, ?, ?)
	`, req.UserID, req.LeaveType, req.FromYear, quota.StatusPending, quota.StatusApproved, quota.StatusCompleted,
	).Scan(&existing); err != nil {
		return quota.CarryOverResult{}, err
	}
	if existing > 0 {
		return quota.CarryOverResult{}, fmt.Errorf("carry-over of %s from %d: %w", req.LeaveType, req.FromYear, quota.ErrAlreadyProcessed)
	}

	rules, err := loadRules[quota.CarryOverRule](ctx, tx, "carry_over_rules")
	if err != nil {
		return quota.CarryOverResult{}, err
	}
	calc := quota.EvaluateCarryOver(balance, rules, req, quota.AdvancedCarryOver, now)
	if !calc.Valid() {
		if calc.Reason != nil && !errors.Is(calc.Reason, quota.ErrNothingToCarryOver) {
			return quota.CarryOverResult{}, fmt.Errorf("%w: %w", quota.ErrNothingToCarryOver, calc.Reason)
		}
		return quota.CarryOverResult{}, quota.ErrNothingToCarryOver
	}

	rec := quota.CarryOverRecord{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		LeaveType:       req.LeaveType,
		FromYear:        req.FromYear,
		ToYear:          req.TargetYear(),
		RequestedAmount: calc.CarryOverAmount,
		CarriedAmount:   calc.CarryOverAmount,
		ExpiryDate:      calc.ExpiryDate,
		Status:          quota.StatusCompleted,
		Comment:         req.Comment,
		CreatedAt:       now,
	}
	if req.Amount.IsPositive() {
		rec.RequestedAmount = req.Amount
	}
	if calc.AppliedRule != nil {
		rec.RuleID = calc.AppliedRule.ID
	}
	if calc.RequiresApproval {
		rec.Status = quota.StatusPending
	} else {
		rec.ProcessedAt = now
	}
	if err := insertCarryOver(ctx, tx, rec); err != nil {
		return quota.CarryOverResult{}, err
	}
	if rec.Status == quota.StatusCompleted {
		if err := s.ledger(tx).AppendBatch(ctx, carryOverLegs(rec)); err != nil {
			return quota.CarryOverResult{}, err
		}
	}
	return quota.CarryOverResult{Success: true, CarryOverID: rec.ID, Status: rec.Status, Calculation: calc}, nil
}

// ProcessCarryOver approves or rejects a PENDING carry-over.
func (s *Store) ProcessCarryOver(ctx context.Context, d service.Decision) (quota.CarryOverRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var rec quota.CarryOverRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, err := getCarryOver(ctx, tx, d.RequestID)
		if err != nil {
			return err
		}
		if r.Status.IsFinal() {
			return fmt.Errorf("carry-over %s is %s: %w", r.ID, r.Status, quota.ErrAlreadyProcessed)
		}

		r.Status = quota.StatusRejected
		r.ProcessedAt = now
		r.ProcessedBy = d.ProcessedBy
		if d.Approve {
			balance, err := s.leaveBalance(ctx, tx, r.UserID, r.FromYear)
			if err != nil {
				return err
			}
			if remaining := balance.Remaining(r.LeaveType); r.CarriedAmount.GreaterThan(remaining) {
				return &generic.InsufficientBalanceError{
					EntityID: r.UserID, ResourceType: r.LeaveType, Available: remaining, Requested: r.CarriedAmount,
				}
			}
			if err := s.ledger(tx).AppendBatch(ctx, carryOverLegs(r)); err != nil {
				return err
			}
			r.Status = quota.StatusApproved
		}
		if d.Comment != "" {
			r.Comment = d.Comment
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE carry_overs SET status = ?, processed_at = ?, processed_by = ?, comment = ? WHERE id = ?",
			r.Status, formatTime(now), r.ProcessedBy, r.Comment, r.ID,
		); err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// carryOverLegs debits the last day of FromYear and credits Jan 1 of ToYear.
// The credit carries its expiry date in metadata.
func carryOverLegs(rec quota.CarryOverRecord) []generic.Transaction {
	return []generic.Transaction{
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       rec.UserID,
			ResourceType:   rec.LeaveType,
			EffectiveAt:    generic.EndOfYear(rec.FromYear),
			Delta:          rec.CarriedAmount.Neg(),
			Type:           generic.TxCarryOver,
			ReferenceID:    rec.ID,
			Reason:         "carried over to " + strconv.Itoa(rec.ToYear),
			IdempotencyKey: "carryover:" + rec.ID + ":debit",
			CreatedBy:      rec.ProcessedBy,
		},
		{
			ID:             generic.TransactionID(uuid.NewString()),
			EntityID:       rec.UserID,
			ResourceType:   rec.LeaveType,
			EffectiveAt:    generic.StartOfYear(rec.ToYear),
			Delta:          rec.CarriedAmount,
			Type:           generic.TxCarryOver,
			ReferenceID:    rec.ID,
			Reason:         "carried over from " + strconv.Itoa(rec.FromYear),
			IdempotencyKey: "carryover:" + rec.ID + ":credit",
			Metadata:       map[string]string{"expiresAt": formatTime(rec.ExpiryDate)},
			CreatedBy:      rec.ProcessedBy,
		},
	}
}

func insertCarryOver(ctx context.Context, db querier, r quota.CarryOverRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO carry_overs (id, user_id, leave_type, from_year, to_year, requested_amount,
			carried_amount, expiry_date, status, rule_id, comment, created_at, processed_at, processed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, r.LeaveType, r.FromYear, r.ToYear, r.RequestedAmount.Value.String(),
		r.CarriedAmount.Value.String(), formatTime(r.ExpiryDate), r.Status, nullString(r.RuleID), r.Comment,
		formatTime(r.CreatedAt), nullTime(&r.ProcessedAt), nullString(r.ProcessedBy))
	if err != nil {
		return fmt.Errorf("failed to insert carry-over: %w", err)
	}
	return nil
}

const carryOverColumns = `id, user_id, leave_type, from_year, to_year, requested_amount, carried_amount,
	expiry_date, status, rule_id, comment, created_at, processed_at, processed_by`

func getCarryOver(ctx context.Context, db querier, id string) (quota.CarryOverRecord, error) {
	rows, err := queryCarryOvers(ctx, db, `SELECT `+carryOverColumns+` FROM carry_overs WHERE id = ?`, id)
	if err != nil {
		return quota.CarryOverRecord{}, err
	}
	if len(rows) == 0 {
		return quota.CarryOverRecord{}, fmt.Errorf("carry-over %s: %w", id, quota.ErrRequestNotFound)
	}
	return rows[0], nil
}

// CarryOverHistory lists carry-overs newest first. An empty userID lists all.
func (s *Store) CarryOverHistory(ctx context.Context, userID generic.EntityID) ([]quota.CarryOverRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listCarryOvers(ctx, s.db, userID)
}

func listCarryOvers(ctx context.Context, db querier, userID generic.EntityID) ([]quota.CarryOverRecord, error) {
	query := `SELECT ` + carryOverColumns + ` FROM carry_overs`
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	return queryCarryOvers(ctx, db, query+" ORDER BY created_at DESC, id", args...)
}

func queryCarryOvers(ctx context.Context, db querier, query string, args ...any) ([]quota.CarryOverRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query carry-overs: %w", err)
	}
	defer rows.Close()

	var out []quota.CarryOverRecord
	for rows.Next() {
		var (
			r                      quota.CarryOverRecord
			requested, carried     string
			expiry, createdAt      string
			ruleID, comment        sql.NullString
			processedAt, processor sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.LeaveType, &r.FromYear, &r.ToYear, &requested, &carried,
			&expiry, &r.Status, &ruleID, &comment, &createdAt, &processedAt, &processor,
		); err != nil {
			return nil, fmt.Errorf("failed to scan carry-over: %w", err)
		}
		r.RequestedAmount = parseAmount(requested, string(generic.UnitDays))
		r.CarriedAmount = parseAmount(carried, string(generic.UnitDays))
		r.ExpiryDate = parseTime(expiry)
		r.RuleID = ruleID.String
		r.Comment = comment.String
		r.CreatedAt = parseTime(createdAt)
		if t := parseNullTime(processedAt); t != nil {
			r.ProcessedAt = *t
		}
		r.ProcessedBy = processor.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExpireCarryOvers expires landed batches whose expiry date has passed:
// the unused part (capped by the bucket's remaining days) is removed with
// an EXPIRATION entry and the request becomes EXPIRED. Returns the number
// of batches expired.
func (s *Store) ExpireCarryOvers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		due, err := queryCarryOvers(ctx, tx, `SELECT `+carryOverColumns+` FROM carry_overs
			WHERE status IN (?, ?) AND expiry_date <= ? ORDER BY expiry_date`,
			quota.StatusCompleted, quota.StatusApproved, formatTime(now))
		if err != nil {
			return err
		}
		for _, r := range due {
			balance, err := s.leaveBalance(ctx, tx, r.UserID, r.ToYear)
			if err != nil {
				return err
			}
			amount := r.CarriedAmount.Min(balance.Remaining(r.LeaveType))
			if amount.IsPositive() {
				at := r.ExpiryDate
				if end := generic.EndOfDay(r.ToYear, time.December, 31); at.After(end) {
					at = end
				}
				if err := s.ledger(tx).Append(ctx, generic.Transaction{
					ID:             generic.TransactionID(uuid.NewString()),
					EntityID:       r.UserID,
					ResourceType:   r.LeaveType,
					EffectiveAt:    generic.At(at),
					Delta:          amount.Neg(),
					Type:           generic.TxExpiration,
					ReferenceID:    r.ID,
					Reason:         "carried-over days expired",
					IdempotencyKey: "expiration:" + r.ID,
				}); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, "UPDATE carry_overs SET status = ? WHERE id = ?", quota.StatusExpired, r.ID); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	return expired, err
}

// ProcessAnnualCarryOver carries over every eligible leave type of every
// employee from fromYear into the next year, once. A completed run for
// the same year is not repeated.
func (s *Store) ProcessAnnualCarryOver(ctx context.Context, fromYear int) (CarryOverRun, error) {
	done, err := s.IsCarryOverRunComplete(ctx, fromYear)
	if err != nil {
		return CarryOverRun{}, err
	}
	if done {
		return CarryOverRun{}, fmt.Errorf("annual carry-over from %d: %w", fromYear, quota.ErrAlreadyProcessed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	started := now
	run := CarryOverRun{
		ID:          uuid.NewString(),
		FromYear:    fromYear,
		ToYear:      fromYear + 1,
		Status:      RunRunning,
		CarriedOver: generic.Days(0),
		StartedAt:   &started,
		CreatedAt:   now,
	}
	if err := saveCarryOverRun(ctx, s.db, run); err != nil {
		return run, err
	}

	runErr := s.runAnnualCarryOver(ctx, &run, now)
	completed := s.now()
	run.CompletedAt = &completed
	run.Status = RunCompleted
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}
	if err := saveCarryOverRun(ctx, s.db, run); err != nil {
		return run, err
	}
	return run, runErr
}

func (s *Store) runAnnualCarryOver(ctx context.Context, run *CarryOverRun, now time.Time) error {
	employees, err := listEmployees(ctx, s.db, "")
	if err != nil {
		return err
	}
	rules, err := loadRules[quota.CarryOverRule](ctx, s.db, "carry_over_rules")
	if err != nil {
		return err
	}
	for _, emp := range employees {
		userID := generic.EntityID(emp.ID)
		balance, err := s.leaveBalance(ctx, s.db, userID, run.FromYear)
		if err != nil {
			return err
		}
		for _, t := range quota.EligibleCarryOverTypes(balance, rules) {
			var result quota.CarryOverResult
			err := s.inTx(ctx, func(tx *sql.Tx) error {
				var err error
				result, err = s.submitCarryOver(ctx, tx, quota.CarryOverRequest{
					UserID: userID, LeaveType: t, FromYear: run.FromYear, ToYear: run.ToYear,
					Comment: "annual carry-over",
				}, now)
				return err
			})
			switch {
			case errors.Is(err, quota.ErrNothingToCarryOver), errors.Is(err, quota.ErrAlreadyProcessed),
				errors.Is(err, quota.ErrCarryOverClosed):
				run.Skipped++
				continue
			case err != nil:
				return fmt.Errorf("carry over %s for %s: %w", t, emp.ID, err)
			}
			run.Processed++
			run.CarriedOver = run.CarriedOver.Add(result.Calculation.CarryOverAmount)
		}
	}
	return nil
}

// =============================================================================
// LEDGER QUERIES
// =============================================================================

// Transactions lists ledger rows matching q, newest first.
func (s *Store) Transactions(ctx context.Context, q service.TransactionQuery) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1 = 1`
	var args []any
	if q.UserID != "" {
		query += " AND entity_id = ?"
		args = append(args, q.UserID)
	}
	if q.Year != 0 {
		query += " AND effective_at >= ? AND effective_at <= ?"
		args = append(args, formatTime(generic.StartOfYear(q.Year).Time), formatTime(generic.EndOfDay(q.Year, time.December, 31)))
	}
	if q.Type != "" {
		query += " AND tx_type = ?"
		args = append(args, q.Type)
	}
	return queryTransactions(ctx, s.db, query+" ORDER BY effective_at DESC, created_at DESC", args...)
}

// =============================================================================
// REPORTS
// =============================================================================

// TransferReport filters and summarizes every stored transfer.
func (s *Store) TransferReport(ctx context.Context, opts quota.ReportOptions) (quota.TransferReport, error) {
	if err := opts.Validate(); err != nil {
		return quota.TransferReport{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := listTransfers(ctx, s.db, "")
	if err != nil {
		return quota.TransferReport{}, err
	}
	return quota.BuildTransferReport(rows, opts), nil
}

// ExportTransferReport renders the report. Only CSV is rendered locally.
func (s *Store) ExportTransferReport(ctx context.Context, opts quota.ReportOptions) (service.Export, error) {
	format, err := quota.ParseExportFormat(string(opts.Format))
	if err != nil {
		return service.Export{}, err
	}
	if format != quota.ExportCSV {
		return service.Export{}, fmt.Errorf("%w: %s", ErrFormatNotRendered, format)
	}
	opts.Format = format
	report, err := s.TransferReport(ctx, opts)
	if err != nil {
		return service.Export{}, err
	}
	data, err := RenderCSV(report)
	if err != nil {
		return service.Export{}, err
	}
	return service.Export{Format: format, ContentType: format.ContentType(), Data: data}, nil
}

// Statistics aggregates quota states of one user, one department, or
// everyone when both are empty.
func (s *Store) Statistics(ctx context.Context, q service.StatisticsQuery) (quota.QuotaStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	year := q.Year
	now := s.now()
	if year == 0 {
		year = now.Year()
	}

	var users []generic.EntityID
	if q.UserID != "" {
		users = append(users, q.UserID)
	} else {
		employees, err := listEmployees(ctx, s.db, q.Department)
		if err != nil {
			return quota.QuotaStatistics{}, err
		}
		for _, e := range employees {
			users = append(users, generic.EntityID(e.ID))
		}
	}

	var states []quota.EnhancedQuotaState
	for _, u := range users {
		balance, err := s.leaveBalance(ctx, s.db, u, year)
		if err != nil {
			return quota.QuotaStatistics{}, err
		}
		transfers, err := listTransfers(ctx, s.db, u)
		if err != nil {
			return quota.QuotaStatistics{}, err
		}
		carryOvers, err := listCarryOvers(ctx, s.db, u)
		if err != nil {
			return quota.QuotaStatistics{}, err
		}
		states = append(states, quota.BuildEnhancedState(balance, transfers, carryOvers, year, now)...)
	}
	return quota.ComputeStatistics(states), nil
}
