/*
Package sqlite provides the SQLite-backed quota backend.

PURPOSE:
  Persists employees, the quota ledger, transfer and carry-over rules,
  special periods, transfer and carry-over requests, and annual carry-over
  runs. Store implements generic.TxStore for the ledger and service.Backend
  for everything the services need, so the reference server and the CLI's
  local mode share one implementation.

APPEND-ONLY ENFORCEMENT:
  The transactions table is never updated or deleted from:
  - No UPDATE statements on transactions
  - No DELETE statements on transactions (except Reset for demos)
  - Corrections are ADJUSTMENT or CANCELLATION entries

KEY TABLES:
  transactions:     Immutable ledger, one row per bucket change
  employees:        Users with their department
  transfer_rules:   Ordered rule set, first match wins (seq order)
  carry_over_rules: Ordered rule set, first match wins (seq order)
  special_periods:  High-demand windows
  transfers:        Transfer requests and their status
  carry_overs:      Carry-over requests and their status
  carry_over_runs:  One row per annual carry-over (from_year, to_year)

BUCKETS:
  A bucket is (employee, leave type, year). The year of a ledger row is the
  year of its effective_at, so a balance is the fold of one calendar year.

CONCURRENCY:
  sync.RWMutex serializes writers; every check-then-append runs inside a
  SQL transaction so the balance cannot change between the two.

USAGE:
  store, err := sqlite.New("./data/quota.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - quota.go: service.Backend implementation
  - export.go: CSV rendering of transfer reports
  - generic/store.go: Ledger interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

// Store implements generic.TxStore and service.Backend using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	now      func() time.Time
	deadline quota.Deadline
}

// Option configures the Store.
type Option func(*Store)

// WithClock sets the time source for created/processed timestamps and
// rule applicability.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCarryOverDeadline closes carry-overs out of a year on the given day
// of the following year.
func WithCarryOverDeadline(d quota.Deadline) Option {
	return func(s *Store) { s.deadline = d }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		metadata_json TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance fold for one bucket year (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_entity_date
		ON transactions(entity_id, effective_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_entity_resource_date
		ON transactions(entity_id, resource_type, effective_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_type
		ON transactions(tx_type);

	-- Employees (entities)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		department TEXT NOT NULL DEFAULT '',
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Rules keep their insertion order in seq; first match wins.
	CREATE TABLE IF NOT EXISTS transfer_rules (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		source_type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		rule_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS carry_over_rules (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		leave_type TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		rule_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS special_periods (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		rule_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transfer requests
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		source_amount TEXT NOT NULL,
		target_amount TEXT NOT NULL,
		ratio TEXT NOT NULL,
		balance_year INTEGER NOT NULL,
		status TEXT NOT NULL,
		rule_id TEXT,
		comment TEXT,
		created_at TEXT NOT NULL,
		processed_at TEXT,
		processed_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_user
		ON transfers(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transfers_status
		ON transfers(status);

	-- Carry-over requests
	CREATE TABLE IF NOT EXISTS carry_overs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		from_year INTEGER NOT NULL,
		to_year INTEGER NOT NULL,
		requested_amount TEXT NOT NULL,
		carried_amount TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		status TEXT NOT NULL,
		rule_id TEXT,
		comment TEXT,
		created_at TEXT NOT NULL,
		processed_at TEXT,
		processed_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_carry_overs_user
		ON carry_overs(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_carry_overs_expiry
		ON carry_overs(status, expiry_date);

	-- Annual carry-over runs (one per year boundary)
	CREATE TABLE IF NOT EXISTS carry_over_runs (
		id TEXT PRIMARY KEY,
		from_year INTEGER NOT NULL,
		to_year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		processed INTEGER DEFAULT 0,
		carried_over TEXT DEFAULT '0',
		skipped INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_carry_over_runs_unique
		ON carry_over_runs(from_year, to_year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a SQL transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

var _ generic.TxStore = (*Store)(nil)

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger(s.db).Append(ctx, tx)
}

// ledger returns the append-only ledger bound to db, a *sql.DB or the
// *sql.Tx of the running write. Every ledger write goes through it so the
// idempotency keys are checked before the insert.
func (s *Store) ledger(db querier) *generic.DefaultLedger {
	return generic.NewLedger(&txStore{db: db, parent: s})
}

func (s *Store) appendTx(ctx context.Context, db querier, tx generic.Transaction) error {
	metadataJSON, _ := json.Marshal(tx.Metadata)

	query := `
		INSERT INTO transactions
		(id, entity_id, resource_type, effective_at, delta_value, delta_unit,
		 tx_type, reference_id, reason, idempotency_key, metadata_json, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.EntityID,
		tx.ResourceType.ResourceID(),
		formatTime(tx.EffectiveAt.Time),
		tx.Delta.Value.String(),
		tx.Delta.Unit,
		tx.Type,
		nullString(tx.ReferenceID),
		tx.Reason,
		nullString(tx.IdempotencyKey),
		string(metadataJSON),
		nullString(tx.CreatedBy),
		formatTime(s.now()),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(sqlTx *sql.Tx) error {
		return s.ledger(sqlTx).AppendBatch(ctx, txs)
	})
}

func (s *Store) appendBatch(ctx context.Context, db querier, txs []generic.Transaction) error {
	for _, tx := range txs {
		if err := s.appendTx(ctx, db, tx); err != nil {
			return err
		}
	}
	return nil
}

const txColumns = `id, entity_id, resource_type, effective_at, delta_value, delta_unit,
	tx_type, reference_id, reason, idempotency_key, metadata_json, created_by, created_at`

// Load returns all transactions for an entity+resource.
func (s *Store) Load(ctx context.Context, entityID generic.EntityID, resource generic.ResourceType) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger(s.db).Transactions(ctx, entityID, resource)
}

func (s *Store) load(ctx context.Context, db querier, entityID generic.EntityID, resource generic.ResourceType) ([]generic.Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions
		WHERE entity_id = ? AND resource_type = ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return queryTransactions(ctx, db, query, entityID, resource.ResourceID())
}

// LoadRange returns transactions in a time range, both days inclusive.
func (s *Store) LoadRange(ctx context.Context, entityID generic.EntityID, resource generic.ResourceType, from, to generic.TimePoint) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledger(s.db).TransactionsInPeriod(ctx, entityID, resource, generic.Period{Start: from, End: to})
}

func (s *Store) loadRange(ctx context.Context, db querier, entityID generic.EntityID, resource generic.ResourceType, from, to generic.TimePoint) ([]generic.Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions
		WHERE entity_id = ? AND resource_type = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return queryTransactions(ctx, db, query, entityID, resource.ResourceID(),
		formatTime(from.Time), formatTime(generic.EndOfDay(to.Year(), to.Month(), to.Day())))
}

// yearTransactions returns every ledger row of the entity effective in year.
func (s *Store) yearTransactions(ctx context.Context, db querier, entityID generic.EntityID, year int) ([]generic.Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions
		WHERE entity_id = ? AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return queryTransactions(ctx, db, query, entityID,
		formatTime(generic.StartOfYear(year).Time), formatTime(generic.EndOfDay(year, time.December, 31)))
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return exists(ctx, s.db, idempotencyKey)
}

func exists(ctx context.Context, db querier, idempotencyKey string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func queryTransactions(ctx context.Context, db querier, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		effectiveAt    string
		resourceTypeID string
		deltaValue     string
		deltaUnit      string
		referenceID    sql.NullString
		reason         sql.NullString
		idempotencyKey sql.NullString
		metadataJSON   sql.NullString
		createdBy      sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.ID, &tx.EntityID, &resourceTypeID,
		&effectiveAt, &deltaValue, &deltaUnit, &tx.Type,
		&referenceID, &reason, &idempotencyKey, &metadataJSON, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	// Leave types are registered, so the registry hands back quota.LeaveType.
	tx.ResourceType = generic.GetOrCreateResource(resourceTypeID)
	tx.EffectiveAt = generic.TimePoint{Time: parseTime(effectiveAt)}
	tx.Delta = parseAmount(deltaValue, deltaUnit)
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String
	tx.CreatedAt = generic.TimePoint{Time: parseTime(createdAt)}

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		json.Unmarshal([]byte(metadataJSON.String), &tx.Metadata)
	}

	return tx, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&txStore{db: sqlTx, parent: s})
	})
}

// txStore is a generic.Store over one connection or SQL transaction. It
// takes no lock; the caller holds s.mu.
type txStore struct {
	db     querier
	parent *Store
}

func (ts *txStore) Append(ctx context.Context, tx generic.Transaction) error {
	return ts.parent.appendTx(ctx, ts.db, tx)
}

func (ts *txStore) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	return ts.parent.appendBatch(ctx, ts.db, txs)
}

func (ts *txStore) Load(ctx context.Context, entityID generic.EntityID, resource generic.ResourceType) ([]generic.Transaction, error) {
	return ts.parent.load(ctx, ts.db, entityID, resource)
}

func (ts *txStore) LoadRange(ctx context.Context, entityID generic.EntityID, resource generic.ResourceType, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return ts.parent.loadRange(ctx, ts.db, entityID, resource, from, to)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return exists(ctx, ts.db, idempotencyKey)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Department string
	HireDate   time.Time
	CreatedAt  time.Time
}

// SaveEmployee saves an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, department, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			hire_date = excluded.hire_date
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email, emp.Department,
		formatTime(emp.HireDate),
		formatTime(s.now()),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Missing employees return
// generic.ErrEntityNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, db querier, id string) (*Employee, error) {
	var emp Employee
	var email sql.NullString
	var hireDate, createdAt string

	err := db.QueryRowContext(ctx,
		"SELECT id, name, email, department, hire_date, created_at FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &email, &emp.Department, &hireDate, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("employee %s: %w", id, generic.ErrEntityNotFound)
	}
	if err != nil {
		return nil, err
	}

	emp.Email = email.String
	emp.HireDate = parseTime(hireDate)
	emp.CreatedAt = parseTime(createdAt)
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listEmployees(ctx, s.db, "")
}

func listEmployees(ctx context.Context, db querier, department string) ([]Employee, error) {
	query := "SELECT id, name, email, department, hire_date, created_at FROM employees"
	var args []any
	if department != "" {
		query += " WHERE department = ?"
		args = append(args, department)
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var emp Employee
		var email sql.NullString
		var hireDate, createdAt string
		if err := rows.Scan(&emp.ID, &emp.Name, &email, &emp.Department, &hireDate, &createdAt); err != nil {
			return nil, err
		}
		emp.Email = email.String
		emp.HireDate = parseTime(hireDate)
		emp.CreatedAt = parseTime(createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// CARRY-OVER RUNS STORE
// =============================================================================

// CarryOverRun records one annual carry-over across all employees.
type CarryOverRun struct {
	ID          string
	FromYear    int
	ToYear      int
	Status      string // pending, running, completed, failed
	Processed   int
	CarriedOver generic.Amount
	Skipped     int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SaveCarryOverRun saves a run, keyed by its year pair.
func (s *Store) SaveCarryOverRun(ctx context.Context, r CarryOverRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveCarryOverRun(ctx, s.db, r)
}

func saveCarryOverRun(ctx context.Context, db querier, r CarryOverRun) error {
	query := `
		INSERT INTO carry_over_runs (id, from_year, to_year, status, processed,
			carried_over, skipped, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_year, to_year) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			carried_over = excluded.carried_over,
			skipped = excluded.skipped,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := db.ExecContext(ctx, query,
		r.ID, r.FromYear, r.ToYear, r.Status, r.Processed,
		r.CarriedOver.Value.String(), r.Skipped, r.Error,
		nullTime(r.StartedAt), nullTime(r.CompletedAt), formatTime(r.CreatedAt),
	)
	return err
}

// GetCarryOverRuns returns runs, newest first, optionally filtered by status.
func (s *Store) GetCarryOverRuns(ctx context.Context, status string) ([]CarryOverRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, from_year, to_year, status, processed, carried_over, skipped,
			error, started_at, completed_at, created_at
		FROM carry_over_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []CarryOverRun
	for rows.Next() {
		var r CarryOverRun
		var carried string
		var runErr, startedAt, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.FromYear, &r.ToYear, &r.Status, &r.Processed, &carried, &r.Skipped,
			&runErr, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		r.CarriedOver = parseAmount(carried, string(generic.UnitDays))
		r.Error = runErr.String
		r.StartedAt = parseNullTime(startedAt)
		r.CompletedAt = parseNullTime(completedAt)
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsCarryOverRunComplete reports whether fromYear was already carried over.
func (s *Store) IsCarryOverRunComplete(ctx context.Context, fromYear int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM carry_over_runs WHERE from_year = ? AND status = ?",
		fromYear, RunCompleted,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"transactions", "transfers", "carry_overs", "carry_over_runs",
		"transfer_rules", "carry_over_rules", "special_periods", "employees",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// GetAllTransactions returns the most recent transactions (for admin view).
func (s *Store) GetAllTransactions(ctx context.Context, limit int) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + txColumns + `
		FROM transactions
		ORDER BY created_at DESC
		LIMIT ?
	`
	return queryTransactions(ctx, s.db, query, limit)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseAmount(value, unit string) generic.Amount {
	return generic.Amount{
		Value: generic.MustParseDecimal(value),
		Unit:  generic.Unit(unit),
	}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
