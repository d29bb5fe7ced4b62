/*
ledger.go - Append-only quota transaction log

PURPOSE:
  The Ledger is the immutable source of truth for every quota change.
  Grants, transfers, carry-overs, usage and adjustments are recorded here.
  Balances are computed by replaying transactions, there is no separate
  "remaining" field that can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  A mistake is never edited. An ADJUSTMENT or CANCELLATION entry with the
  opposite sign is appended instead, so the history explains the balance.

EXAMPLE FLOW (transfer of 4 RECOVERY days at ratio 0.5):
  1. RECOVERY bucket: TRANSFER -4
  2. ANNUAL bucket:   TRANSFER +2
  Both legs are appended in one batch, sharing the transfer's ReferenceID.

SEE ALSO:
  - store.go: Low-level persistence interface
  - quota/balance.go: Folds transactions into a LeaveBalance
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only transaction log
// =============================================================================

// Ledger is the source of truth for all quota changes.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch adds multiple transactions atomically.
	// Used for the two legs of a transfer or carry-over.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Transactions returns all transactions for entity+resource, chronologically.
	Transactions(ctx context.Context, entityID EntityID, resource ResourceType) ([]Transaction, error)

	// TransactionsInPeriod returns transactions effective within the period.
	TransactionsInPeriod(ctx context.Context, entityID EntityID, resource ResourceType, period Period) ([]Transaction, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

// DefaultLedger checks idempotency keys, then delegates to Store.
type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if err := l.checkIdempotency(ctx, tx); err != nil {
		return err
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, txs []Transaction) error {
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			if seen[tx.IdempotencyKey] {
				return ErrDuplicateIdempotencyKey
			}
			seen[tx.IdempotencyKey] = true
		}
		if err := l.checkIdempotency(ctx, tx); err != nil {
			return err
		}
	}
	return l.Store.AppendBatch(ctx, txs)
}

func (l *DefaultLedger) checkIdempotency(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey == "" {
		return nil
	}
	exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateIdempotencyKey
	}
	return nil
}

func (l *DefaultLedger) Transactions(ctx context.Context, entityID EntityID, resource ResourceType) ([]Transaction, error) {
	return l.Store.Load(ctx, entityID, resource)
}

func (l *DefaultLedger) TransactionsInPeriod(ctx context.Context, entityID EntityID, resource ResourceType, period Period) ([]Transaction, error) {
	return l.Store.LoadRange(ctx, entityID, resource, period.Start, period.End)
}
