/*
store.go - Persistence interface for quota transactions

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  handles persistence while maintaining append-only semantics.

KEY INTERFACES:
  Store:   Core transaction persistence (append, load, exists)
  TxStore: Transactional operations (check balance then append atomically)

ATOMIC BATCHES:
  AppendBatch() ensures all-or-nothing semantics. A transfer writes a debit
  on the source bucket and a credit on the target bucket; either both are
  written or neither is.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite. txStore binds a Store to one SQL
    transaction so the ledger's idempotency check and the insert share it.

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for transaction persistence (append-only)
// =============================================================================

// Store handles persistence of transactions.
// Store is APPEND-ONLY. Corrections are made via compensating transactions.
type Store interface {
	// Append persists a transaction. Returns error if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for entity+resource, ordered by EffectiveAt.
	Load(ctx context.Context, entityID EntityID, resource ResourceType) ([]Transaction, error)

	// LoadRange returns transactions in [from, to].
	LoadRange(ctx context.Context, entityID EntityID, resource ResourceType, from, to TimePoint) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For check-then-append under one transaction
// =============================================================================

// TxStore wraps Store with transaction support.
// The balance sufficiency check for transfers and carry-overs runs inside
// WithTx so it cannot race with a concurrent debit.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
