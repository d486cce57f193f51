/*
store.go - Persistence interface for raw holding inputs

PURPOSE:
  The engine never fetches anything. This interface is the boundary to
  wherever the raw transactions, bonuses and splits live. The service
  reads them per (account, security), filters by as-on date and hands
  the result to one fresh engine run.

ORDERING CONTRACT:
  Every listing returns rows in insertion order. The engine breaks
  same-day ties by input order, so a store that reorders rows changes
  FIFO consumption.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - holdings/store/memory.go: In-memory for tests and demos

SEE ALSO:
  - service.go: the only consumer
*/
package holdings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORDS - Raw rows as stored
// =============================================================================

type TransactionRecord struct {
	ID           string
	AccountCode  string
	SecurityCode string
	SecurityName string
	TranDate     string // as received; normalized at replay time
	TranType     string
	Qty          decimal.Decimal
	NetRate      decimal.Decimal
	NetAmount    decimal.Decimal
}

type BonusRecord struct {
	ID           string
	AccountCode  string
	SecurityCode string
	SecurityName string
	ExDate       string
	BonusShare   decimal.Decimal
}

// SplitRecord applies to every account holding the security.
type SplitRecord struct {
	ID           string
	SecurityCode string
	SecurityName string
	IssueDate    string
	Ratio1       decimal.Decimal
	Ratio2       decimal.Decimal
	CreatedAt    time.Time
}

type Security struct {
	Code string
	Name string
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// AppendTransactions persists rows atomically.
	AppendTransactions(ctx context.Context, txns []TransactionRecord) error

	// AppendBonuses persists rows atomically.
	AppendBonuses(ctx context.Context, bonuses []BonusRecord) error

	AppendSplit(ctx context.Context, split SplitRecord) error

	// Transactions for an account. An empty securityCode means every security.
	Transactions(ctx context.Context, accountCode, securityCode string) ([]TransactionRecord, error)

	// Bonuses for an account. An empty securityCode means every security.
	Bonuses(ctx context.Context, accountCode, securityCode string) ([]BonusRecord, error)

	Splits(ctx context.Context, securityCode string) ([]SplitRecord, error)

	// Accounts lists distinct account codes, sorted.
	Accounts(ctx context.Context) ([]string, error)

	// Securities lists distinct securities seen in transactions, bonuses
	// and splits, sorted by code. Empty codes are skipped; a code stored
	// under several names reports the lexically greatest.
	Securities(ctx context.Context) ([]Security, error)
}

// ResettableStore can be wiped. Demo scenarios only.
type ResettableStore interface {
	Store
	Reset(ctx context.Context) error
}
