/*
Package sqlite provides a SQLite-backed holdings.Store.

PURPOSE:
  Persists the raw inputs of the holding ledger: broker transactions,
  bonus allotments and split announcements. Nothing the engine computes is
  stored; every ledger is replayed from these rows on demand.

KEY TABLES:
  transactions: Buy/sell/other rows per account and security
  bonuses:      Bonus allotments per account and security
  splits:       Split announcements per security (apply to every account)

ORDERING:
  Each table carries an autoincrement seq column. Every listing is
  ORDER BY seq, so rows come back in insertion order. Same-day events are
  applied in that order by the engine.

AMOUNTS AND DATES:
  Quantities, rates and amounts are stored as TEXT decimal strings and
  parsed back with shopspring/decimal. Dates are stored exactly as
  received; normalization happens at replay time.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WAL mode lets readers proceed
  while a single writer commits.

USAGE:
  store, err := sqlite.New("./data/holdings.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := holdings.NewService(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - holdings/store.go: Interface definition
  - holdings/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/holdings-engine/fifo"
	"github.com/warp/holdings-engine/holdings"
)

// Store implements holdings.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ holdings.ResettableStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_code TEXT NOT NULL,
		security_code TEXT NOT NULL,
		security_name TEXT NOT NULL,
		tran_date TEXT NOT NULL,
		tran_type TEXT NOT NULL,
		qty TEXT NOT NULL,
		net_rate TEXT NOT NULL,
		net_amount TEXT NOT NULL
	);

	-- Hot path: one holding's history
	CREATE INDEX IF NOT EXISTS idx_transactions_account_security
		ON transactions(account_code, security_code);

	CREATE TABLE IF NOT EXISTS bonuses (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_code TEXT NOT NULL,
		security_code TEXT NOT NULL,
		security_name TEXT NOT NULL,
		ex_date TEXT NOT NULL,
		bonus_share TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bonuses_account_security
		ON bonuses(account_code, security_code);

	CREATE TABLE IF NOT EXISTS splits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		security_code TEXT NOT NULL,
		security_name TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		ratio1 TEXT NOT NULL,
		ratio2 TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_splits_security
		ON splits(security_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// AppendTransactions adds rows atomically.
func (s *Store) AppendTransactions(ctx context.Context, txns []holdings.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(db execer) error {
		query := `
			INSERT INTO transactions
			(id, account_code, security_code, security_name, tran_date, tran_type,
			 qty, net_rate, net_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, t := range txns {
			_, err := db.ExecContext(ctx, query,
				t.ID, t.AccountCode, t.SecurityCode, t.SecurityName,
				t.TranDate, t.TranType,
				t.Qty.String(), t.NetRate.String(), t.NetAmount.String(),
			)
			if err != nil {
				return insertError("transaction", t.ID, err)
			}
		}
		return nil
	})
}

// Transactions returns an account's transactions in insertion order.
func (s *Store) Transactions(ctx context.Context, accountCode, securityCode string) ([]holdings.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, account_code, security_code, security_name, tran_date, tran_type,
		       qty, net_rate, net_amount
		FROM transactions
		WHERE account_code = ? AND (? = '' OR security_code = ?)
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, accountCode, securityCode, securityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := []holdings.TransactionRecord{}
	for rows.Next() {
		var (
			t                       holdings.TransactionRecord
			qty, netRate, netAmount string
		)
		if err := rows.Scan(
			&t.ID, &t.AccountCode, &t.SecurityCode, &t.SecurityName,
			&t.TranDate, &t.TranType, &qty, &netRate, &netAmount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Qty = fifo.ParseAmount(qty)
		t.NetRate = fifo.ParseAmount(netRate)
		t.NetAmount = fifo.ParseAmount(netAmount)
		result = append(result, t)
	}

	return result, rows.Err()
}

// =============================================================================
// BONUSES
// =============================================================================

// AppendBonuses adds rows atomically.
func (s *Store) AppendBonuses(ctx context.Context, bonuses []holdings.BonusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(db execer) error {
		query := `
			INSERT INTO bonuses
			(id, account_code, security_code, security_name, ex_date, bonus_share)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		for _, b := range bonuses {
			_, err := db.ExecContext(ctx, query,
				b.ID, b.AccountCode, b.SecurityCode, b.SecurityName,
				b.ExDate, b.BonusShare.String(),
			)
			if err != nil {
				return insertError("bonus", b.ID, err)
			}
		}
		return nil
	})
}

// Bonuses returns an account's bonus allotments in insertion order.
func (s *Store) Bonuses(ctx context.Context, accountCode, securityCode string) ([]holdings.BonusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, account_code, security_code, security_name, ex_date, bonus_share
		FROM bonuses
		WHERE account_code = ? AND (? = '' OR security_code = ?)
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, accountCode, securityCode, securityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	result := []holdings.BonusRecord{}
	for rows.Next() {
		var (
			b     holdings.BonusRecord
			share string
		)
		if err := rows.Scan(&b.ID, &b.AccountCode, &b.SecurityCode, &b.SecurityName, &b.ExDate, &share); err != nil {
			return nil, fmt.Errorf("failed to scan bonus: %w", err)
		}
		b.BonusShare = fifo.ParseAmount(share)
		result = append(result, b)
	}

	return result, rows.Err()
}

// =============================================================================
// SPLITS
// =============================================================================

func (s *Store) AppendSplit(ctx context.Context, split holdings.SplitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := split.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO splits
		(id, security_code, security_name, issue_date, ratio1, ratio2, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		split.ID, split.SecurityCode, split.SecurityName, split.IssueDate,
		split.Ratio1.String(), split.Ratio2.String(),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return insertError("split", split.ID, err)
	}
	return nil
}

// Splits returns a security's split announcements in insertion order.
func (s *Store) Splits(ctx context.Context, securityCode string) ([]holdings.SplitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, security_code, security_name, issue_date, ratio1, ratio2, created_at
		FROM splits
		WHERE security_code = ?
		ORDER BY seq ASC
	`, securityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	result := []holdings.SplitRecord{}
	for rows.Next() {
		var (
			sp                        holdings.SplitRecord
			ratio1, ratio2, createdAt string
		)
		if err := rows.Scan(
			&sp.ID, &sp.SecurityCode, &sp.SecurityName, &sp.IssueDate,
			&ratio1, &ratio2, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Ratio1 = fifo.ParseAmount(ratio1)
		sp.Ratio2 = fifo.ParseAmount(ratio2)
		sp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, sp)
	}

	return result, rows.Err()
}

// =============================================================================
// LISTINGS
// =============================================================================

// Accounts lists distinct account codes across transactions and bonuses.
func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_code FROM transactions
		UNION
		SELECT account_code FROM bonuses
		ORDER BY account_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Securities lists distinct security codes. When a code was stored under
// several names, the greatest one wins, matching the memory store.
func (s *Store) Securities(ctx context.Context) ([]holdings.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT security_code, MAX(security_name)
		FROM (
			SELECT security_code, security_name FROM transactions
			UNION ALL
			SELECT security_code, security_name FROM bonuses
			UNION ALL
			SELECT security_code, security_name FROM splits
		)
		WHERE security_code <> ''
		GROUP BY security_code
		ORDER BY security_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	securities := []holdings.Security{}
	for rows.Next() {
		var sec holdings.Security
		if err := rows.Scan(&sec.Code, &sec.Name); err != nil {
			return nil, err
		}
		securities = append(securities, sec)
	}
	return securities, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "bonuses", "splits"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(db execer) error) error {
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

func insertError(kind, id string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s %s: %w", kind, id, holdings.ErrDuplicateRecord)
	}
	return fmt.Errorf("failed to insert %s: %w", kind, err)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
