// Package store provides holdings.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/holdings-engine/holdings"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ holdings.ResettableStore = (*Memory)(nil)

type Memory struct {
	mu           sync.RWMutex
	transactions []holdings.TransactionRecord
	bonuses      []holdings.BonusRecord
	splits       []holdings.SplitRecord
	ids          map[string]bool // "kind/id"
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]bool)}
}

// claim reserves every ID or none of them.
func (m *Memory) claim(kind string, ids []string) error {
	batch := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := kind + "/" + id
		if m.ids[key] || batch[key] {
			return fmt.Errorf("%s %s: %w", kind, id, holdings.ErrDuplicateRecord)
		}
		batch[key] = true
	}
	for key := range batch {
		m.ids[key] = true
	}
	return nil
}

func (m *Memory) AppendTransactions(_ context.Context, txns []holdings.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(txns))
	for i, t := range txns {
		ids[i] = t.ID
	}
	if err := m.claim("transaction", ids); err != nil {
		return err
	}
	m.transactions = append(m.transactions, txns...)
	return nil
}

func (m *Memory) AppendBonuses(_ context.Context, bonuses []holdings.BonusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(bonuses))
	for i, b := range bonuses {
		ids[i] = b.ID
	}
	if err := m.claim("bonus", ids); err != nil {
		return err
	}
	m.bonuses = append(m.bonuses, bonuses...)
	return nil
}

func (m *Memory) AppendSplit(_ context.Context, split holdings.SplitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.claim("split", []string{split.ID}); err != nil {
		return err
	}
	m.splits = append(m.splits, split)
	return nil
}

func (m *Memory) Transactions(_ context.Context, accountCode, securityCode string) ([]holdings.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []holdings.TransactionRecord{}
	for _, t := range m.transactions {
		if t.AccountCode == accountCode && (securityCode == "" || t.SecurityCode == securityCode) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *Memory) Bonuses(_ context.Context, accountCode, securityCode string) ([]holdings.BonusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []holdings.BonusRecord{}
	for _, b := range m.bonuses {
		if b.AccountCode == accountCode && (securityCode == "" || b.SecurityCode == securityCode) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *Memory) Splits(_ context.Context, securityCode string) ([]holdings.SplitRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []holdings.SplitRecord{}
	for _, s := range m.splits {
		if s.SecurityCode == securityCode {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) Accounts(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, t := range m.transactions {
		seen[t.AccountCode] = true
	}
	for _, b := range m.bonuses {
		seen[b.AccountCode] = true
	}

	accounts := make([]string, 0, len(seen))
	for a := range seen {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts, nil
}

func (m *Memory) Securities(_ context.Context) ([]holdings.Security, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[string]string)
	add := func(code, name string) {
		if code == "" {
			return
		}
		if prev, ok := names[code]; !ok || name > prev {
			names[code] = name
		}
	}
	for _, t := range m.transactions {
		add(t.SecurityCode, t.SecurityName)
	}
	for _, b := range m.bonuses {
		add(b.SecurityCode, b.SecurityName)
	}
	for _, s := range m.splits {
		add(s.SecurityCode, s.SecurityName)
	}

	securities := make([]holdings.Security, 0, len(names))
	for code, name := range names {
		securities = append(securities, holdings.Security{Code: code, Name: name})
	}
	sort.Slice(securities, func(i, j int) bool { return securities[i].Code < securities[j].Code })
	return securities, nil
}

// Reset drops everything.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = nil
	m.bonuses = nil
	m.splits = nil
	m.ids = make(map[string]bool)
	return nil
}
