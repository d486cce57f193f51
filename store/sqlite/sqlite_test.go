package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/holdings-engine/fifo"
	"github.com/warp/holdings-engine/holdings"
	"github.com/warp/holdings-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStore_TransactionsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "A1", SecurityCode: "INF", SecurityName: "Infosys",
			TranDate: "2024-01-01", TranType: "BY-", Qty: dec("100"), NetRate: dec("10.25"), NetAmount: dec("1025")},
		{ID: "t2", AccountCode: "A1", SecurityCode: "TCS", SecurityName: "TCS",
			TranDate: "2024-01-01", TranType: "BY-", Qty: dec("5"), NetRate: dec("3000")},
		{ID: "t3", AccountCode: "A1", SecurityCode: "INF", SecurityName: "Infosys",
			TranDate: "2024-01-01", TranType: "SL+", Qty: dec("-40"), NetRate: dec("0.000001")},
	}
	require.NoError(t, s.AppendTransactions(ctx, in))

	got, err := s.Transactions(ctx, "A1", "INF")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// THEN: insertion order, decimals exact
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
	assert.True(t, dec("10.25").Equal(got[0].NetRate))
	assert.True(t, dec("-40").Equal(got[1].Qty))
	assert.True(t, dec("0.000001").Equal(got[1].NetRate))
	assert.True(t, got[1].NetAmount.IsZero())

	all, err := s.Transactions(ctx, "A1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.Transactions(ctx, "A2", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_DuplicateIDRollsBackBatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.AppendTransactions(ctx, []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "A1", SecurityCode: "INF", TranDate: "2024-01-01", TranType: "BY-"},
		{ID: "t1", AccountCode: "A1", SecurityCode: "INF", TranDate: "2024-01-02", TranType: "BY-"},
	})
	require.ErrorIs(t, err, holdings.ErrDuplicateRecord)

	got, err := s.Transactions(ctx, "A1", "")
	require.NoError(t, err)
	assert.Empty(t, got, "batch must be atomic")
}

func TestStore_Bonuses(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendBonuses(ctx, []holdings.BonusRecord{
		{ID: "b1", AccountCode: "A1", SecurityCode: "INF", SecurityName: "Infosys", ExDate: "2024-02-01", BonusShare: dec("10")},
		{ID: "b2", AccountCode: "A2", SecurityCode: "INF", SecurityName: "Infosys", ExDate: "2024-02-01", BonusShare: dec("3")},
	}))

	got, err := s.Bonuses(ctx, "A1", "INF")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
	assert.True(t, dec("10").Equal(got[0].BonusShare))
}

func TestStore_Splits(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendSplit(ctx, holdings.SplitRecord{
		ID: "s1", SecurityCode: "INF", SecurityName: "Infosys", IssueDate: "2024-06-01",
		Ratio1: dec("1"), Ratio2: dec("2"), CreatedAt: created,
	}))
	require.NoError(t, s.AppendSplit(ctx, holdings.SplitRecord{
		ID: "s2", SecurityCode: "INF", SecurityName: "Infosys", IssueDate: "2023-01-01",
		Ratio1: dec("2"), Ratio2: dec("5"),
	}))

	err := s.AppendSplit(ctx, holdings.SplitRecord{ID: "s1", SecurityCode: "INF"})
	require.ErrorIs(t, err, holdings.ErrDuplicateRecord)

	got, err := s.Splits(ctx, "INF")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID, "insertion order, not issue date")
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.False(t, got[1].CreatedAt.IsZero())
	assert.True(t, dec("5").Equal(got[1].Ratio2))
}

func TestStore_Listings(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTransactions(ctx, []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "B", SecurityCode: "TCS", SecurityName: "TCS", TranDate: "2024-01-01"},
		{ID: "t2", AccountCode: "A", SecurityCode: "INF", SecurityName: "Infosys", TranDate: "2024-01-01"},
		{ID: "t3", AccountCode: "A", SecurityCode: "", SecurityName: "Unknown", TranDate: "2024-01-01"},
	}))
	require.NoError(t, s.AppendBonuses(ctx, []holdings.BonusRecord{
		{ID: "b1", AccountCode: "C", SecurityCode: "INF", SecurityName: "Infosys Ltd", ExDate: "2024-01-01"},
	}))
	require.NoError(t, s.AppendSplit(ctx, holdings.SplitRecord{
		ID: "s1", SecurityCode: "WIP", SecurityName: "Wipro", IssueDate: "2024-01-01",
	}))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, accounts)

	securities, err := s.Securities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []holdings.Security{
		{Code: "INF", Name: "Infosys Ltd"},
		{Code: "TCS", Name: "TCS"},
		{Code: "WIP", Name: "Wipro"},
	}, securities)
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTransactions(ctx, []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "A", SecurityCode: "INF", TranDate: "2024-01-01"},
	}))
	require.NoError(t, s.Reset(ctx))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	// IDs are free again after a reset
	require.NoError(t, s.AppendTransactions(ctx, []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "A", SecurityCode: "INF", TranDate: "2024-01-01"},
	}))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendTransactions(ctx, []holdings.TransactionRecord{
		{ID: "t1", AccountCode: "A", SecurityCode: "INF", TranDate: "2024-01-01", Qty: dec("7")},
	}))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Transactions(ctx, "A", "INF")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, dec("7").Equal(got[0].Qty))
}

func TestStore_ServiceEndToEnd(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	svc := holdings.NewService(s)

	require.NoError(t, svc.Import(ctx, holdings.Batch{
		Transactions: []holdings.TransactionRecord{
			{AccountCode: "A", SecurityCode: "INF", SecurityName: "Infosys", TranDate: "2024-01-01", TranType: "BY-", Qty: dec("100"), NetRate: dec("10")},
		},
		Splits: []holdings.SplitRecord{
			{SecurityCode: "INF", SecurityName: "Infosys", IssueDate: "2024-01-05", Ratio1: dec("1"), Ratio2: dec("2")},
		},
	}))

	card, err := svc.Card(ctx, "A", "INF", fifo.Date{})
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(card.HoldingValue))
	assert.True(t, dec("5").Equal(card.AverageCostOfHoldings))
}
