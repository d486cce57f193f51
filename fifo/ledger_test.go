package fifo_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/holdings-engine/fifo"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

// assertNear checks |want-got| <= 1e-6 * max(1, |want|).
func assertNear(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	tol := dec("0.000001").Mul(decimal.Max(decimal.NewFromInt(1), want.Abs()))
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(tol), "want ~%s, got %s", want, got)
}

func buy(date string, qty, rate string) fifo.RawTransaction {
	return fifo.RawTransaction{Date: date, TypeCode: "BY-", Qty: dec(qty), NetRate: dec(rate)}
}

func sell(date string, qty, rate string) fifo.RawTransaction {
	return fifo.RawTransaction{Date: date, TypeCode: "SL+", Qty: dec(qty), NetRate: dec(rate)}
}

func bonus(date, qty string) fifo.RawBonus {
	return fifo.RawBonus{ExDate: date, BonusShare: dec(qty)}
}

func split(date, ratio1, ratio2 string) fifo.RawSplit {
	return fifo.RawSplit{IssueDate: date, Ratio1: dec(ratio1), Ratio2: dec(ratio2)}
}

func replay(t *testing.T, in fifo.Input) []fifo.LedgerRow {
	t.Helper()
	rows, err := fifo.Replay(in)
	require.NoError(t, err)
	return rows
}

func assertSnapshot(t *testing.T, r fifo.LedgerRow, holdings, cost, avg string) {
	t.Helper()
	require.True(t, r.Holdings.Valid, "holdings should be set")
	require.True(t, r.CostOfHoldings.Valid, "cost should be set")
	require.True(t, r.AverageCostOfHoldings.Valid, "average should be set")
	assertDec(t, holdings, r.Holdings.Decimal, "holdings")
	assertDec(t, cost, r.CostOfHoldings.Decimal, "cost of holdings")
	assertDec(t, avg, r.AverageCostOfHoldings.Decimal, "average cost")
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestReplay_SingleBuy(t *testing.T) {
	// GIVEN: Buy 100 @ 10 on day 1
	// THEN: holdings=100, cost=1000, avg=10

	rows := replay(t, fifo.Input{
		Transactions: []fifo.RawTransaction{buy("2024-01-01", "100", "10")},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, fifo.RowBuy, rows[0].Kind)
	require.NotNil(t, rows[0].LotID)
	assert.Equal(t, fifo.LotID(1), *rows[0].LotID)
	assert.True(t, rows[0].IsActive)
	assert.False(t, rows[0].ProfitLoss.Valid, "buy rows carry no profit/loss")
	assertSnapshot(t, rows[0], "100", "1000", "10")
}

func TestReplay_PartialSell(t *testing.T) {
	// GIVEN: Buy 100 @ 10 (day 1), Sell 40 @ 15 (day 2)
	// THEN: P/L = 40*15 - 40*10 = 200, 60 left @ 10

	l := fifo.NewLedger()
	events, err := fifo.MergeEvents(fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2024-01-01", "100", "10"),
			sell("2024-01-02", "40", "15"),
		},
	})
	require.NoError(t, err)
	for _, e := range events {
		l.Apply(e)
	}

	rows := l.Rows()
	require.Len(t, rows, 2)
	s := rows[1]
	assert.Equal(t, fifo.RowSell, s.Kind)
	assert.Nil(t, s.LotID)
	assert.False(t, s.IsActive)
	require.True(t, s.ProfitLoss.Valid)
	assertDec(t, "200", s.ProfitLoss.Decimal)
	assertSnapshot(t, s, "60", "600", "10")

	lots := l.ActiveLots()
	require.Len(t, lots, 1)
	assertDec(t, "60", lots[0].Qty)
	assertDec(t, "100", lots[0].OriginalQty)
	assertDec(t, "10", lots[0].Price)
}

func TestReplay_SplitRestatesAtBuyDate(t *testing.T) {
	// GIVEN: Buy 100 @ 10 (day 1), split 1:2 (day 5)
	// THEN: one SPLIT row dated day 1, 200 @ 5; holdings=200, cost=1000, avg=5

	rows := replay(t, fifo.Input{
		Transactions: []fifo.RawTransaction{buy("2024-01-01", "100", "10")},
		Splits:       []fifo.RawSplit{split("2024-01-05", "1", "2")},
	})

	require.Len(t, rows, 2)
	sp := rows[1]
	assert.Equal(t, fifo.RowSplit, sp.Kind)
	assert.Equal(t, "2024-01-01", sp.Date.String())
	assertDec(t, "200", sp.Qty)
	assertDec(t, "5", sp.Price)
	assertSnapshot(t, sp, "200", "1000", "5")
	require.NotNil(t, sp.LotID)
	assert.Equal(t, fifo.LotID(2), *sp.LotID, "successor gets a fresh id")
}

func TestReplay_SellIntoBonusLot(t *testing.T) {
	// GIVEN: Buy 50 @ 10 (day 1), bonus 10 (day 2), Sell 55 @ 20 (day 3)
	// THEN: FIFO cost = 50*10 + 5*0 = 500, P/L = 1100 - 500 = 600, 5 left

	l := fifo.NewLedger()
	events, err := fifo.MergeEvents(fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2024-01-01", "50", "10"),
			sell("2024-01-03", "55", "20"),
		},
		Bonuses: []fifo.RawBonus{bonus("2024-01-02", "10")},
	})
	require.NoError(t, err)
	for _, e := range events {
		l.Apply(e)
	}

	rows := l.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, fifo.RowBonus, rows[1].Kind)
	assert.False(t, rows[1].ProfitLoss.Valid)
	assertSnapshot(t, rows[1], "60", "500", "8.3333333333333333")

	assertDec(t, "600", rows[2].ProfitLoss.Decimal)
	assertSnapshot(t, rows[2], "5", "0", "0")

	lots := l.ActiveLots()
	require.Len(t, lots, 1)
	assertDec(t, "5", lots[0].Qty)
	assertDec(t, "0", lots[0].Price)
}

func TestReplay_Oversell(t *testing.T) {
	// GIVEN: Buy 10 @ 10, Sell 15 @ 12
	// THEN: FIFO cost only covers 10 shares; holdings goes to -5

	rows := replay(t, fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2024-01-01", "10", "10"),
			sell("2024-01-02", "15", "12"),
		},
	})

	require.Len(t, rows, 2)
	assertDec(t, "80", rows[1].ProfitLoss.Decimal)
	assertSnapshot(t, rows[1], "-5", "0", "0")
}

// =============================================================================
// OPERATION EDGE CASES
// =============================================================================

func TestReplay_PriceFallsBackToNetAmount(t *testing.T) {
	rows := replay(t, fifo.Input{
		Transactions: []fifo.RawTransaction{
			{Date: "2024-01-01", TypeCode: "BY-", Qty: dec("-20"), NetAmount: dec("250")},
			{Date: "2024-01-02", TypeCode: "BY-", Qty: dec("5")},
		},
	})

	require.Len(t, rows, 2)
	assertDec(t, "20", rows[0].Qty, "signed quantities use their magnitude")
	assertDec(t, "12.5", rows[0].Price)
	assertDec(t, "0", rows[1].Price, "no rate and no amount means zero price")
	assertSnapshot(t, rows[1], "25", "250", "10")
}

func TestReplay_NoOpEvents(t *testing.T) {
	// GIVEN: zero quantities, unknown codes, zero-ratio splits
	// THEN: no rows, nothing held

	rows := replay(t, fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2024-01-01", "0", "10"),
			{Date: "2024-01-01", TypeCode: "DIV", Qty: dec("10"), NetRate: dec("1")},
			sell("2024-01-02", "0", "10"),
		},
		Bonuses: []fifo.RawBonus{bonus("2024-01-03", "0"), bonus("2024-01-03", "-4")},
		Splits:  []fifo.RawSplit{split("2024-01-04", "0", "2"), {IssueDate: "2024-01-04"}},
	})
	assert.Empty(t, rows)
	assert.NotNil(t, rows, "empty ledger is an empty slice")
}

func TestLedger_SplitWithNothingHeldIsNoOp(t *testing.T) {
	l := fifo.NewLedger()
	assert.False(t, l.Split(fifo.MustDate("2024-01-01"), dec("1"), dec("2")))
	assert.Empty(t, l.Rows())
	assert.Empty(t, l.Lots())
}

func TestLedger_DirectOperationsRejectNonPositive(t *testing.T) {
	l := fifo.NewLedger()
	day := fifo.MustDate("2024-03-01")

	assert.False(t, l.Buy(fifo.Trade{Date: day, Qty: dec("-1"), Price: dec("10")}))
	assert.False(t, l.Sell(fifo.Trade{Date: day, Qty: decimal.Zero, Price: dec("10")}))
	assert.False(t, l.Bonus(day, dec("-3")))
	assert.True(t, l.Buy(fifo.Trade{Date: day, TypeCode: "SQB", Qty: dec("3"), Price: dec("10")}))

	assertDec(t, "3", l.Holdings())
	assertDec(t, "30", l.CostOfHoldings())
	assertDec(t, "10", l.AverageCostOfHoldings())
	assert.Len(t, l.Rows(), 1)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestProperty_FIFOUsesOldestLotsFirst(t *testing.T) {
	// GIVEN: two buys, then a sell fully covered by the first
	// WHEN: the later lot's price changes
	// THEN: the sale's P/L is unchanged

	profit := func(laterRate string) decimal.Decimal {
		rows := replay(t, fifo.Input{
			Transactions: []fifo.RawTransaction{
				buy("2024-01-01", "100", "10"),
				buy("2024-01-02", "100", laterRate),
				sell("2024-01-03", "80", "12"),
			},
		})
		return rows[2].ProfitLoss.Decimal
	}

	assertDec(t, "160", profit("20"))
	assertDec(t, "160", profit("999"))
}

func TestProperty_HoldingsMatchActiveLots(t *testing.T) {
	events, err := fifo.MergeEvents(fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2023-01-10", "100", "10"),
			buy("2023-02-10", "40", "12.5"),
			sell("2023-03-01", "120", "15"),
			buy("2023-05-01", "10", "11"),
			sell("2023-08-01", "25", "6"),
		},
		Bonuses: []fifo.RawBonus{bonus("2023-04-01", "7")},
		Splits:  []fifo.RawSplit{split("2023-06-01", "2", "5"), split("2023-07-01", "3", "1")},
	})
	require.NoError(t, err)

	l := fifo.NewLedger()
	for _, e := range events {
		l.Apply(e)

		qty := decimal.Zero
		cost := decimal.Zero
		for _, lot := range l.ActiveLots() {
			assert.True(t, lot.Active)
			qty = qty.Add(lot.Qty)
			cost = cost.Add(lot.Qty.Mul(lot.Price))
		}
		assertNear(t, qty, l.Holdings())
		assertNear(t, cost, l.CostOfHoldings())
	}
}

func TestProperty_LotIDsStrictlyIncrease(t *testing.T) {
	l := fifo.NewLedger()
	events, err := fifo.MergeEvents(fifo.Input{
		Transactions: []fifo.RawTransaction{buy("2024-01-01", "10", "1"), buy("2024-01-02", "10", "2")},
		Bonuses:      []fifo.RawBonus{bonus("2024-01-03", "5")},
		Splits:       []fifo.RawSplit{split("2024-01-04", "1", "10")},
	})
	require.NoError(t, err)
	for _, e := range events {
		l.Apply(e)
	}

	lots := l.Lots()
	require.Len(t, lots, 6)
	for i, lot := range lots {
		assert.Equal(t, fifo.LotID(i+1), lot.ID)
		assert.Equal(t, i >= 3, lot.Active, "only split successors stay active")
	}
}

func TestProperty_ReplayIsIdempotent(t *testing.T) {
	in := fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("22-04-01", "30", "101.25"),
			sell("2022-06-01", "12", "140"),
			buy("2022-06-01", "8", "99"),
		},
		Bonuses: []fifo.RawBonus{bonus("2022-05-15", "3")},
		Splits:  []fifo.RawSplit{split("2022-09-01", "1", "5")},
	}

	first := replay(t, in)
	second := replay(t, in)
	assert.Equal(t, first, second)
}

func TestReplay_InvalidDateFailsWholeReplay(t *testing.T) {
	_, err := fifo.Replay(fifo.Input{
		Transactions: []fifo.RawTransaction{buy("2024-01-01", "10", "1")},
		Bonuses:      []fifo.RawBonus{bonus("2024-01-02", "1"), bonus("not-a-date", "1")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fifo.ErrInvalidDate)

	var dateErr *fifo.InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, fifo.EventBonus, dateErr.Source)
	assert.Equal(t, 1, dateErr.Index)
	assert.Equal(t, "not-a-date", dateErr.Raw)
}

func TestReplaySummary_CardMode(t *testing.T) {
	summary, err := fifo.ReplaySummary(fifo.Input{
		Transactions: []fifo.RawTransaction{
			buy("2024-01-01", "100", "10"),
			sell("2024-01-02", "40", "15"),
		},
	})
	require.NoError(t, err)
	assertDec(t, "600", summary.HoldingValue)
	assertDec(t, "10", summary.AverageCostOfHoldings)
}
