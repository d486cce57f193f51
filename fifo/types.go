/*
Package fifo provides the holding ledger replay engine.

PURPOSE:
  Given every buy/sell transaction, bonus issuance and stock split for one
  holding (one account x one security), the engine replays them in date
  order and produces a chronological ledger: running share count, cost of
  holdings, weighted-average price and realized profit/loss per sale.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawTransaction / RawBonus / RawSplit: already-normalized input rows
  - Lot: an open parcel of shares acquired at one price
  - LedgerRow: one emitted ledger line
  - LedgerSummary: the condensed "card" view of a ledger

DESIGN PRINCIPLES:
  1. Purity: no I/O, no logging, no package-level mutable state
  2. Precision: quantities and prices use decimal.Decimal
  3. Determinism: same input, same output, byte for byte
  4. Ownership: lots live only inside one Ledger; rows reference them by id

USAGE:
  rows, err := fifo.Replay(fifo.Input{
      Transactions: txns,
      Bonuses:      bonuses,
      Splits:       splits,
  })

SEE ALSO:
  - events.go: merging the three inputs into one ordered sequence
  - ledger.go: FIFO lot accounting
  - split.go: split restatement
  - summary.go: card mode
*/
package fifo

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT - Already-normalized rows handed over by the caller
// =============================================================================

// RawTransaction is one buy/sell execution. Qty may be signed; only its
// magnitude is used. NetRate and NetAmount are optional (zero = missing).
type RawTransaction struct {
	Date      string
	TypeCode  string
	Qty       decimal.Decimal
	NetRate   decimal.Decimal
	NetAmount decimal.Decimal
}

// RawBonus is a free share issuance.
type RawBonus struct {
	ExDate     string
	BonusShare decimal.Decimal
}

// RawSplit is a face-value split or consolidation of Ratio1:Ratio2.
// A 1:2 split doubles the share count and halves the price.
type RawSplit struct {
	IssueDate string
	Ratio1    decimal.Decimal
	Ratio2    decimal.Decimal
}

// Input is everything the engine needs for one holding.
type Input struct {
	Transactions []RawTransaction
	Bonuses      []RawBonus
	Splits       []RawSplit
}

// ParseAmount parses a numeric field from a feed. Missing or non-numeric
// values become zero so that the event degrades into a no-op.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// LOT - Open parcel of shares
// =============================================================================

type LotID int64

type Lot struct {
	ID          LotID
	OriginalQty decimal.Decimal
	Qty         decimal.Decimal // remaining
	Price       decimal.Decimal // per-share cost
	BuyDate     Date
	Active      bool
}

// Cost is the remaining cost carried by the lot.
func (l Lot) Cost() decimal.Decimal { return l.Qty.Mul(l.Price) }

// =============================================================================
// LEDGER ROW - One emitted line
// =============================================================================

type RowKind string

const (
	RowBuy   RowKind = "BUY"
	RowSell  RowKind = "SELL"
	RowBonus RowKind = "BONUS"
	RowSplit RowKind = "SPLIT"
)

// LedgerRow is one line of the replayed ledger.
//
// The running snapshot (Holdings, CostOfHoldings, AverageCostOfHoldings) is
// nullable so that consumers built for partial snapshots keep working; the
// engine itself fills it on every row. ProfitLoss is set on SELL rows only.
type LedgerRow struct {
	LotID     *LotID // nil for SELL rows
	Date      Date
	Kind      RowKind
	TypeCode  string
	Qty       decimal.Decimal
	Price     decimal.Decimal
	NetAmount decimal.Decimal

	Holdings              decimal.NullDecimal
	CostOfHoldings        decimal.NullDecimal
	AverageCostOfHoldings decimal.NullDecimal
	ProfitLoss            decimal.NullDecimal

	IsActive bool
}

// LedgerSummary is the card view: last known cost and average price.
type LedgerSummary struct {
	HoldingValue          decimal.Decimal
	AverageCostOfHoldings decimal.Decimal
}

func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
