/*
ledger.go - FIFO lot ledger

PURPOSE:
  The Ledger owns the queue of open lots for one holding and the running
  share count. It processes one event at a time, strictly in merged order,
  and emits the ledger rows for that event.

STATE:
  lots:     arena of every lot ever created; a lot's ID is its position + 1
  queue:    arena positions of the active lots, oldest at the head
  holdings: running share count

INVARIANTS (after every event, barring oversell):
  1. holdings == sum of Qty over active lots
  2. cost of holdings == sum of Qty*Price over active lots
  3. sells consume the head of the queue first
  4. lot IDs are unique and strictly increasing, split successors included

OVERSELL:
  Selling more than the queue holds is not rejected. The queue is drained,
  the cost of sale only covers the shares that were there, and holdings is
  still reduced by the full quantity, so it can go negative. Callers who
  need a hard guarantee must reject oversells before replay.

LOT LIFECYCLE:
  Active(qty>0) --sell--> Active(qty reduced) --qty reaches 0--> Inactive
  Active --split--> Inactive, with a new Active successor
  An inactive lot never becomes active again.

SEE ALSO:
  - split.go: split restatement
  - emit.go: row construction
*/
package fifo

import (
	"github.com/shopspring/decimal"
)

// Trade is a classified, priced buy or sell.
type Trade struct {
	Date      Date
	TypeCode  string
	Qty       decimal.Decimal
	Price     decimal.Decimal
	NetAmount decimal.Decimal
}

// Ledger replays the events of a single holding. Not safe for concurrent
// use; run one Ledger per holding instead.
type Ledger struct {
	lots     []Lot
	queue    []int
	holdings decimal.Decimal
	rows     []LedgerRow
}

func NewLedger() *Ledger {
	return &Ledger{rows: []LedgerRow{}}
}

// =============================================================================
// EVENT DISPATCH
// =============================================================================

// Apply processes one merged event. Transactions classified as TxnOther
// produce nothing.
func (l *Ledger) Apply(e Event) {
	switch ev := e.(type) {
	case TxnEvent:
		t := Trade{
			Date:      ev.Date,
			TypeCode:  ev.TypeCode,
			Qty:       ev.Qty,
			Price:     ev.Price(),
			NetAmount: ev.NetAmount,
		}
		switch ev.Class {
		case TxnBuy:
			l.Buy(t)
		case TxnSell:
			l.Sell(t)
		}
	case BonusEvent:
		l.Bonus(ev.Date, ev.Qty)
	case SplitEvent:
		l.Split(ev.Date, ev.Ratio1, ev.Ratio2)
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Buy opens a new lot at the tail of the queue. Non-positive quantities are
// ignored. Reports whether a row was emitted.
func (l *Ledger) Buy(t Trade) bool {
	if !t.Qty.IsPositive() {
		return false
	}
	id := l.openLot(t.Qty, t.Price, t.Date)
	l.holdings = l.holdings.Add(t.Qty)

	l.emit(LedgerRow{
		LotID:     lotRef(id),
		Date:      t.Date,
		Kind:      RowBuy,
		TypeCode:  t.TypeCode,
		Qty:       t.Qty,
		Price:     t.Price,
		NetAmount: t.NetAmount,
		IsActive:  true,
	})
	return true
}

// Sell consumes lots from the head of the queue and records the realized
// profit or loss against their FIFO cost.
func (l *Ledger) Sell(t Trade) bool {
	if !t.Qty.IsPositive() {
		return false
	}

	remaining := t.Qty
	fifoCost := decimal.Zero
	for remaining.IsPositive() && len(l.queue) > 0 {
		lot := &l.lots[l.queue[0]]
		used := decimal.Min(lot.Qty, remaining)

		fifoCost = fifoCost.Add(used.Mul(lot.Price))
		lot.Qty = lot.Qty.Sub(used)
		remaining = remaining.Sub(used)

		if !lot.Qty.IsPositive() {
			lot.Active = false
			l.queue = l.queue[1:]
		}
	}
	// remaining > 0 here means oversell; see file header.
	l.holdings = l.holdings.Sub(t.Qty)

	l.emit(LedgerRow{
		Date:       t.Date,
		Kind:       RowSell,
		TypeCode:   t.TypeCode,
		Qty:        t.Qty,
		Price:      t.Price,
		NetAmount:  t.NetAmount,
		ProfitLoss: nullDecimal(t.Qty.Mul(t.Price).Sub(fifoCost)),
	})
	return true
}

// Bonus credits free shares as a zero-cost lot.
func (l *Ledger) Bonus(date Date, qty decimal.Decimal) bool {
	if !qty.IsPositive() {
		return false
	}
	id := l.openLot(qty, decimal.Zero, date)
	l.holdings = l.holdings.Add(qty)

	l.emit(LedgerRow{
		LotID:     lotRef(id),
		Date:      date,
		Kind:      RowBonus,
		TypeCode:  string(RowBonus),
		Qty:       qty,
		Price:     decimal.Zero,
		NetAmount: decimal.Zero,
		IsActive:  true,
	})
	return true
}

// =============================================================================
// STATE ACCESS
// =============================================================================

func (l *Ledger) Holdings() decimal.Decimal { return l.holdings }

// CostOfHoldings is the sum of Qty*Price over the active lots.
func (l *Ledger) CostOfHoldings() decimal.Decimal {
	cost := decimal.Zero
	for _, idx := range l.queue {
		cost = cost.Add(l.lots[idx].Cost())
	}
	return cost
}

// AverageCostOfHoldings is the weighted-average price, zero when nothing
// (or a negative quantity) is held.
func (l *Ledger) AverageCostOfHoldings() decimal.Decimal {
	return averageCost(l.holdings, l.CostOfHoldings())
}

// ActiveLots returns copies of the queued lots, oldest first.
func (l *Ledger) ActiveLots() []Lot {
	out := make([]Lot, len(l.queue))
	for i, idx := range l.queue {
		out[i] = l.lots[idx]
	}
	return out
}

// Lots returns copies of every lot ever created, in ID order.
func (l *Ledger) Lots() []Lot {
	out := make([]Lot, len(l.lots))
	copy(out, l.lots)
	return out
}

// Rows returns the ledger rows emitted so far.
func (l *Ledger) Rows() []LedgerRow {
	out := make([]LedgerRow, len(l.rows))
	copy(out, l.rows)
	return out
}

// =============================================================================
// INTERNALS
// =============================================================================

// openLot appends a lot to the arena and the queue tail.
func (l *Ledger) openLot(qty, price decimal.Decimal, buyDate Date) LotID {
	id := LotID(len(l.lots) + 1)
	l.lots = append(l.lots, Lot{
		ID:          id,
		OriginalQty: qty,
		Qty:         qty,
		Price:       price,
		BuyDate:     buyDate,
		Active:      true,
	})
	l.queue = append(l.queue, len(l.lots)-1)
	return id
}

func averageCost(holdings, cost decimal.Decimal) decimal.Decimal {
	if !holdings.IsPositive() {
		return decimal.Zero
	}
	return cost.Div(holdings)
}

func lotRef(id LotID) *LotID { return &id }

// =============================================================================
// REPLAY
// =============================================================================

// Replay merges the input and runs it through a fresh Ledger.
func Replay(in Input) ([]LedgerRow, error) {
	events, err := MergeEvents(in)
	if err != nil {
		return nil, err
	}
	l := NewLedger()
	for _, e := range events {
		l.Apply(e)
	}
	return l.Rows(), nil
}

// ReplaySummary is Replay in card mode.
func ReplaySummary(in Input) (LedgerSummary, error) {
	rows, err := Replay(in)
	if err != nil {
		return LedgerSummary{}, err
	}
	return Summarize(rows), nil
}
