package fifo

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SPLIT RESTATEMENT
// =============================================================================

// Split restates every active lot for a ratio1:ratio2 split. Each lot is
// deactivated and replaced, in queue order, by a successor holding
// qty*ratio2/ratio1 shares at price*ratio1/ratio2, so that every lot keeps
// its monetary value.
//
// One SPLIT row is emitted per replaced lot. It is dated at the lot's buy
// date, placed right after the row that created the lot, and carries the
// cumulative holdings and cost of the successors restated so far.
//
// Zero, negative or missing ratios are ignored, as is a split with nothing
// held. Reports whether anything was restated.
func (l *Ledger) Split(date Date, ratio1, ratio2 decimal.Decimal) bool {
	if !ratio1.IsPositive() || !ratio2.IsPositive() || len(l.queue) == 0 {
		return false
	}

	replaced := l.queue
	l.queue = make([]int, 0, len(replaced))

	restated := make([]anchoredRow, 0, len(replaced))
	runningHoldings := decimal.Zero
	runningCost := decimal.Zero

	for _, idx := range replaced {
		l.lots[idx].Active = false
		prev := l.lots[idx] // copy: openLot may grow the arena

		qty := prev.Qty.Mul(ratio2).Div(ratio1)
		price := prev.Price.Mul(ratio1).Div(ratio2)
		id := l.openLot(qty, price, prev.BuyDate)

		runningHoldings = runningHoldings.Add(qty)
		runningCost = runningCost.Add(qty.Mul(price))

		row := LedgerRow{
			LotID:     lotRef(id),
			Date:      prev.BuyDate,
			Kind:      RowSplit,
			TypeCode:  string(RowSplit),
			Qty:       qty,
			Price:     price,
			NetAmount: decimal.Zero,
			IsActive:  true,
		}
		restated = append(restated, anchoredRow{
			anchor: prev.ID,
			row:    withSnapshot(row, runningHoldings, runningCost),
		})
	}

	l.holdings = runningHoldings
	l.rows = spliceAfterAnchors(l.rows, restated)
	return true
}

// anchoredRow is a synthetic row to be placed after the row of lot anchor.
type anchoredRow struct {
	anchor LotID
	row    LedgerRow
}

// spliceAfterAnchors inserts each restated row right after the row that
// created its anchor lot. Lots in the queue were created in row order, so
// one forward pass places them all; anything without an anchor row goes to
// the end in queue order.
func spliceAfterAnchors(rows []LedgerRow, restated []anchoredRow) []LedgerRow {
	pending := make(map[LotID]int, len(restated))
	for i, r := range restated {
		pending[r.anchor] = i
	}
	placed := make([]bool, len(restated))

	out := make([]LedgerRow, 0, len(rows)+len(restated))
	for _, r := range rows {
		out = append(out, r)
		if r.LotID == nil {
			continue
		}
		if i, ok := pending[*r.LotID]; ok && !placed[i] {
			out = append(out, restated[i].row)
			placed[i] = true
		}
	}
	for i, r := range restated {
		if !placed[i] {
			out = append(out, r.row)
		}
	}
	return out
}
