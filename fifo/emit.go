package fifo

import "github.com/shopspring/decimal"

// emit appends r stamped with the ledger's current running snapshot.
func (l *Ledger) emit(r LedgerRow) {
	l.rows = append(l.rows, withSnapshot(r, l.holdings, l.CostOfHoldings()))
}

// withSnapshot fills the running holdings, cost and average price of r.
func withSnapshot(r LedgerRow, holdings, cost decimal.Decimal) LedgerRow {
	r.Holdings = nullDecimal(holdings)
	r.CostOfHoldings = nullDecimal(cost)
	r.AverageCostOfHoldings = nullDecimal(averageCost(holdings, cost))
	return r
}
