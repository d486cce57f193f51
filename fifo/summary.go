package fifo

import "github.com/shopspring/decimal"

// Summarize reduces a ledger to its card view: the cost of holdings and
// average price of the last row that carries a snapshot. Rows without one
// are skipped; an empty ledger summarizes to zeros.
func Summarize(rows []LedgerRow) LedgerSummary {
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if !r.CostOfHoldings.Valid {
			continue
		}
		avg := decimal.Zero
		if r.AverageCostOfHoldings.Valid {
			avg = r.AverageCostOfHoldings.Decimal
		}
		return LedgerSummary{
			HoldingValue:          r.CostOfHoldings.Decimal,
			AverageCostOfHoldings: avg,
		}
	}
	return LedgerSummary{HoldingValue: decimal.Zero, AverageCostOfHoldings: decimal.Zero}
}
