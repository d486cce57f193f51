/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMBERS:
  Responses carry float64 for dashboard consumption. Nullable ledger
  fields (holdings, cost, average, profit/loss) are pointers so they
  serialize as null. Requests accept decimals as JSON numbers or strings
  and keep them exact.

SEE ALSO:
  - handlers.go: Uses these types
  - fifo/types.go: LedgerRow, LedgerSummary
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/holdings-engine/fifo"
	"github.com/warp/holdings-engine/holdings"
)

// =============================================================================
// LEDGER
// =============================================================================

// LedgerRowDTO is one ledger row.
type LedgerRowDTO struct {
	LotID                 *int64   `json:"lot_id"`
	Date                  string   `json:"date"`
	Type                  string   `json:"type"`
	TranType              string   `json:"tran_type"`
	Qty                   float64  `json:"qty"`
	Price                 float64  `json:"price"`
	NetAmount             float64  `json:"net_amount"`
	Holdings              *float64 `json:"holdings"`
	CostOfHoldings        *float64 `json:"cost_of_holdings"`
	AverageCostOfHoldings *float64 `json:"average_cost_of_holdings"`
	ProfitLoss            *float64 `json:"profit_loss"`
	IsActive              bool     `json:"is_active"`
}

// CardDTO is the summary-mode result for one holding.
type CardDTO struct {
	AccountCode           string  `json:"account_code"`
	SecurityCode          string  `json:"security_code"`
	AsOnDate              string  `json:"as_on_date,omitempty"`
	HoldingValue          float64 `json:"holding_value"`
	AverageCostOfHoldings float64 `json:"average_cost_of_holdings"`
}

// QuantityDTO carries one cross-check total.
type QuantityDTO struct {
	AccountCode  string  `json:"account_code"`
	SecurityCode string  `json:"security_code"`
	AsOnDate     string  `json:"as_on_date,omitempty"`
	Quantity     float64 `json:"quantity"`
}

// =============================================================================
// ANALYTICS
// =============================================================================

type HoldingSummaryDTO struct {
	StockName      string  `json:"stock_name"`
	SecurityCode   string  `json:"security_code"`
	CurrentHolding float64 `json:"current_holding"`
	HoldingValue   float64 `json:"holding_value"`
	AvgPrice       float64 `json:"avg_price"`
}

type WarmerStatusDTO struct {
	Running  bool   `json:"running"`
	Interval string `json:"interval"`
	LastRun  string `json:"last_run,omitempty"`
	Duration string `json:"duration,omitempty"`
	Accounts int    `json:"accounts"`
	Failures int    `json:"failures"`
}

// =============================================================================
// SPLITS & IMPORT
// =============================================================================

type SplitRequest struct {
	SecurityCode string          `json:"security_code"`
	SecurityName string          `json:"security_name"`
	IssueDate    string          `json:"issue_date"`
	Ratio1       decimal.Decimal `json:"ratio1"`
	Ratio2       decimal.Decimal `json:"ratio2"`
}

type SplitDTO struct {
	ID           string  `json:"id"`
	SecurityCode string  `json:"security_code"`
	SecurityName string  `json:"security_name"`
	IssueDate    string  `json:"issue_date"`
	Ratio1       float64 `json:"ratio1"`
	Ratio2       float64 `json:"ratio2"`
	CreatedAt    string  `json:"created_at"`
}

type SecurityDTO struct {
	Code string `json:"security_code"`
	Name string `json:"security_name"`
}

type TransactionRequest struct {
	ID           string          `json:"id,omitempty"`
	AccountCode  string          `json:"account_code"`
	SecurityCode string          `json:"security_code"`
	SecurityName string          `json:"security_name"`
	TranDate     string          `json:"tran_date"`
	TranType     string          `json:"tran_type"`
	Qty          decimal.Decimal `json:"qty"`
	NetRate      decimal.Decimal `json:"net_rate"`
	NetAmount    decimal.Decimal `json:"net_amount"`
}

type BonusRequest struct {
	ID           string          `json:"id,omitempty"`
	AccountCode  string          `json:"account_code"`
	SecurityCode string          `json:"security_code"`
	SecurityName string          `json:"security_name"`
	ExDate       string          `json:"ex_date"`
	BonusShare   decimal.Decimal `json:"bonus_share"`
}

// ImportRequest is a bulk load of raw rows.
type ImportRequest struct {
	Transactions []TransactionRequest `json:"transactions"`
	Bonuses      []BonusRequest       `json:"bonuses"`
	Splits       []SplitRequest       `json:"splits"`
}

type ImportResponse struct {
	Transactions int `json:"transactions"`
	Bonuses      int `json:"bonuses"`
	Splits       int `json:"splits"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	AccountCode  string `json:"account_code"`
	SecurityCode string `json:"security_code,omitempty"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLedgerRowDTOs(rows []fifo.LedgerRow) []LedgerRowDTO {
	dtos := make([]LedgerRowDTO, len(rows))
	for i, r := range rows {
		dto := LedgerRowDTO{
			Date:                  r.Date.String(),
			Type:                  string(r.Kind),
			TranType:              r.TypeCode,
			Qty:                   r.Qty.InexactFloat64(),
			Price:                 r.Price.InexactFloat64(),
			NetAmount:             r.NetAmount.InexactFloat64(),
			Holdings:              nullFloat(r.Holdings),
			CostOfHoldings:        nullFloat(r.CostOfHoldings),
			AverageCostOfHoldings: nullFloat(r.AverageCostOfHoldings),
			ProfitLoss:            nullFloat(r.ProfitLoss),
			IsActive:              r.IsActive,
		}
		if r.LotID != nil {
			id := int64(*r.LotID)
			dto.LotID = &id
		}
		dtos[i] = dto
	}
	return dtos
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func toHoldingSummaryDTOs(rows []holdings.HoldingSummary) []HoldingSummaryDTO {
	dtos := make([]HoldingSummaryDTO, len(rows))
	for i, h := range rows {
		dtos[i] = HoldingSummaryDTO{
			StockName:      h.StockName,
			SecurityCode:   h.SecurityCode,
			CurrentHolding: h.CurrentHolding.InexactFloat64(),
			HoldingValue:   h.HoldingValue.InexactFloat64(),
			AvgPrice:       h.AvgPrice.InexactFloat64(),
		}
	}
	return dtos
}

func toSplitDTO(s holdings.SplitRecord) SplitDTO {
	return SplitDTO{
		ID:           s.ID,
		SecurityCode: s.SecurityCode,
		SecurityName: s.SecurityName,
		IssueDate:    s.IssueDate,
		Ratio1:       s.Ratio1.InexactFloat64(),
		Ratio2:       s.Ratio2.InexactFloat64(),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

func toWarmerStatusDTO(s holdings.WarmerStatus) WarmerStatusDTO {
	dto := WarmerStatusDTO{
		Running:  s.Running,
		Interval: s.Interval.String(),
		Accounts: s.Accounts,
		Failures: s.Failures,
	}
	if !s.LastRun.IsZero() {
		dto.LastRun = s.LastRun.Format(time.RFC3339)
		dto.Duration = s.Duration.String()
	}
	return dto
}

func (r SplitRequest) record() holdings.SplitRecord {
	return holdings.SplitRecord{
		SecurityCode: r.SecurityCode,
		SecurityName: r.SecurityName,
		IssueDate:    r.IssueDate,
		Ratio1:       r.Ratio1,
		Ratio2:       r.Ratio2,
	}
}

func (r ImportRequest) batch() holdings.Batch {
	b := holdings.Batch{
		Transactions: make([]holdings.TransactionRecord, len(r.Transactions)),
		Bonuses:      make([]holdings.BonusRecord, len(r.Bonuses)),
		Splits:       make([]holdings.SplitRecord, len(r.Splits)),
	}
	for i, t := range r.Transactions {
		b.Transactions[i] = holdings.TransactionRecord{
			ID:           t.ID,
			AccountCode:  t.AccountCode,
			SecurityCode: t.SecurityCode,
			SecurityName: t.SecurityName,
			TranDate:     t.TranDate,
			TranType:     t.TranType,
			Qty:          t.Qty,
			NetRate:      t.NetRate,
			NetAmount:    t.NetAmount,
		}
	}
	for i, bo := range r.Bonuses {
		b.Bonuses[i] = holdings.BonusRecord{
			ID:           bo.ID,
			AccountCode:  bo.AccountCode,
			SecurityCode: bo.SecurityCode,
			SecurityName: bo.SecurityName,
			ExDate:       bo.ExDate,
			BonusShare:   bo.BonusShare,
		}
	}
	for i, s := range r.Splits {
		b.Splits[i] = s.record()
	}
	return b
}
