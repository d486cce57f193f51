/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with small,
	hand-checkable histories. Each scenario demonstrates one ledger rule
	and names the account and security to query.

AVAILABLE SCENARIOS:

	single-buy:      One buy; holdings, cost and WAP straight from the lot
	partial-sell:    FIFO sell with realized profit
	split:           Split restating an earlier buy
	bonus-fifo:      Sell draining a paid lot then a zero-cost bonus lot
	oversell:        Selling more than held; holdings go negative
	portfolio:       Several securities for the account summary

HOW SCENARIOS WORK:
 1. Reset the store (clear all rows)
 2. Import the scenario batch through the service
 3. Remember the loaded scenario

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "split"}

	GET /api/transaction/history?accountCode=DEMO&securityCode=SPLT

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context
  - holdings/service.go: Import
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/holdings-engine/holdings"
)

const demoAccount = "DEMO"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	batch func() holdings.Batch
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:           "single-buy",
			Name:         "Single Buy",
			Description:  "Buy 100 @ 10: holdings 100, cost 1000, average 10",
			AccountCode:  demoAccount,
			SecurityCode: "BUY1",
		},
		batch: func() holdings.Batch {
			return holdings.Batch{Transactions: []holdings.TransactionRecord{
				demoTxn("BUY1", "Single Buy Ltd", "2024-01-01", "BY-", "100", "10"),
			}}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:           "partial-sell",
			Name:         "Partial Sell",
			Description:  "Buy 100 @ 10, sell 40 @ 15: profit 200, 60 left at 10",
			AccountCode:  demoAccount,
			SecurityCode: "SELL",
		},
		batch: func() holdings.Batch {
			return holdings.Batch{Transactions: []holdings.TransactionRecord{
				demoTxn("SELL", "Partial Sell Ltd", "2024-01-01", "BY-", "100", "10"),
				demoTxn("SELL", "Partial Sell Ltd", "2024-01-02", "SL+", "40", "15"),
			}}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:           "split",
			Name:         "Split Restatement",
			Description:  "Buy 100 @ 10, split 1:2 later: one SPLIT row of 200 @ 5 dated at the buy",
			AccountCode:  demoAccount,
			SecurityCode: "SPLT",
		},
		batch: func() holdings.Batch {
			return holdings.Batch{
				Transactions: []holdings.TransactionRecord{
					demoTxn("SPLT", "Split Industries Ltd", "2024-01-01", "BY-", "100", "10"),
				},
				Splits: []holdings.SplitRecord{
					demoSplit("SPLT", "Split Industries Ltd", "2024-01-05", "1", "2"),
				},
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:           "bonus-fifo",
			Name:         "Bonus Shares",
			Description:  "Buy 50 @ 10, bonus 10, sell 55 @ 20: FIFO cost 500, profit 600, 5 bonus shares left",
			AccountCode:  demoAccount,
			SecurityCode: "BONS",
		},
		batch: func() holdings.Batch {
			return holdings.Batch{
				Transactions: []holdings.TransactionRecord{
					demoTxn("BONS", "Bonus Corp", "2024-01-01", "BY-", "50", "10"),
					demoTxn("BONS", "Bonus Corp", "2024-01-03", "SL+", "55", "20"),
				},
				Bonuses: []holdings.BonusRecord{
					demoBonus("BONS", "Bonus Corp", "2024-01-02", "10"),
				},
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:           "oversell",
			Name:         "Oversell",
			Description:  "Buy 10 @ 10, sell 15 @ 12: FIFO cost 100, profit 80, holdings -5",
			AccountCode:  demoAccount,
			SecurityCode: "OVER",
		},
		batch: func() holdings.Batch {
			return holdings.Batch{Transactions: []holdings.TransactionRecord{
				demoTxn("OVER", "Oversold Ltd", "2024-01-01", "BY-", "10", "10"),
				demoTxn("OVER", "Oversold Ltd", "2024-01-02", "SL+", "15", "12"),
			}}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "portfolio",
			Name:        "Portfolio",
			Description: "Several securities with sells, a bonus and a split for the holdings summary",
			AccountCode: demoAccount,
		},
		batch: portfolioBatch,
	},
}

func portfolioBatch() holdings.Batch {
	return holdings.Batch{
		Transactions: []holdings.TransactionRecord{
			demoTxn("INFY", "Infosys Limited", "2023-04-03", "BY-", "40", "1400"),
			demoTxn("INFY", "INFOSYS LTD.", "2023-09-12", "BY-", "20", "1450"),
			demoTxn("INFY", "Infosys Limited", "2024-02-01", "SL+", "30", "1650"),
			demoTxn("TCS", "Tata Consultancy Services Limited", "2023-05-10", "BY-", "10", "3200"),
			demoTxn("HDFC", "HDFC Bank Limited", "2023-06-01", "BY-", "25", "1600"),
			demoTxn("HDFC", "HDFC Bank Limited", "2023-12-15", "SL+", "25", "1700"),
			demoTxn("ITC", "ITC Limited", "2022-01-10", "BY-", "100", "220"),
		},
		Bonuses: []holdings.BonusRecord{
			demoBonus("TCS", "Tata Consultancy Services Limited", "2023-11-20", "2"),
		},
		Splits: []holdings.SplitRecord{
			demoSplit("ITC", "ITC Limited", "2023-06-01", "1", "2"),
		},
	}
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	if err := h.Service.Import(ctx, s.batch()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = s.ID
	h.Logger.Info("Scenario loaded", "scenario", s.ID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetDatabase clears all stored rows.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// reset must be called with h.mu held.
func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""
	h.Service.InvalidateCache()
	return nil
}

// =============================================================================
// BUILDERS
// =============================================================================

func demoTxn(code, name, date, tranType, qty, rate string) holdings.TransactionRecord {
	q := decimal.RequireFromString(qty)
	r := decimal.RequireFromString(rate)
	return holdings.TransactionRecord{
		AccountCode:  demoAccount,
		SecurityCode: code,
		SecurityName: name,
		TranDate:     date,
		TranType:     tranType,
		Qty:          q,
		NetRate:      r,
		NetAmount:    q.Mul(r),
	}
}

func demoBonus(code, name, date, qty string) holdings.BonusRecord {
	return holdings.BonusRecord{
		AccountCode:  demoAccount,
		SecurityCode: code,
		SecurityName: name,
		ExDate:       date,
		BonusShare:   decimal.RequireFromString(qty),
	}
}

func demoSplit(code, name, date, ratio1, ratio2 string) holdings.SplitRecord {
	return holdings.SplitRecord{
		SecurityCode: code,
		SecurityName: name,
		IssueDate:    date,
		Ratio1:       decimal.RequireFromString(ratio1),
		Ratio2:       decimal.RequireFromString(ratio2),
	}
}
