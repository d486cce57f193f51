/*
handlers.go - HTTP API handlers for the holdings ledger

PURPOSE:
  Exposes the holding ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the holdings service.

ENDPOINTS:
  Transaction (query: accountCode, securityCode, asOnDate):
    GET  /api/transaction/history   Full ledger rows
    GET  /api/transaction/card      Holding value + WAP
    GET  /api/transaction/buys      Total bought (incl. bonus shares)
    GET  /api/transaction/sells     Total sold

  Analytics:
    GET  /api/analytics/accounts    Distinct account codes
    GET  /api/analytics/holdings    Account-wide summary (accountCode, asOnDate)
    GET  /api/analytics/warmer      Summary warmer status

  Splits & import:
    POST /api/split                 Record a split announcement
    GET  /api/split/securities      Distinct securities
    POST /api/import                Bulk-load raw rows

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Missing or invalid input
  - 409: Duplicate record id
  - 422: Stored rows that cannot be replayed (bad dates)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Run behind an authenticating proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/warp/holdings-engine/fifo"
	"github.com/warp/holdings-engine/holdings"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *holdings.Service
	Store   holdings.ResettableStore
	Warmer  *holdings.Warmer
	Logger  *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the given store and service.
func NewHandler(store holdings.ResettableStore, svc *holdings.Service) *Handler {
	return &Handler{
		Service: svc,
		Store:   store,
		Logger:  svc.Logger,
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// holdingQuery is the common (account, security, as-on) selector.
type holdingQuery struct {
	account  string
	security string
	asOn     fifo.Date
}

func parseHoldingQuery(r *http.Request) (holdingQuery, error) {
	q := r.URL.Query()
	asOn, err := holdings.ParseAsOnDate(q.Get("asOnDate"))
	if err != nil {
		return holdingQuery{}, err
	}
	return holdingQuery{
		account:  q.Get("accountCode"),
		security: q.Get("securityCode"),
		asOn:     asOn,
	}, nil
}

// GetHistory returns every ledger row for one holding.
// GET /api/transaction/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHoldingQuery(r)
	if err != nil {
		h.writeServiceError(w, "Invalid query", err)
		return
	}

	rows, err := h.Service.History(r.Context(), q.account, q.security, q.asOn)
	if err != nil {
		h.writeServiceError(w, "Failed to build ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, toLedgerRowDTOs(rows))
}

// GetCard returns the holding value and WAP for one holding.
// GET /api/transaction/card
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	q, err := parseHoldingQuery(r)
	if err != nil {
		h.writeServiceError(w, "Invalid query", err)
		return
	}

	card, err := h.Service.Card(r.Context(), q.account, q.security, q.asOn)
	if err != nil {
		h.writeServiceError(w, "Failed to build ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, CardDTO{
		AccountCode:           q.account,
		SecurityCode:          q.security,
		AsOnDate:              q.asOn.String(),
		HoldingValue:          card.HoldingValue.InexactFloat64(),
		AverageCostOfHoldings: card.AverageCostOfHoldings.InexactFloat64(),
	})
}

// GetTotalBuyQty returns bought plus bonus shares.
// GET /api/transaction/buys
func (h *Handler) GetTotalBuyQty(w http.ResponseWriter, r *http.Request) {
	q, err := parseHoldingQuery(r)
	if err != nil {
		h.writeServiceError(w, "Invalid query", err)
		return
	}

	qty, err := h.Service.TotalBuyQty(r.Context(), q.account, q.security, q.asOn)
	if err != nil {
		h.writeServiceError(w, "Failed to total buys", err)
		return
	}

	writeJSON(w, http.StatusOK, QuantityDTO{
		AccountCode:  q.account,
		SecurityCode: q.security,
		AsOnDate:     q.asOn.String(),
		Quantity:     qty.InexactFloat64(),
	})
}

// GetTotalSellQty returns sold shares.
// GET /api/transaction/sells
func (h *Handler) GetTotalSellQty(w http.ResponseWriter, r *http.Request) {
	q, err := parseHoldingQuery(r)
	if err != nil {
		h.writeServiceError(w, "Invalid query", err)
		return
	}

	qty, err := h.Service.TotalSellQty(r.Context(), q.account, q.security, q.asOn)
	if err != nil {
		h.writeServiceError(w, "Failed to total sells", err)
		return
	}

	writeJSON(w, http.StatusOK, QuantityDTO{
		AccountCode:  q.account,
		SecurityCode: q.security,
		AsOnDate:     q.asOn.String(),
		Quantity:     qty.InexactFloat64(),
	})
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// ListAccounts returns all account codes.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetHoldingsSummary returns every open holding of an account.
// GET /api/analytics/holdings
func (h *Handler) GetHoldingsSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseHoldingQuery(r)
	if err != nil {
		h.writeServiceError(w, "Invalid query", err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), q.account, q.asOn)
	if err != nil {
		h.writeServiceError(w, "Failed to build holdings summary", err)
		return
	}

	writeJSON(w, http.StatusOK, toHoldingSummaryDTOs(summary))
}

// GetWarmerStatus reports the background summary warmer.
func (h *Handler) GetWarmerStatus(w http.ResponseWriter, r *http.Request) {
	if h.Warmer == nil {
		writeJSON(w, http.StatusOK, WarmerStatusDTO{Interval: "0s"})
		return
	}
	writeJSON(w, http.StatusOK, toWarmerStatusDTO(h.Warmer.Status()))
}

// =============================================================================
// SPLIT & IMPORT HANDLERS
// =============================================================================

// AddSplit records a split announcement.
// POST /api/split
func (h *Handler) AddSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Service.AddSplit(r.Context(), req.record())
	if err != nil {
		h.writeServiceError(w, "Failed to add split", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSplitDTO(saved))
}

// ListSecurities returns all known securities.
func (h *Handler) ListSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.Service.Securities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list securities", err)
		return
	}

	dtos := make([]SecurityDTO, len(securities))
	for i, s := range securities {
		dtos[i] = SecurityDTO{Code: s.Code, Name: s.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Import bulk-loads raw rows.
// POST /api/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.Import(r.Context(), req.batch()); err != nil {
		h.writeServiceError(w, "Failed to import", err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		Transactions: len(req.Transactions),
		Bonuses:      len(req.Bonuses),
		Splits:       len(req.Splits),
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps service errors to a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, holdings.ErrDuplicateRecord):
		writeError(w, http.StatusConflict, message, err)
	case holdings.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case holdings.IsInvalidData(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
