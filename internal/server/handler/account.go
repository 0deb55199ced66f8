package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// AccountHandler serves account balance, holding, and faucet endpoints.
type AccountHandler struct {
	engine *market.Engine
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(engine *market.Engine, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		engine: engine,
		logger: logHandler(logger, "account"),
	}
}

// Get returns the currency balance of an account.
// GET /api/accounts/{address}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct := domain.Address(pathParam(r, "address"))
	balance, err := h.engine.AccountBalance(r.Context(), acct)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": acct,
		"balance": balance,
	})
}

// Holding returns how many units of an asset an account owns directly.
// GET /api/accounts/{address}/holdings/{assetId}
func (h *AccountHandler) Holding(w http.ResponseWriter, r *http.Request) {
	owner := domain.Address(pathParam(r, "address"))
	asset := domain.AssetID(pathParam(r, "assetId"))
	balance, err := h.engine.HoldingBalance(r.Context(), owner, asset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": owner,
		"assetId": asset,
		"balance": balance,
	})
}

// Credit mints currency or asset units into an account. Authority only.
// POST /api/accounts/{address}/credit
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  domain.Address `json:"caller"`
		Amount  uint64         `json:"amount"`
		AssetID domain.AssetID `json:"assetId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}

	acct := domain.Address(pathParam(r, "address"))
	var err error
	if req.AssetID != "" {
		err = h.engine.CreditHolding(r.Context(), req.Caller, acct, req.AssetID, req.Amount)
	} else {
		err = h.engine.CreditAccount(r.Context(), req.Caller, acct, req.Amount)
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
