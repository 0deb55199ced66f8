package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// ReceiptHandler serves settlement receipt queries.
type ReceiptHandler struct {
	engine *market.Engine
	logger *slog.Logger
}

// NewReceiptHandler creates a ReceiptHandler.
func NewReceiptHandler(engine *market.Engine, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		engine: engine,
		logger: logHandler(logger, "receipt"),
	}
}

// List returns settlement receipts, newest first. Supports limit/offset and
// since/until query parameters.
// GET /api/receipts
func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.engine.ListReceipts(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipts": receipts,
		"count":    len(receipts),
	})
}

// ListByAsset returns the settlement history of a single asset.
// GET /api/listings/{assetId}/receipts
func (h *ReceiptHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	asset := domain.AssetID(pathParam(r, "assetId"))
	receipts, err := h.engine.AssetReceipts(r.Context(), asset, parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assetId":  asset,
		"receipts": receipts,
		"count":    len(receipts),
	})
}
