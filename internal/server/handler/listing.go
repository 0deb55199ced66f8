package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// ListingHandler serves the listing lifecycle and settlement endpoints.
type ListingHandler struct {
	engine *market.Engine
	logger *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(engine *market.Engine, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		engine: engine,
		logger: logHandler(logger, "listing"),
	}
}

// List returns active listings, newest first.
// GET /api/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.engine.ListActive(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"listings": listings,
		"count":    len(listings),
	})
}

// Create lists an asset for sale, moving one unit into escrow.
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seller          domain.Address `json:"seller"`
		AssetID         domain.AssetID `json:"assetId"`
		Price           uint64         `json:"price"`
		DurationSeconds int64          `json:"durationSeconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Seller == "" || req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "seller and assetId are required")
		return
	}

	listing, err := h.engine.ListAsset(r.Context(), req.Seller, req.AssetID, req.Price,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// Get returns a single listing by asset ID.
// GET /api/listings/{assetId}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	asset := domain.AssetID(pathParam(r, "assetId"))
	listing, err := h.engine.GetListing(r.Context(), asset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Update changes the price and expiry window of a listing. Seller only.
// PUT /api/listings/{assetId}
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller          domain.Address `json:"caller"`
		Price           uint64         `json:"price"`
		DurationSeconds int64          `json:"durationSeconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	asset := domain.AssetID(pathParam(r, "assetId"))
	listing, err := h.engine.UpdateListing(r.Context(), req.Caller, asset, req.Price,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Delist cancels a listing and returns the escrowed asset to the seller.
// DELETE /api/listings/{assetId}
func (h *ListingHandler) Delist(w http.ResponseWriter, r *http.Request) {
	asset := domain.AssetID(pathParam(r, "assetId"))
	if err := h.engine.DelistAsset(r.Context(), callerAddress(r), asset); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Buy settles a purchase: fee to treasury, remainder to the seller, asset out
// of escrow to the buyer.
// POST /api/listings/{assetId}/buy
func (h *ListingHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer domain.Address `json:"buyer"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "buyer is required")
		return
	}

	asset := domain.AssetID(pathParam(r, "assetId"))
	receipt, err := h.engine.BuyAsset(r.Context(), req.Buyer, asset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
