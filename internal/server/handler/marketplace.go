package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// MarketplaceHandler serves the marketplace configuration endpoints.
type MarketplaceHandler struct {
	engine *market.Engine
	logger *slog.Logger
}

// NewMarketplaceHandler creates a MarketplaceHandler.
func NewMarketplaceHandler(engine *market.Engine, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		engine: engine,
		logger: logHandler(logger, "marketplace"),
	}
}

// Get returns the marketplace configuration.
// GET /api/marketplace
func (h *MarketplaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.engine.GetConfig(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Initialize creates the marketplace singleton.
// POST /api/marketplace
func (h *MarketplaceHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Authority      domain.Address `json:"authority"`
		Treasury       domain.Address `json:"treasury"`
		FeeBasisPoints uint16         `json:"feeBasisPoints"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Authority == "" || req.Treasury == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "authority and treasury are required")
		return
	}

	cfg, err := h.engine.InitializeMarketplace(r.Context(), req.Authority, req.Treasury, req.FeeBasisPoints)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// UpdateFee changes the marketplace fee. Authority only.
// PUT /api/marketplace/fee
func (h *MarketplaceHandler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller         domain.Address `json:"caller"`
		FeeBasisPoints uint16         `json:"feeBasisPoints"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.engine.UpdateFee(r.Context(), req.Caller, req.FeeBasisPoints); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feeBasisPoints": req.FeeBasisPoints})
}

// Pause halts listing and purchase operations. Authority only.
// POST /api/marketplace/pause
func (h *MarketplaceHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause resumes listing and purchase operations. Authority only.
// POST /api/marketplace/unpause
func (h *MarketplaceHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *MarketplaceHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	caller := callerAddress(r)
	var err error
	if paused {
		err = h.engine.PauseMarketplace(r.Context(), caller)
	} else {
		err = h.engine.UnpauseMarketplace(r.Context(), caller)
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isPaused": paused})
}

// Close tears down the marketplace configuration. Authority only, and only
// while no listings remain active.
// DELETE /api/marketplace
func (h *MarketplaceHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CloseMarketplace(r.Context(), callerAddress(r)); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
