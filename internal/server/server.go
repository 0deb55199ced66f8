package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/server/middleware"
	"github.com/alanyoungcy/nftmarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Marketplace *handler.MarketplaceHandler
	Listings    *handler.ListingHandler
	Accounts    *handler.AccountHandler
	Receipts    *handler.ReceiptHandler
}

// Server is the HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Marketplace configuration.
	mux.HandleFunc("GET /api/marketplace", handlers.Marketplace.Get)
	mux.HandleFunc("POST /api/marketplace", handlers.Marketplace.Initialize)
	mux.HandleFunc("DELETE /api/marketplace", handlers.Marketplace.Close)
	mux.HandleFunc("PUT /api/marketplace/fee", handlers.Marketplace.UpdateFee)
	mux.HandleFunc("POST /api/marketplace/pause", handlers.Marketplace.Pause)
	mux.HandleFunc("POST /api/marketplace/unpause", handlers.Marketplace.Unpause)

	// Listings and settlement.
	mux.HandleFunc("GET /api/listings", handlers.Listings.List)
	mux.HandleFunc("POST /api/listings", handlers.Listings.Create)
	mux.HandleFunc("GET /api/listings/{assetId}", handlers.Listings.Get)
	mux.HandleFunc("PUT /api/listings/{assetId}", handlers.Listings.Update)
	mux.HandleFunc("DELETE /api/listings/{assetId}", handlers.Listings.Delist)
	mux.HandleFunc("POST /api/listings/{assetId}/buy", handlers.Listings.Buy)
	mux.HandleFunc("GET /api/listings/{assetId}/receipts", handlers.Receipts.ListByAsset)

	// Accounts and holdings.
	mux.HandleFunc("GET /api/accounts/{address}", handlers.Accounts.Get)
	mux.HandleFunc("GET /api/accounts/{address}/holdings/{assetId}", handlers.Accounts.Holding)
	mux.HandleFunc("POST /api/accounts/{address}/credit", handlers.Accounts.Credit)

	// Settlement receipts.
	mux.HandleFunc("GET /api/receipts", handlers.Receipts.List)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
