package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/market"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/store/memstore"
)

const (
	authority = "authority-1111"
	treasury  = "treasury-2222"
	seller    = "seller-3333"
	buyer     = "buyer-4444"
	asset     = "mint-9999"
)

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := market.New(memstore.New(), logger, market.Options{})

	srv := NewServer(Config{Port: 0, APIKey: apiKey}, Handlers{
		Health:      handler.NewHealthHandler(logger),
		Marketplace: handler.NewMarketplaceHandler(engine, logger),
		Listings:    handler.NewListingHandler(engine, logger),
		Accounts:    handler.NewAccountHandler(engine, logger),
		Receipts:    handler.NewReceiptHandler(engine, logger),
	}, nil, logger)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// do issues a JSON request and decodes the response body into a generic map.
func do(t *testing.T, ts *httptest.Server, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func initMarketplace(t *testing.T, ts *httptest.Server) {
	t.Helper()

	status, _ := do(t, ts, http.MethodPost, "/api/marketplace", map[string]any{
		"authority":      authority,
		"treasury":       treasury,
		"feeBasisPoints": 200,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
}

func credit(t *testing.T, ts *httptest.Server, account string, body map[string]any) {
	t.Helper()

	body["caller"] = authority
	status, _ := do(t, ts, http.MethodPost, "/api/accounts/"+account+"/credit", body, nil)
	require.Equal(t, http.StatusNoContent, status)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	status, body := do(t, ts, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestMarketplaceLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")

	// Not initialized yet.
	status, body := do(t, ts, http.MethodGet, "/api/marketplace", nil, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "marketplace_not_initialized", body["code"])

	initMarketplace(t, ts)

	status, body = do(t, ts, http.MethodGet, "/api/marketplace", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(200), body["feeBasisPoints"])

	// Double initialization conflicts.
	status, body = do(t, ts, http.MethodPost, "/api/marketplace", map[string]any{
		"authority":      authority,
		"treasury":       treasury,
		"feeBasisPoints": 100,
	}, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "marketplace_already_initialized", body["code"])

	// Fee update requires the authority.
	status, body = do(t, ts, http.MethodPut, "/api/marketplace/fee", map[string]any{
		"caller":         seller,
		"feeBasisPoints": 300,
	}, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "unauthorized", body["code"])

	status, _ = do(t, ts, http.MethodPut, "/api/marketplace/fee", map[string]any{
		"caller":         authority,
		"feeBasisPoints": 300,
	}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestListAndBuyOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")
	initMarketplace(t, ts)
	credit(t, ts, seller, map[string]any{"amount": 1, "assetId": asset})
	credit(t, ts, buyer, map[string]any{"amount": 1_000_000_000})

	status, body := do(t, ts, http.MethodPost, "/api/listings", map[string]any{
		"seller":          seller,
		"assetId":         asset,
		"price":           1_000_000_000,
		"durationSeconds": 3600,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, true, body["isActive"])

	status, body = do(t, ts, http.MethodGet, "/api/listings", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["count"])

	// Settle the purchase. Fee is 2% of the price.
	status, body = do(t, ts, http.MethodPost, "/api/listings/"+asset+"/buy", map[string]any{
		"buyer": buyer,
	}, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(20_000_000), body["feeAmount"])
	require.Equal(t, float64(980_000_000), body["sellerAmount"])

	// The listing is gone afterwards.
	status, body = do(t, ts, http.MethodGet, "/api/listings/"+asset, nil, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "listing_not_found", body["code"])

	// The settlement left a receipt.
	status, body = do(t, ts, http.MethodGet, "/api/receipts", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["count"])

	status, body = do(t, ts, http.MethodGet, "/api/listings/"+asset+"/receipts", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["count"])

	// Seller was paid, buyer spent everything.
	status, body = do(t, ts, http.MethodGet, "/api/accounts/"+seller, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(980_000_000), body["balance"])

	status, body = do(t, ts, http.MethodGet, "/api/accounts/"+buyer+"/holdings/"+asset, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(1), body["balance"])
}

func TestBuyErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")
	initMarketplace(t, ts)
	credit(t, ts, seller, map[string]any{"amount": 1, "assetId": asset})

	status, _ := do(t, ts, http.MethodPost, "/api/listings", map[string]any{
		"seller":          seller,
		"assetId":         asset,
		"price":           500,
		"durationSeconds": 3600,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	// Seller cannot buy their own listing.
	status, body := do(t, ts, http.MethodPost, "/api/listings/"+asset+"/buy", map[string]any{
		"buyer": seller,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "cannot_buy_own_listing", body["code"])

	// Unfunded buyer is rejected.
	status, body = do(t, ts, http.MethodPost, "/api/listings/"+asset+"/buy", map[string]any{
		"buyer": buyer,
	}, nil)
	require.Equal(t, http.StatusPaymentRequired, status)
	require.Equal(t, "insufficient_balance", body["code"])
}

func TestPauseGatesMutationsOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")
	initMarketplace(t, ts)
	credit(t, ts, seller, map[string]any{"amount": 1, "assetId": asset})

	status, _ := do(t, ts, http.MethodPost, "/api/marketplace/pause", nil,
		map[string]string{"X-Caller-Address": authority})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, ts, http.MethodPost, "/api/listings", map[string]any{
		"seller":          seller,
		"assetId":         asset,
		"price":           500,
		"durationSeconds": 3600,
	}, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "marketplace_paused", body["code"])

	status, _ = do(t, ts, http.MethodPost, "/api/marketplace/unpause", nil,
		map[string]string{"X-Caller-Address": authority})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, http.MethodPost, "/api/listings", map[string]any{
		"seller":          seller,
		"assetId":         asset,
		"price":           500,
		"durationSeconds": 3600,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, "secret-key")

	status, body := do(t, ts, http.MethodGet, "/api/marketplace", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", body["code"])

	status, _ = do(t, ts, http.MethodGet, "/api/marketplace", nil,
		map[string]string{"X-API-Key": "secret-key"})
	// Authenticated but not initialized.
	require.Equal(t, http.StatusNotFound, status)
}
