package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response with a machine-readable
// code alongside the human-readable message.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}

// errorCodes maps domain sentinels to the HTTP status and stable code string
// clients key on.
var errorCodes = map[error]struct {
	status int
	code   string
}{
	domain.ErrNotFound:            {http.StatusNotFound, "not_found"},
	domain.ErrNotInitialized:      {http.StatusNotFound, "marketplace_not_initialized"},
	domain.ErrListingNotFound:     {http.StatusNotFound, "listing_not_found"},
	domain.ErrAlreadyInitialized:  {http.StatusConflict, "marketplace_already_initialized"},
	domain.ErrListingExists:       {http.StatusConflict, "listing_exists"},
	domain.ErrListingInactive:     {http.StatusConflict, "listing_inactive"},
	domain.ErrMarketplacePaused:   {http.StatusConflict, "marketplace_paused"},
	domain.ErrLockHeld:            {http.StatusConflict, "asset_busy"},
	domain.ErrInvalidFee:          {http.StatusBadRequest, "invalid_fee"},
	domain.ErrInvalidPrice:        {http.StatusBadRequest, "invalid_price"},
	domain.ErrInvalidDuration:     {http.StatusBadRequest, "invalid_duration"},
	domain.ErrCannotBuyOwnNFT:     {http.StatusBadRequest, "cannot_buy_own_listing"},
	domain.ErrInsufficientBalance: {http.StatusPaymentRequired, "insufficient_balance"},
	domain.ErrUnauthorized:        {http.StatusForbidden, "unauthorized"},
	domain.ErrInvalidSeller:       {http.StatusForbidden, "not_seller"},
	domain.ErrInvalidOwner:        {http.StatusForbidden, "not_owner"},
}

// writeDomainError translates engine errors into HTTP responses. Unknown
// errors become an opaque 500 so internal details never leak to clients.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	for sentinel, m := range errorCodes {
		if errors.Is(err, sentinel) {
			writeError(w, m.status, m.code, sentinel.Error())
			return
		}
	}
	logger.Error("unhandled handler error", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

// decodeBody parses the request body as JSON into dst, rejecting unknown
// fields so typos surface as 400s instead of silently-ignored input.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// callerAddress resolves the acting account for bodyless requests from the
// X-Caller-Address header.
func callerAddress(r *http.Request) domain.Address {
	return domain.Address(r.Header.Get("X-Caller-Address"))
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0. Optional since/until bounds are
// RFC 3339 timestamps.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.Until = &t
		}
	}
	return opts
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
