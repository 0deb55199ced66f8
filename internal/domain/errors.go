package domain

import "errors"

// Sentinel errors for every rejected precondition. Callers branch on these
// with errors.Is; message text is never part of the contract.
var (
	ErrNotFound            = errors.New("not found")
	ErrNotInitialized      = errors.New("marketplace not initialized")
	ErrAlreadyInitialized  = errors.New("marketplace already initialized")
	ErrInvalidFee          = errors.New("fee basis points out of range")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
	ErrInvalidOwner        = errors.New("caller does not hold the asset")
	ErrInvalidSeller       = errors.New("caller is not the listing seller")
	ErrMarketplacePaused   = errors.New("marketplace is paused")
	ErrListingExists       = errors.New("active listing already exists for asset")
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingInactive     = errors.New("listing is not active")
	ErrCannotBuyOwnNFT     = errors.New("cannot buy own NFT")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrLockHeld            = errors.New("lock already held")
)
