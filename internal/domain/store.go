package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ConfigStore persists the marketplace config singleton.
type ConfigStore interface {
	// Create inserts the singleton. It returns ErrAlreadyInitialized when a
	// live config already occupies the canonical address.
	Create(ctx context.Context, cfg MarketplaceConfig) error
	// Get returns the singleton or ErrNotInitialized when absent.
	Get(ctx context.Context) (MarketplaceConfig, error)
	// Update overwrites the mutable config fields.
	Update(ctx context.Context, cfg MarketplaceConfig) error
	// Delete removes the singleton; ErrNotInitialized when absent.
	Delete(ctx context.Context) error
}

// ListingStore persists listing records keyed by their derived address.
type ListingStore interface {
	// Create inserts a listing; ErrListingExists when one is already present
	// for the same asset.
	Create(ctx context.Context, l Listing) error
	// Get returns the listing for an asset or ErrListingNotFound. Inside a
	// unit of work the row is locked until commit.
	Get(ctx context.Context, asset AssetID) (Listing, error)
	// Update overwrites the mutable listing fields; ErrListingNotFound when
	// absent.
	Update(ctx context.Context, l Listing) error
	// Delete removes the listing row; ErrListingNotFound when absent.
	Delete(ctx context.Context, asset AssetID) error
	// ListActive returns active listings, newest first.
	ListActive(ctx context.Context, opts ListOpts) ([]Listing, error)
}

// Ledger persists fungible balances in the base settlement unit.
type Ledger interface {
	// Balance returns the available balance of an account, zero when the
	// account has never been funded.
	Balance(ctx context.Context, acct Address) (uint64, error)
	// Transfer moves amount from one account to another, creating the
	// destination if absent. It returns ErrInsufficientBalance when the
	// source balance is below amount.
	Transfer(ctx context.Context, from, to Address, amount uint64) error
	// Credit mints amount into an account, creating it if absent.
	Credit(ctx context.Context, acct Address, amount uint64) error
}

// HoldingStore persists per-asset token holdings (owner, asset) -> units.
type HoldingStore interface {
	// Balance returns how many units of asset the owner holds.
	Balance(ctx context.Context, owner Address, asset AssetID) (uint64, error)
	// Transfer moves amount units of asset between holding accounts,
	// creating the destination holding if absent. It returns
	// ErrInsufficientBalance when the source holds fewer than amount units.
	Transfer(ctx context.Context, from, to Address, asset AssetID, amount uint64) error
	// Credit mints amount units of asset into a holding account.
	Credit(ctx context.Context, owner Address, asset AssetID, amount uint64) error
}

// ReceiptStore persists the append-only settlement history.
type ReceiptStore interface {
	Insert(ctx context.Context, r Receipt) error
	ListByAsset(ctx context.Context, asset AssetID, opts ListOpts) ([]Receipt, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Receipt, error)
	// ListBefore returns receipts settled strictly before the cutoff, for
	// archival.
	ListBefore(ctx context.Context, before time.Time) ([]Receipt, error)
}

// Tx is one unit of work over the account store. Mutations made through a Tx
// are staged and commit together or not at all; the engine never observes a
// partially applied transition.
type Tx interface {
	Configs() ConfigStore
	Listings() ListingStore
	Ledger() Ledger
	Holdings() HoldingStore
	Receipts() ReceiptStore
}

// AccountStore is the persistent substrate holding every marketplace record.
type AccountStore interface {
	// Within runs fn inside a unit of work. If fn returns an error the
	// staged mutations are discarded; otherwise they commit atomically.
	Within(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn with read-only access to committed state.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// LockManager provides fail-fast distributed locks keyed by string.
type LockManager interface {
	// Acquire obtains the lock or returns ErrLockHeld. The returned func
	// releases the lock and is safe to call multiple times.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// EventBus carries marketplace events between processes.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ListingCache is a read-through cache in front of the listing store.
type ListingCache interface {
	Get(ctx context.Context, asset AssetID) (Listing, error)
	Set(ctx context.Context, l Listing) error
	Invalidate(ctx context.Context, asset AssetID) error
}
