// Package market implements the marketplace core: config lifecycle, listing
// lifecycle, escrow custody, and the buy settlement. Every multi-record
// transition runs inside a single account-store unit of work, so a failed
// sub-step leaves no partial state behind.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// assetLockTTL bounds how long a crashed process can hold an asset lock.
const assetLockTTL = 10 * time.Second

// Options carries the optional engine collaborators. Any field may be nil:
// the lock manager degrades to store-level locking only, the bus and cache
// to no-ops.
type Options struct {
	Locks domain.LockManager
	Bus   domain.EventBus
	Cache domain.ListingCache
	Now   func() time.Time
}

// Engine validates and commits marketplace state transitions against the
// account store.
type Engine struct {
	store  domain.AccountStore
	locks  domain.LockManager
	bus    domain.EventBus
	cache  domain.ListingCache
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Engine over the given account store.
func New(store domain.AccountStore, logger *slog.Logger, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:  store,
		locks:  opts.Locks,
		bus:    opts.Bus,
		cache:  opts.Cache,
		now:    now,
		logger: logger.With(slog.String("component", "market")),
	}
}

// InitializeMarketplace creates the config singleton at its canonical
// address. A live config must be closed before a new one can be created.
func (e *Engine) InitializeMarketplace(ctx context.Context, authority, treasury domain.Address, feeBps uint16) (domain.MarketplaceConfig, error) {
	if !domain.ValidFee(feeBps) {
		return domain.MarketplaceConfig{}, domain.ErrInvalidFee
	}

	now := e.now()
	cfg := domain.MarketplaceConfig{
		Address:        domain.ConfigAddress(),
		Authority:      authority,
		Treasury:       treasury,
		FeeBasisPoints: feeBps,
		IsPaused:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.store.Within(ctx, func(tx domain.Tx) error {
		return tx.Configs().Create(ctx, cfg)
	})
	if err != nil {
		return domain.MarketplaceConfig{}, err
	}

	e.logger.InfoContext(ctx, "marketplace initialized",
		slog.String("authority", string(authority)),
		slog.String("treasury", string(treasury)),
		slog.Int("fee_bps", int(feeBps)),
	)
	e.publish(ctx, domain.ChannelMarketplace, domain.Event{
		Kind: domain.EventInitialized, At: now, Payload: cfg,
	})
	return cfg, nil
}

// GetConfig returns the committed marketplace config.
func (e *Engine) GetConfig(ctx context.Context) (domain.MarketplaceConfig, error) {
	var cfg domain.MarketplaceConfig
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		cfg, err = tx.Configs().Get(ctx)
		return err
	})
	return cfg, err
}

// UpdateFee changes the fee rate. Authority only.
func (e *Engine) UpdateFee(ctx context.Context, caller domain.Address, newFee uint16) error {
	if !domain.ValidFee(newFee) {
		return domain.ErrInvalidFee
	}

	now := e.now()
	err := e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireAuthority(cfg, caller); err != nil {
			return err
		}
		cfg.FeeBasisPoints = newFee
		cfg.UpdatedAt = now
		return tx.Configs().Update(ctx, cfg)
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "fee updated", slog.Int("fee_bps", int(newFee)))
	e.publish(ctx, domain.ChannelMarketplace, domain.Event{
		Kind: domain.EventFeeUpdated, At: now,
		Payload: map[string]uint16{"fee_basis_points": newFee},
	})
	return nil
}

// PauseMarketplace gates ListAsset and BuyAsset off. Authority only.
// Delist and UpdateListing stay available so sellers can always exit.
func (e *Engine) PauseMarketplace(ctx context.Context, caller domain.Address) error {
	return e.setPaused(ctx, caller, true)
}

// UnpauseMarketplace re-opens listing and purchase. Authority only.
func (e *Engine) UnpauseMarketplace(ctx context.Context, caller domain.Address) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller domain.Address, paused bool) error {
	now := e.now()
	err := e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireAuthority(cfg, caller); err != nil {
			return err
		}
		cfg.IsPaused = paused
		cfg.UpdatedAt = now
		return tx.Configs().Update(ctx, cfg)
	})
	if err != nil {
		return err
	}

	kind := domain.EventUnpaused
	if paused {
		kind = domain.EventPaused
	}
	e.logger.InfoContext(ctx, "marketplace pause toggled", slog.Bool("paused", paused))
	e.publish(ctx, domain.ChannelMarketplace, domain.Event{Kind: kind, At: now})
	return nil
}

// CloseMarketplace removes the config singleton. Authority only. Active
// listings are untouched; sellers can still delist them afterwards.
func (e *Engine) CloseMarketplace(ctx context.Context, caller domain.Address) error {
	now := e.now()
	err := e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireAuthority(cfg, caller); err != nil {
			return err
		}
		return tx.Configs().Delete(ctx)
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "marketplace closed")
	e.publish(ctx, domain.ChannelMarketplace, domain.Event{Kind: domain.EventClosed, At: now})
	return nil
}

// ListAsset creates an active listing and moves the single asset unit from
// the seller's holding account into escrow. Both happen or neither does.
func (e *Engine) ListAsset(ctx context.Context, seller domain.Address, asset domain.AssetID, price uint64, duration time.Duration) (domain.Listing, error) {
	if err := validateTerms(price, duration); err != nil {
		return domain.Listing{}, err
	}

	unlock, err := e.lockAsset(ctx, asset)
	if err != nil {
		return domain.Listing{}, err
	}
	defer unlock()

	now := e.now()
	listing := domain.NewListing(seller, asset, price, duration, now)

	err = e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireNotPaused(cfg); err != nil {
			return err
		}

		held, err := tx.Holdings().Balance(ctx, seller, asset)
		if err != nil {
			return err
		}
		if held < 1 {
			return domain.ErrInvalidOwner
		}

		if err := tx.Listings().Create(ctx, listing); err != nil {
			return err
		}
		return tx.Holdings().Transfer(ctx, seller, listing.Escrow, asset, 1)
	})
	if err != nil {
		return domain.Listing{}, err
	}

	e.invalidate(ctx, asset)
	e.logger.InfoContext(ctx, "asset listed",
		slog.String("asset_id", string(asset)),
		slog.String("seller", string(seller)),
		slog.Uint64("price", price),
	)
	e.publish(ctx, domain.ChannelListings, domain.Event{
		Kind: domain.EventListingCreated, AssetID: asset, At: now, Payload: listing,
	})
	return listing, nil
}

// UpdateListing changes price and duration of an active listing. Seller
// only; escrow and funds are untouched. Works while paused.
func (e *Engine) UpdateListing(ctx context.Context, caller domain.Address, asset domain.AssetID, newPrice uint64, newDuration time.Duration) (domain.Listing, error) {
	if err := validateTerms(newPrice, newDuration); err != nil {
		return domain.Listing{}, err
	}

	now := e.now()
	var updated domain.Listing
	err := e.store.Within(ctx, func(tx domain.Tx) error {
		l, err := tx.Listings().Get(ctx, asset)
		if err != nil {
			return err
		}
		if err := requireSeller(l, caller); err != nil {
			return err
		}
		if err := requireActive(l); err != nil {
			return err
		}

		l.Price = newPrice
		l.ExpiresAt = now.Add(newDuration)
		l.UpdatedAt = now
		updated = l
		return tx.Listings().Update(ctx, l)
	})
	if err != nil {
		return domain.Listing{}, err
	}

	e.invalidate(ctx, asset)
	e.logger.InfoContext(ctx, "listing updated",
		slog.String("asset_id", string(asset)),
		slog.Uint64("price", newPrice),
	)
	e.publish(ctx, domain.ChannelListings, domain.Event{
		Kind: domain.EventListingUpdated, AssetID: asset, At: now, Payload: updated,
	})
	return updated, nil
}

// DelistAsset returns the escrowed unit to the seller and removes the
// listing. Seller only. Works while paused. A second delist of the same
// asset fails with ErrListingNotFound.
func (e *Engine) DelistAsset(ctx context.Context, caller domain.Address, asset domain.AssetID) error {
	unlock, err := e.lockAsset(ctx, asset)
	if err != nil {
		return err
	}
	defer unlock()

	now := e.now()
	err = e.store.Within(ctx, func(tx domain.Tx) error {
		l, err := tx.Listings().Get(ctx, asset)
		if err != nil {
			return err
		}
		if err := requireSeller(l, caller); err != nil {
			return err
		}
		if err := requireActive(l); err != nil {
			return err
		}

		if err := tx.Holdings().Transfer(ctx, l.Escrow, l.Seller, asset, 1); err != nil {
			return fmt.Errorf("market: release escrow for %s: %w", asset, err)
		}
		return tx.Listings().Delete(ctx, asset)
	})
	if err != nil {
		return err
	}

	e.invalidate(ctx, asset)
	e.logger.InfoContext(ctx, "asset delisted",
		slog.String("asset_id", string(asset)),
		slog.String("seller", string(caller)),
	)
	e.publish(ctx, domain.ChannelListings, domain.Event{
		Kind: domain.EventListingDelisted, AssetID: asset, At: now,
	})
	return nil
}

// BuyAsset settles a purchase: fee to treasury, remainder to seller, asset
// from escrow to the buyer's holding account, listing removed, receipt
// written. The checks run in a fixed order and the whole transition aborts on
// the first failure, leaving the listing active and escrow untouched.
func (e *Engine) BuyAsset(ctx context.Context, buyer domain.Address, asset domain.AssetID) (domain.Receipt, error) {
	unlock, err := e.lockAsset(ctx, asset)
	if err != nil {
		return domain.Receipt{}, err
	}
	defer unlock()

	now := e.now()
	var receipt domain.Receipt
	err = e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireNotPaused(cfg); err != nil {
			return err
		}

		l, err := tx.Listings().Get(ctx, asset)
		if err != nil {
			return err
		}
		if err := requireActive(l); err != nil {
			return err
		}
		if buyer == l.Seller {
			return domain.ErrCannotBuyOwnNFT
		}

		// Balance check comes before any transfer is attempted.
		bal, err := tx.Ledger().Balance(ctx, buyer)
		if err != nil {
			return err
		}
		if bal < l.Price {
			return domain.ErrInsufficientBalance
		}

		feeAmount, sellerAmount := SplitFee(l.Price, cfg.FeeBasisPoints)

		if feeAmount > 0 {
			if err := tx.Ledger().Transfer(ctx, buyer, cfg.Treasury, feeAmount); err != nil {
				return fmt.Errorf("market: fee transfer: %w", err)
			}
		}
		if err := tx.Ledger().Transfer(ctx, buyer, l.Seller, sellerAmount); err != nil {
			return fmt.Errorf("market: seller transfer: %w", err)
		}
		if err := tx.Holdings().Transfer(ctx, l.Escrow, buyer, asset, 1); err != nil {
			return fmt.Errorf("market: escrow release: %w", err)
		}
		if err := tx.Listings().Delete(ctx, asset); err != nil {
			return err
		}

		receipt = domain.Receipt{
			ID:           uuid.New().String(),
			AssetID:      asset,
			Listing:      l.Address,
			Seller:       l.Seller,
			Buyer:        buyer,
			Price:        l.Price,
			FeeBps:       cfg.FeeBasisPoints,
			FeeAmount:    feeAmount,
			SellerAmount: sellerAmount,
			SettledAt:    now,
		}
		return tx.Receipts().Insert(ctx, receipt)
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	e.invalidate(ctx, asset)
	e.logger.InfoContext(ctx, "asset sold",
		slog.String("asset_id", string(asset)),
		slog.String("buyer", string(buyer)),
		slog.String("seller", string(receipt.Seller)),
		slog.Uint64("price", receipt.Price),
		slog.Uint64("fee", receipt.FeeAmount),
	)
	e.publish(ctx, domain.ChannelSales, domain.Event{
		Kind: domain.EventAssetSold, AssetID: asset, At: now, Payload: receipt,
	})
	return receipt, nil
}

// GetListing returns the committed listing for an asset, consulting the
// cache first when one is configured.
func (e *Engine) GetListing(ctx context.Context, asset domain.AssetID) (domain.Listing, error) {
	if e.cache != nil {
		if l, err := e.cache.Get(ctx, asset); err == nil {
			return l, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			e.logger.WarnContext(ctx, "listing cache read failed",
				slog.String("asset_id", string(asset)),
				slog.String("error", err.Error()),
			)
		}
	}

	var l domain.Listing
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		l, err = tx.Listings().Get(ctx, asset)
		return err
	})
	if err != nil {
		return domain.Listing{}, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, l); err != nil {
			e.logger.WarnContext(ctx, "listing cache write failed",
				slog.String("asset_id", string(asset)),
				slog.String("error", err.Error()),
			)
		}
	}
	return l, nil
}

// ListActive returns active listings, newest first.
func (e *Engine) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	var out []domain.Listing
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Listings().ListActive(ctx, opts)
		return err
	})
	return out, err
}

// ListReceipts returns the most recent settlement receipts.
func (e *Engine) ListReceipts(ctx context.Context, opts domain.ListOpts) ([]domain.Receipt, error) {
	var out []domain.Receipt
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Receipts().ListRecent(ctx, opts)
		return err
	})
	return out, err
}

// AssetReceipts returns the settlement history of one asset, newest first.
func (e *Engine) AssetReceipts(ctx context.Context, asset domain.AssetID, opts domain.ListOpts) ([]domain.Receipt, error) {
	var out []domain.Receipt
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Receipts().ListByAsset(ctx, asset, opts)
		return err
	})
	return out, err
}

// AccountBalance returns the ledger balance of an account.
func (e *Engine) AccountBalance(ctx context.Context, acct domain.Address) (uint64, error) {
	var bal uint64
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		bal, err = tx.Ledger().Balance(ctx, acct)
		return err
	})
	return bal, err
}

// HoldingBalance returns how many units of an asset an account holds.
func (e *Engine) HoldingBalance(ctx context.Context, owner domain.Address, asset domain.AssetID) (uint64, error) {
	var bal uint64
	err := e.store.View(ctx, func(tx domain.Tx) error {
		var err error
		bal, err = tx.Holdings().Balance(ctx, owner, asset)
		return err
	})
	return bal, err
}

// CreditAccount mints funds into a ledger account. Authority only; this is
// the operator-facing funding point for the internal ledger.
func (e *Engine) CreditAccount(ctx context.Context, caller, acct domain.Address, amount uint64) error {
	return e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireAuthority(cfg, caller); err != nil {
			return err
		}
		return tx.Ledger().Credit(ctx, acct, amount)
	})
}

// CreditHolding mints asset units into a holding account. Authority only;
// stands in for the external minting workflow that produces a token-holding
// account before a listing can be created.
func (e *Engine) CreditHolding(ctx context.Context, caller, owner domain.Address, asset domain.AssetID, amount uint64) error {
	return e.store.Within(ctx, func(tx domain.Tx) error {
		cfg, err := tx.Configs().Get(ctx)
		if err != nil {
			return err
		}
		if err := requireAuthority(cfg, caller); err != nil {
			return err
		}
		return tx.Holdings().Credit(ctx, owner, asset, amount)
	})
}

// lockAsset takes the cross-process lock for one asset. Without a lock
// manager the store's own row locking is the only guard, which is still
// correct but queues instead of failing fast.
func (e *Engine) lockAsset(ctx context.Context, asset domain.AssetID) (func(), error) {
	if e.locks == nil {
		return func() {}, nil
	}
	return e.locks.Acquire(ctx, "asset:"+string(asset), assetLockTTL)
}

func (e *Engine) invalidate(ctx context.Context, asset domain.AssetID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, asset); err != nil {
		e.logger.WarnContext(ctx, "listing cache invalidation failed",
			slog.String("asset_id", string(asset)),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) publish(ctx context.Context, channel string, ev domain.Event) {
	if e.bus == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.ErrorContext(ctx, "marshal event", slog.String("error", err.Error()))
		return
	}
	if err := e.bus.Publish(ctx, channel, data); err != nil {
		e.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("kind", ev.Kind),
			slog.String("error", err.Error()),
		)
	}
}
