package market_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
	"github.com/alanyoungcy/nftmarket/internal/store/memstore"
)

const (
	authority = domain.Address("authority-wallet")
	treasury  = domain.Address("treasury-wallet")
	seller    = domain.Address("seller-wallet")
	buyer     = domain.Address("buyer-wallet")
	stranger  = domain.Address("stranger-wallet")

	asset = domain.AssetID("mint-1111")

	feeBps  = uint16(200) // 2%
	price   = uint64(1_000_000_000)
	listDur = time.Hour
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEngine returns an engine over a fresh memstore with an initialized
// marketplace, the seller holding one unit of the asset, and the buyer
// funded with exactly the listing price.
func newEngine(t *testing.T) (*market.Engine, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	eng := market.New(store, testLogger(), market.Options{})

	_, err := eng.InitializeMarketplace(ctx, authority, treasury, feeBps)
	require.NoError(t, err)
	require.NoError(t, eng.CreditHolding(ctx, authority, seller, asset, 1))
	require.NoError(t, eng.CreditAccount(ctx, authority, buyer, price))
	return eng, store
}

func listForSale(t *testing.T, eng *market.Engine) domain.Listing {
	t.Helper()
	l, err := eng.ListAsset(context.Background(), seller, asset, price, listDur)
	require.NoError(t, err)
	return l
}

func TestInitializeMarketplace(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng := market.New(store, testLogger(), market.Options{})

	cfg, err := eng.InitializeMarketplace(ctx, authority, treasury, feeBps)
	require.NoError(t, err)
	require.Equal(t, domain.ConfigAddress(), cfg.Address)
	require.Equal(t, authority, cfg.Authority)
	require.Equal(t, treasury, cfg.Treasury)
	require.Equal(t, feeBps, cfg.FeeBasisPoints)
	require.False(t, cfg.IsPaused)

	// A live config blocks a second Initialize.
	_, err = eng.InitializeMarketplace(ctx, stranger, stranger, 0)
	require.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	// The original config is untouched.
	got, err := eng.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, authority, got.Authority)
}

func TestInitializeMarketplaceInvalidFee(t *testing.T) {
	ctx := context.Background()
	eng := market.New(memstore.New(), testLogger(), market.Options{})

	_, err := eng.InitializeMarketplace(ctx, authority, treasury, 10001)
	require.ErrorIs(t, err, domain.ErrInvalidFee)

	_, err = eng.GetConfig(ctx)
	require.ErrorIs(t, err, domain.ErrNotInitialized)

	// 0 and 10000 are both legal bounds.
	_, err = eng.InitializeMarketplace(ctx, authority, treasury, 10000)
	require.NoError(t, err)
}

func TestUpdateFee(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	require.NoError(t, eng.UpdateFee(ctx, authority, 500))
	cfg, err := eng.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, uint16(500), cfg.FeeBasisPoints)

	require.ErrorIs(t, eng.UpdateFee(ctx, stranger, 100), domain.ErrUnauthorized)

	// Out-of-range fee is rejected and the prior fee survives.
	require.ErrorIs(t, eng.UpdateFee(ctx, authority, 10001), domain.ErrInvalidFee)
	cfg, err = eng.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, uint16(500), cfg.FeeBasisPoints)
}

func TestPauseGatesListAndBuy(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	require.ErrorIs(t, eng.PauseMarketplace(ctx, stranger), domain.ErrUnauthorized)
	require.NoError(t, eng.PauseMarketplace(ctx, authority))

	_, err := eng.ListAsset(ctx, seller, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrMarketplacePaused)

	require.NoError(t, eng.UnpauseMarketplace(ctx, authority))
	listForSale(t, eng)

	require.NoError(t, eng.PauseMarketplace(ctx, authority))
	_, err = eng.BuyAsset(ctx, buyer, asset)
	require.ErrorIs(t, err, domain.ErrMarketplacePaused)

	// Sellers can always exit: update and delist work while paused.
	_, err = eng.UpdateListing(ctx, seller, asset, price*2, listDur)
	require.NoError(t, err)
	require.NoError(t, eng.DelistAsset(ctx, seller, asset))

	held, err := eng.HoldingBalance(ctx, seller, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
}

func TestCloseMarketplace(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	require.ErrorIs(t, eng.CloseMarketplace(ctx, stranger), domain.ErrUnauthorized)
	require.NoError(t, eng.CloseMarketplace(ctx, authority))

	_, err := eng.GetConfig(ctx)
	require.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = eng.ListAsset(ctx, seller, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrNotInitialized)

	// Close then Initialize starts a fresh deployment.
	_, err = eng.InitializeMarketplace(ctx, stranger, treasury, 0)
	require.NoError(t, err)
}

func TestListAsset(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	l := listForSale(t, eng)
	require.True(t, l.IsActive)
	require.Equal(t, seller, l.Seller)
	require.Equal(t, price, l.Price)
	require.Equal(t, domain.ListingAddress(asset), l.Address)
	require.Equal(t, domain.EscrowAddress(asset), l.Escrow)
	require.Equal(t, listDur, l.ExpiresAt.Sub(l.CreatedAt))

	// The single unit moved from the seller into escrow.
	held, err := eng.HoldingBalance(ctx, seller, asset)
	require.NoError(t, err)
	require.Zero(t, held)
	escrowed, err := eng.HoldingBalance(ctx, l.Escrow, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), escrowed)

	got, err := eng.GetListing(ctx, asset)
	require.NoError(t, err)
	require.Equal(t, l, got)
}

func TestListAssetInvalidTerms(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	_, err := eng.ListAsset(ctx, seller, asset, 0, listDur)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = eng.ListAsset(ctx, seller, asset, price, 0)
	require.ErrorIs(t, err, domain.ErrInvalidDuration)

	// Neither attempt created a listing or touched the holding.
	_, err = eng.GetListing(ctx, asset)
	require.ErrorIs(t, err, domain.ErrListingNotFound)
	held, err := eng.HoldingBalance(ctx, seller, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
}

func TestListAssetRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	_, err := eng.ListAsset(ctx, stranger, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestListAssetRejectsDoubleListing(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	listForSale(t, eng)

	// The unit is in escrow, so the seller no longer holds it.
	_, err := eng.ListAsset(ctx, seller, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrInvalidOwner)

	// Even a second holder of a (hypothetical) duplicate unit cannot create
	// a second listing at the same address.
	require.NoError(t, eng.CreditHolding(ctx, authority, stranger, asset, 1))
	_, err = eng.ListAsset(ctx, stranger, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrListingExists)
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	l := listForSale(t, eng)

	updated, err := eng.UpdateListing(ctx, seller, asset, price*3, 2*listDur)
	require.NoError(t, err)
	require.Equal(t, price*3, updated.Price)
	require.Equal(t, 2*listDur, updated.ExpiresAt.Sub(updated.UpdatedAt))
	require.True(t, updated.IsActive)

	// Escrow custody is untouched by an update.
	escrowed, err := eng.HoldingBalance(ctx, l.Escrow, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), escrowed)

	_, err = eng.UpdateListing(ctx, stranger, asset, price, listDur)
	require.ErrorIs(t, err, domain.ErrInvalidSeller)
	_, err = eng.UpdateListing(ctx, seller, asset, 0, listDur)
	require.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = eng.UpdateListing(ctx, seller, asset, price, -listDur)
	require.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = eng.UpdateListing(ctx, seller, "mint-unknown", price, listDur)
	require.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestDelistAsset(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	l := listForSale(t, eng)

	// Only the original seller may delist; state is unchanged on rejection.
	require.ErrorIs(t, eng.DelistAsset(ctx, stranger, asset), domain.ErrInvalidSeller)
	got, err := eng.GetListing(ctx, asset)
	require.NoError(t, err)
	require.True(t, got.IsActive)

	require.NoError(t, eng.DelistAsset(ctx, seller, asset))

	held, err := eng.HoldingBalance(ctx, seller, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
	escrowed, err := eng.HoldingBalance(ctx, l.Escrow, asset)
	require.NoError(t, err)
	require.Zero(t, escrowed)
	_, err = eng.GetListing(ctx, asset)
	require.ErrorIs(t, err, domain.ErrListingNotFound)

	// Re-delisting fails distinctly instead of silently succeeding.
	require.ErrorIs(t, eng.DelistAsset(ctx, seller, asset), domain.ErrListingNotFound)
}

func TestBuyAsset(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	l := listForSale(t, eng)

	r, err := eng.BuyAsset(ctx, buyer, asset)
	require.NoError(t, err)

	// fee = 2% of 1_000_000_000.
	require.Equal(t, uint64(20_000_000), r.FeeAmount)
	require.Equal(t, uint64(980_000_000), r.SellerAmount)
	require.Equal(t, r.Price, r.FeeAmount+r.SellerAmount)
	require.Equal(t, seller, r.Seller)
	require.Equal(t, buyer, r.Buyer)

	sellerBal, err := eng.AccountBalance(ctx, seller)
	require.NoError(t, err)
	require.Equal(t, r.SellerAmount, sellerBal)
	treasuryBal, err := eng.AccountBalance(ctx, treasury)
	require.NoError(t, err)
	require.Equal(t, r.FeeAmount, treasuryBal)
	buyerBal, err := eng.AccountBalance(ctx, buyer)
	require.NoError(t, err)
	require.Zero(t, buyerBal)

	// The asset unit left escrow for the buyer's holding account.
	held, err := eng.HoldingBalance(ctx, buyer, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
	escrowed, err := eng.HoldingBalance(ctx, l.Escrow, asset)
	require.NoError(t, err)
	require.Zero(t, escrowed)

	// The listing is gone; buy and delist both fail distinctly now.
	_, err = eng.BuyAsset(ctx, buyer, asset)
	require.ErrorIs(t, err, domain.ErrListingNotFound)
	require.ErrorIs(t, eng.DelistAsset(ctx, seller, asset), domain.ErrListingNotFound)

	receipts, err := eng.ListReceipts(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.Equal(t, r.ID, receipts[0].ID)
}

func TestBuyAssetSelfPurchase(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	listForSale(t, eng)

	// Rejected regardless of balance.
	require.NoError(t, eng.CreditAccount(ctx, authority, seller, price*10))
	_, err := eng.BuyAsset(ctx, seller, asset)
	require.ErrorIs(t, err, domain.ErrCannotBuyOwnNFT)
}

func TestBuyAssetInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	l := listForSale(t, eng)

	// Raise the price above the buyer's funds.
	_, err := eng.UpdateListing(ctx, seller, asset, price+1, listDur)
	require.NoError(t, err)

	_, err = eng.BuyAsset(ctx, buyer, asset)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// No partial transfer: listing still active, escrow still custodies the
	// unit, and nobody's funds moved.
	got, err := eng.GetListing(ctx, asset)
	require.NoError(t, err)
	require.True(t, got.IsActive)
	escrowed, err := eng.HoldingBalance(ctx, l.Escrow, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(1), escrowed)
	buyerBal, err := eng.AccountBalance(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, price, buyerBal)
	sellerBal, err := eng.AccountBalance(ctx, seller)
	require.NoError(t, err)
	require.Zero(t, sellerBal)
}

func TestBuyAssetZeroFee(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	eng := market.New(store, testLogger(), market.Options{})

	_, err := eng.InitializeMarketplace(ctx, authority, treasury, 0)
	require.NoError(t, err)
	require.NoError(t, eng.CreditHolding(ctx, authority, seller, asset, 1))
	require.NoError(t, eng.CreditAccount(ctx, authority, buyer, price))
	listForSale(t, eng)

	r, err := eng.BuyAsset(ctx, buyer, asset)
	require.NoError(t, err)
	require.Zero(t, r.FeeAmount)
	require.Equal(t, price, r.SellerAmount)

	treasuryBal, err := eng.AccountBalance(ctx, treasury)
	require.NoError(t, err)
	require.Zero(t, treasuryBal)
}

func TestBuyAssetExpiryIsInformational(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := memstore.New()
	eng := market.New(store, testLogger(), market.Options{
		Now: func() time.Time { return now },
	})

	_, err := eng.InitializeMarketplace(ctx, authority, treasury, feeBps)
	require.NoError(t, err)
	require.NoError(t, eng.CreditHolding(ctx, authority, seller, asset, 1))
	require.NoError(t, eng.CreditAccount(ctx, authority, buyer, price))
	l := listForSale(t, eng)

	// Move past expiry. The listing reports Expired but a purchase still
	// settles; expiry is not enforced as a hard cutoff.
	now = now.Add(2 * listDur)
	require.True(t, l.Expired(now))

	_, err = eng.BuyAsset(ctx, buyer, asset)
	require.NoError(t, err)
}

func TestBuyAssetSequentialConflict(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	listForSale(t, eng)

	second := domain.Address("second-buyer")
	require.NoError(t, eng.CreditAccount(ctx, authority, second, price))

	_, err := eng.BuyAsset(ctx, buyer, asset)
	require.NoError(t, err)

	// The loser of the race observes a terminated listing, never a second
	// settlement of the same escrowed unit.
	_, err = eng.BuyAsset(ctx, second, asset)
	require.ErrorIs(t, err, domain.ErrListingNotFound)

	bal, err := eng.AccountBalance(ctx, second)
	require.NoError(t, err)
	require.Equal(t, price, bal)
}

// heldLocks always reports the lock as taken.
type heldLocks struct{}

func (heldLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func TestBuyAssetFailsFastWhenLocked(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	setup := market.New(store, testLogger(), market.Options{})
	_, err := setup.InitializeMarketplace(ctx, authority, treasury, feeBps)
	require.NoError(t, err)
	require.NoError(t, setup.CreditHolding(ctx, authority, seller, asset, 1))
	require.NoError(t, setup.CreditAccount(ctx, authority, buyer, price))
	listing, err := setup.ListAsset(ctx, seller, asset, price, listDur)
	require.NoError(t, err)

	locked := market.New(store, testLogger(), market.Options{Locks: heldLocks{}})
	_, err = locked.BuyAsset(ctx, buyer, asset)
	require.ErrorIs(t, err, domain.ErrLockHeld)
	require.ErrorIs(t, locked.DelistAsset(ctx, seller, asset), domain.ErrLockHeld)
	_, err = locked.ListAsset(ctx, seller, "mint-2222", price, listDur)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	// The contested listing is untouched.
	got, err := setup.GetListing(ctx, asset)
	require.NoError(t, err)
	require.Equal(t, listing, got)
}
