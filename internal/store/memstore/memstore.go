// Package memstore implements the domain account store in memory. A unit of
// work mutates a staged copy of the whole state and swaps it in on commit, so
// partial application is never observable. It backs the engine test suites
// and single-process deployments that do not need durability.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

type holdingKey struct {
	owner domain.Address
	asset domain.AssetID
}

// state is the complete committed account state.
type state struct {
	config   *domain.MarketplaceConfig
	listings map[domain.AssetID]domain.Listing
	balances map[domain.Address]uint64
	holdings map[holdingKey]uint64
	receipts []domain.Receipt
}

func newState() *state {
	return &state{
		listings: make(map[domain.AssetID]domain.Listing),
		balances: make(map[domain.Address]uint64),
		holdings: make(map[holdingKey]uint64),
	}
}

func (s *state) clone() *state {
	c := newState()
	if s.config != nil {
		cfg := *s.config
		c.config = &cfg
	}
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.holdings {
		c.holdings[k] = v
	}
	c.receipts = append(c.receipts, s.receipts...)
	return c
}

// Store is the in-memory domain.AccountStore.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

// Within runs fn against a staged copy of the state and commits the copy when
// fn succeeds. Units of work are serialized; conflicting callers queue on the
// store mutex rather than interleave.
func (s *Store) Within(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&tx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// View runs fn against a copy of the committed state; mutations made through
// the copy are discarded.
func (s *Store) View(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	return fn(&tx{state: snapshot})
}

// tx exposes the store interfaces over one staged state.
type tx struct {
	state *state
}

func (t *tx) Configs() domain.ConfigStore   { return (*configStore)(t) }
func (t *tx) Listings() domain.ListingStore { return (*listingStore)(t) }
func (t *tx) Ledger() domain.Ledger         { return (*ledger)(t) }
func (t *tx) Holdings() domain.HoldingStore { return (*holdingStore)(t) }
func (t *tx) Receipts() domain.ReceiptStore { return (*receiptStore)(t) }

type configStore tx

func (c *configStore) Create(_ context.Context, cfg domain.MarketplaceConfig) error {
	if c.state.config != nil {
		return domain.ErrAlreadyInitialized
	}
	c.state.config = &cfg
	return nil
}

func (c *configStore) Get(context.Context) (domain.MarketplaceConfig, error) {
	if c.state.config == nil {
		return domain.MarketplaceConfig{}, domain.ErrNotInitialized
	}
	return *c.state.config, nil
}

func (c *configStore) Update(_ context.Context, cfg domain.MarketplaceConfig) error {
	if c.state.config == nil {
		return domain.ErrNotInitialized
	}
	c.state.config = &cfg
	return nil
}

func (c *configStore) Delete(context.Context) error {
	if c.state.config == nil {
		return domain.ErrNotInitialized
	}
	c.state.config = nil
	return nil
}

type listingStore tx

func (ls *listingStore) Create(_ context.Context, l domain.Listing) error {
	if _, ok := ls.state.listings[l.AssetID]; ok {
		return domain.ErrListingExists
	}
	ls.state.listings[l.AssetID] = l
	return nil
}

func (ls *listingStore) Get(_ context.Context, asset domain.AssetID) (domain.Listing, error) {
	l, ok := ls.state.listings[asset]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (ls *listingStore) Update(_ context.Context, l domain.Listing) error {
	if _, ok := ls.state.listings[l.AssetID]; !ok {
		return domain.ErrListingNotFound
	}
	ls.state.listings[l.AssetID] = l
	return nil
}

func (ls *listingStore) Delete(_ context.Context, asset domain.AssetID) error {
	if _, ok := ls.state.listings[asset]; !ok {
		return domain.ErrListingNotFound
	}
	delete(ls.state.listings, asset)
	return nil
}

func (ls *listingStore) ListActive(_ context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range ls.state.listings {
		if !l.IsActive {
			continue
		}
		if opts.Since != nil && l.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && l.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, opts), nil
}

type ledger tx

func (lg *ledger) Balance(_ context.Context, acct domain.Address) (uint64, error) {
	return lg.state.balances[acct], nil
}

func (lg *ledger) Transfer(_ context.Context, from, to domain.Address, amount uint64) error {
	if lg.state.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	lg.state.balances[from] -= amount
	lg.state.balances[to] += amount
	return nil
}

func (lg *ledger) Credit(_ context.Context, acct domain.Address, amount uint64) error {
	lg.state.balances[acct] += amount
	return nil
}

type holdingStore tx

func (hs *holdingStore) Balance(_ context.Context, owner domain.Address, asset domain.AssetID) (uint64, error) {
	return hs.state.holdings[holdingKey{owner, asset}], nil
}

func (hs *holdingStore) Transfer(_ context.Context, from, to domain.Address, asset domain.AssetID, amount uint64) error {
	src := holdingKey{from, asset}
	if hs.state.holdings[src] < amount {
		return domain.ErrInsufficientBalance
	}
	hs.state.holdings[src] -= amount
	if hs.state.holdings[src] == 0 {
		delete(hs.state.holdings, src)
	}
	hs.state.holdings[holdingKey{to, asset}] += amount
	return nil
}

func (hs *holdingStore) Credit(_ context.Context, owner domain.Address, asset domain.AssetID, amount uint64) error {
	hs.state.holdings[holdingKey{owner, asset}] += amount
	return nil
}

type receiptStore tx

func (rs *receiptStore) Insert(_ context.Context, r domain.Receipt) error {
	rs.state.receipts = append(rs.state.receipts, r)
	return nil
}

func (rs *receiptStore) ListByAsset(_ context.Context, asset domain.AssetID, opts domain.ListOpts) ([]domain.Receipt, error) {
	var out []domain.Receipt
	for _, r := range rs.state.receipts {
		if r.AssetID == asset {
			out = append(out, r)
		}
	}
	sortReceipts(out)
	return paginate(out, opts), nil
}

func (rs *receiptStore) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.Receipt, error) {
	var out []domain.Receipt
	for _, r := range rs.state.receipts {
		if opts.Since != nil && r.SettledAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && r.SettledAt.After(*opts.Until) {
			continue
		}
		out = append(out, r)
	}
	sortReceipts(out)
	return paginate(out, opts), nil
}

func (rs *receiptStore) ListBefore(_ context.Context, before time.Time) ([]domain.Receipt, error) {
	var out []domain.Receipt
	for _, r := range rs.state.receipts {
		if r.SettledAt.Before(before) {
			out = append(out, r)
		}
	}
	sortReceipts(out)
	return out, nil
}

func sortReceipts(rs []domain.Receipt) {
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].SettledAt.After(rs[j].SettledAt)
	})
}

func paginate[T any](in []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(in) {
			return nil
		}
		in = in[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(in) {
		in = in[:opts.Limit]
	}
	return in
}

// Compile-time interface checks.
var (
	_ domain.AccountStore = (*Store)(nil)
	_ domain.Tx           = (*tx)(nil)
)
