package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// Store implements domain.AccountStore. Each unit of work is one database
// transaction; listing reads inside a writable unit of work take a row lock
// so two competing transitions against the same asset serialize, and the
// loser observes the winner's committed state.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Within runs fn inside a read-write transaction. Any error from fn rolls
// the whole transaction back.
func (s *Store) Within(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}

	if err := fn(&accountTx{q: pgTx, readOnly: false}); err != nil {
		_ = pgTx.Rollback(ctx)
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx domain.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("postgres: begin read-only: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	return fn(&accountTx{q: pgTx, readOnly: true})
}

// accountTx exposes the domain store interfaces over one pgx transaction.
type accountTx struct {
	q        pgx.Tx
	readOnly bool
}

func (t *accountTx) Configs() domain.ConfigStore   { return &configStore{t} }
func (t *accountTx) Listings() domain.ListingStore { return &listingStore{t} }
func (t *accountTx) Ledger() domain.Ledger         { return &ledgerStore{t} }
func (t *accountTx) Holdings() domain.HoldingStore { return &holdingStore{t} }
func (t *accountTx) Receipts() domain.ReceiptStore { return &receiptStore{t} }

// Compile-time interface checks.
var (
	_ domain.AccountStore = (*Store)(nil)
	_ domain.Tx           = (*accountTx)(nil)
)
