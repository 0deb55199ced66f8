package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// listingStore persists listing records keyed by their derived address.
type listingStore struct {
	tx *accountTx
}

const listingCols = `address, asset_id, seller, price, escrow, is_active, created_at, expires_at, updated_at`

func (s *listingStore) Create(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO listings (` + listingCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.tx.q.Exec(ctx, query,
		string(l.Address), string(l.AssetID), string(l.Seller),
		int64(l.Price), string(l.Escrow), l.IsActive,
		l.CreatedAt, l.ExpiresAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrListingExists
		}
		return fmt.Errorf("postgres: create listing %s: %w", l.AssetID, err)
	}
	return nil
}

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	var addr, assetID, seller, escrow string
	var price int64
	err := row.Scan(
		&addr, &assetID, &seller, &price, &escrow,
		&l.IsActive, &l.CreatedAt, &l.ExpiresAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	l.Address = domain.Address(addr)
	l.AssetID = domain.AssetID(assetID)
	l.Seller = domain.Address(seller)
	l.Escrow = domain.Address(escrow)
	l.Price = uint64(price)
	return l, nil
}

func (s *listingStore) Get(ctx context.Context, asset domain.AssetID) (domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE asset_id = $1`
	if !s.tx.readOnly {
		// Serializes competing transitions on the same asset; the loser of
		// a concurrent buy re-reads after the winner's delete and fails.
		query += ` FOR UPDATE`
	}

	l, err := scanListing(s.tx.q.QueryRow(ctx, query, string(asset)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", asset, err)
	}
	return l, nil
}

func (s *listingStore) Update(ctx context.Context, l domain.Listing) error {
	const query = `
		UPDATE listings
		SET price = $2, is_active = $3, expires_at = $4, updated_at = $5
		WHERE asset_id = $1`

	tag, err := s.tx.q.Exec(ctx, query,
		string(l.AssetID), int64(l.Price), l.IsActive, l.ExpiresAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update listing %s: %w", l.AssetID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *listingStore) Delete(ctx context.Context, asset domain.AssetID) error {
	tag, err := s.tx.q.Exec(ctx,
		`DELETE FROM listings WHERE asset_id = $1`, string(asset))
	if err != nil {
		return fmt.Errorf("postgres: delete listing %s: %w", asset, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (s *listingStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE is_active`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.tx.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active listings rows: %w", err)
	}
	return listings, nil
}
