package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// receiptStore persists the append-only settlement history.
type receiptStore struct {
	tx *accountTx
}

const receiptCols = `id, asset_id, listing_address, seller, buyer, price,
	fee_basis_points, fee_amount, seller_amount, settled_at`

func (s *receiptStore) Insert(ctx context.Context, r domain.Receipt) error {
	const query = `
		INSERT INTO receipts (` + receiptCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.tx.q.Exec(ctx, query,
		r.ID, string(r.AssetID), string(r.Listing),
		string(r.Seller), string(r.Buyer), int64(r.Price),
		int32(r.FeeBps), int64(r.FeeAmount), int64(r.SellerAmount), r.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert receipt %s: %w", r.ID, err)
	}
	return nil
}

func scanReceipt(row pgx.Row) (domain.Receipt, error) {
	var r domain.Receipt
	var assetID, listing, seller, buyer string
	var price, feeAmount, sellerAmount int64
	var feeBps int32
	err := row.Scan(
		&r.ID, &assetID, &listing, &seller, &buyer, &price,
		&feeBps, &feeAmount, &sellerAmount, &r.SettledAt,
	)
	if err != nil {
		return domain.Receipt{}, err
	}
	r.AssetID = domain.AssetID(assetID)
	r.Listing = domain.Address(listing)
	r.Seller = domain.Address(seller)
	r.Buyer = domain.Address(buyer)
	r.Price = uint64(price)
	r.FeeBps = uint16(feeBps)
	r.FeeAmount = uint64(feeAmount)
	r.SellerAmount = uint64(sellerAmount)
	return r, nil
}

func (s *receiptStore) query(ctx context.Context, query string, args ...any) ([]domain.Receipt, error) {
	rows, err := s.tx.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: receipts rows: %w", err)
	}
	return receipts, nil
}

func (s *receiptStore) ListByAsset(ctx context.Context, asset domain.AssetID, opts domain.ListOpts) ([]domain.Receipt, error) {
	return s.query(ctx,
		`SELECT `+receiptCols+` FROM receipts
		 WHERE asset_id = $1 ORDER BY settled_at DESC LIMIT $2 OFFSET $3`,
		string(asset), nonZeroLimit(opts.Limit), opts.Offset,
	)
}

func (s *receiptStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Receipt, error) {
	query := `SELECT ` + receiptCols + ` FROM receipts`
	args := []any{}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" WHERE settled_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		if opts.Since != nil {
			query += fmt.Sprintf(" AND settled_at <= $%d", len(args))
		} else {
			query += fmt.Sprintf(" WHERE settled_at <= $%d", len(args))
		}
	}

	args = append(args, nonZeroLimit(opts.Limit))
	query += fmt.Sprintf(" ORDER BY settled_at DESC LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return s.query(ctx, query, args...)
}

func (s *receiptStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Receipt, error) {
	return s.query(ctx,
		`SELECT `+receiptCols+` FROM receipts
		 WHERE settled_at < $1 ORDER BY settled_at DESC`,
		before,
	)
}

func nonZeroLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
