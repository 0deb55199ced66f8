package postgres

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// holdingStore persists per-asset token holdings.
type holdingStore struct {
	tx *accountTx
}

func (s *holdingStore) Balance(ctx context.Context, owner domain.Address, asset domain.AssetID) (uint64, error) {
	var amount int64
	err := s.tx.q.QueryRow(ctx,
		`SELECT COALESCE(
			(SELECT amount FROM holdings WHERE owner = $1 AND asset_id = $2), 0)`,
		string(owner), string(asset),
	).Scan(&amount)
	if err != nil {
		return 0, fmt.Errorf("postgres: holding of %s/%s: %w", owner, asset, err)
	}
	return uint64(amount), nil
}

// Transfer moves asset units between holding accounts with a conditional
// debit, creating the destination holding if absent and dropping emptied
// source rows.
func (s *holdingStore) Transfer(ctx context.Context, from, to domain.Address, asset domain.AssetID, amount uint64) error {
	const debit = `
		UPDATE holdings SET amount = amount - $3
		WHERE owner = $1 AND asset_id = $2 AND amount >= $3`

	tag, err := s.tx.q.Exec(ctx, debit, string(from), string(asset), int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit holding %s/%s: %w", from, asset, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}

	if _, err := s.tx.q.Exec(ctx,
		`DELETE FROM holdings WHERE owner = $1 AND asset_id = $2 AND amount = 0`,
		string(from), string(asset),
	); err != nil {
		return fmt.Errorf("postgres: prune holding %s/%s: %w", from, asset, err)
	}

	return s.Credit(ctx, to, asset, amount)
}

func (s *holdingStore) Credit(ctx context.Context, owner domain.Address, asset domain.AssetID, amount uint64) error {
	const query = `
		INSERT INTO holdings (owner, asset_id, amount) VALUES ($1, $2, $3)
		ON CONFLICT (owner, asset_id) DO UPDATE SET amount = holdings.amount + EXCLUDED.amount`

	if _, err := s.tx.q.Exec(ctx, query, string(owner), string(asset), int64(amount)); err != nil {
		return fmt.Errorf("postgres: credit holding %s/%s: %w", owner, asset, err)
	}
	return nil
}
