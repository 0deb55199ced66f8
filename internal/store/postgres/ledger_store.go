package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ledgerStore persists fungible balances.
type ledgerStore struct {
	tx *accountTx
}

func (s *ledgerStore) Balance(ctx context.Context, acct domain.Address) (uint64, error) {
	var amount int64
	err := s.tx.q.QueryRow(ctx,
		`SELECT amount FROM balances WHERE account = $1`, string(acct),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: balance of %s: %w", acct, err)
	}
	return uint64(amount), nil
}

// Transfer debits the source conditionally on sufficient funds and credits
// the destination, creating the destination row if absent. The conditional
// debit makes the check and the mutation one statement, so a stale read can
// never overdraw.
func (s *ledgerStore) Transfer(ctx context.Context, from, to domain.Address, amount uint64) error {
	const debit = `
		UPDATE balances SET amount = amount - $2
		WHERE account = $1 AND amount >= $2`

	tag, err := s.tx.q.Exec(ctx, debit, string(from), int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}

	return s.Credit(ctx, to, amount)
}

func (s *ledgerStore) Credit(ctx context.Context, acct domain.Address, amount uint64) error {
	const query = `
		INSERT INTO balances (account, amount) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = balances.amount + EXCLUDED.amount`

	if _, err := s.tx.q.Exec(ctx, query, string(acct), int64(amount)); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", acct, err)
	}
	return nil
}
