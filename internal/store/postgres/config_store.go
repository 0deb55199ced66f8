package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// configStore persists the marketplace config singleton.
type configStore struct {
	tx *accountTx
}

const configCols = `address, authority, treasury, fee_basis_points, is_paused, created_at, updated_at`

func (s *configStore) Create(ctx context.Context, cfg domain.MarketplaceConfig) error {
	const query = `
		INSERT INTO marketplace_config (` + configCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.tx.q.Exec(ctx, query,
		string(cfg.Address), string(cfg.Authority), string(cfg.Treasury),
		int32(cfg.FeeBasisPoints), cfg.IsPaused, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyInitialized
		}
		return fmt.Errorf("postgres: create config: %w", err)
	}
	return nil
}

func (s *configStore) Get(ctx context.Context) (domain.MarketplaceConfig, error) {
	query := `SELECT ` + configCols + ` FROM marketplace_config WHERE address = $1`
	if !s.tx.readOnly {
		query += ` FOR UPDATE`
	}

	var cfg domain.MarketplaceConfig
	var addr, authority, treasury string
	var feeBps int32
	err := s.tx.q.QueryRow(ctx, query, string(domain.ConfigAddress())).Scan(
		&addr, &authority, &treasury, &feeBps, &cfg.IsPaused,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketplaceConfig{}, domain.ErrNotInitialized
		}
		return domain.MarketplaceConfig{}, fmt.Errorf("postgres: get config: %w", err)
	}

	cfg.Address = domain.Address(addr)
	cfg.Authority = domain.Address(authority)
	cfg.Treasury = domain.Address(treasury)
	cfg.FeeBasisPoints = uint16(feeBps)
	return cfg, nil
}

func (s *configStore) Update(ctx context.Context, cfg domain.MarketplaceConfig) error {
	const query = `
		UPDATE marketplace_config
		SET authority = $2, treasury = $3, fee_basis_points = $4,
		    is_paused = $5, updated_at = $6
		WHERE address = $1`

	tag, err := s.tx.q.Exec(ctx, query,
		string(cfg.Address), string(cfg.Authority), string(cfg.Treasury),
		int32(cfg.FeeBasisPoints), cfg.IsPaused, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

func (s *configStore) Delete(ctx context.Context) error {
	tag, err := s.tx.q.Exec(ctx,
		`DELETE FROM marketplace_config WHERE address = $1`,
		string(domain.ConfigAddress()),
	)
	if err != nil {
		return fmt.Errorf("postgres: delete config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}
