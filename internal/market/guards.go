package market

import (
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// Capability predicates. Each is a plain equality or range check against
// stored identities and returns a typed error on mismatch.

func requireAuthority(cfg domain.MarketplaceConfig, caller domain.Address) error {
	if caller != cfg.Authority {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireSeller(l domain.Listing, caller domain.Address) error {
	if caller != l.Seller {
		return domain.ErrInvalidSeller
	}
	return nil
}

func requireNotPaused(cfg domain.MarketplaceConfig) error {
	if cfg.IsPaused {
		return domain.ErrMarketplacePaused
	}
	return nil
}

func requireActive(l domain.Listing) error {
	if !l.IsActive {
		return domain.ErrListingInactive
	}
	return nil
}

func validateTerms(price uint64, duration time.Duration) error {
	if price == 0 {
		return domain.ErrInvalidPrice
	}
	if duration <= 0 {
		return domain.ErrInvalidDuration
	}
	return nil
}
