package domain

import "time"

// Listing is the per-asset sale record. It lives at ListingAddress(AssetID)
// from creation until a successful buy or delist removes it; while it exists
// the escrow account at EscrowAddress(AssetID) holds exactly one unit of the
// asset.
type Listing struct {
	Address   Address   `json:"address"`
	Seller    Address   `json:"seller"`
	AssetID   AssetID   `json:"assetId"`
	Price     uint64    `json:"price"`
	Escrow    Address   `json:"escrow"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsActive  bool      `json:"isActive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the listing's expiry timestamp has passed. Expiry
// is informational: no transition auto-rejects an expired listing.
func (l Listing) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// NewListing builds an active listing for an asset with derived listing and
// escrow addresses.
func NewListing(seller Address, asset AssetID, price uint64, duration time.Duration, now time.Time) Listing {
	return Listing{
		Address:   ListingAddress(asset),
		Seller:    seller,
		AssetID:   asset,
		Price:     price,
		Escrow:    EscrowAddress(asset),
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		IsActive:  true,
		UpdatedAt: now,
	}
}
