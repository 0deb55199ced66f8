package domain

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// Address identifies a ledger or holding account. User-controlled addresses
// are opaque strings supplied by callers; program-controlled addresses are
// derived from a fixed namespace tag so every component can compute them
// without a lookup table.
type Address string

// AssetID identifies the unique asset (NFT mint) being traded.
type AssetID string

const (
	marketplaceSeed = "marketplace"
	listingSeed     = "listing"
	escrowSeed      = "escrow"
)

func deriveAddress(seed string, parts ...string) Address {
	h := sha256.New()
	h.Write([]byte(seed))
	for _, p := range parts {
		h.Write([]byte{'|'})
		h.Write([]byte(p))
	}
	return Address(base58.Encode(h.Sum(nil)))
}

// ConfigAddress returns the canonical address of the marketplace config
// singleton.
func ConfigAddress() Address {
	return deriveAddress(marketplaceSeed)
}

// ListingAddress returns the deterministic address of the listing record for
// the given asset. At most one listing row exists at this address at a time.
func ListingAddress(asset AssetID) Address {
	return deriveAddress(listingSeed, string(asset))
}

// EscrowAddress returns the program-controlled holding account that custodies
// the asset while its listing is active. No private party controls this
// address; only the settlement engine moves tokens out of it.
func EscrowAddress(asset AssetID) Address {
	return deriveAddress(escrowSeed, string(asset))
}
