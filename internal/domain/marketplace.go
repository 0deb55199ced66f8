// Package domain defines the marketplace entities, sentinel errors, and the
// store interfaces that persistence and cache layers implement.
package domain

import "time"

// MaxFeeBasisPoints is the upper bound of the fee rate (10000 = 100%).
const MaxFeeBasisPoints = 10000

// MarketplaceConfig is the governance singleton: one per deployment, located
// at ConfigAddress().
type MarketplaceConfig struct {
	Address        Address   `json:"address"`
	Authority      Address   `json:"authority"`
	Treasury       Address   `json:"treasury"`
	FeeBasisPoints uint16    `json:"feeBasisPoints"`
	IsPaused       bool      `json:"isPaused"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ValidFee reports whether a fee rate is within [0, MaxFeeBasisPoints].
func ValidFee(bps uint16) bool {
	return bps <= MaxFeeBasisPoints
}
