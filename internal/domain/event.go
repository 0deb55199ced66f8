package domain

import "time"

// Event channels published on the event bus and mirrored to WebSocket
// clients.
const (
	ChannelListings    = "mk:listings"
	ChannelSales       = "mk:sales"
	ChannelMarketplace = "mk:marketplace"
)

// Event kinds.
const (
	EventListingCreated  = "listing.created"
	EventListingUpdated  = "listing.updated"
	EventListingDelisted = "listing.delisted"
	EventAssetSold       = "asset.sold"
	EventFeeUpdated      = "marketplace.fee_updated"
	EventPaused          = "marketplace.paused"
	EventUnpaused        = "marketplace.unpaused"
	EventInitialized     = "marketplace.initialized"
	EventClosed          = "marketplace.closed"
)

// Event is the JSON payload broadcast after a committed state transition.
// Payload carries the entity involved (a Listing or a Receipt).
type Event struct {
	Kind    string    `json:"kind"`
	AssetID AssetID   `json:"asset_id,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}
