package domain

import "time"

// Receipt is the append-only record of one settled purchase. It is written in
// the same unit of work that moves funds and the asset, so a receipt exists
// if and only if the settlement committed.
type Receipt struct {
	ID           string    `json:"id"`
	AssetID      AssetID   `json:"assetId"`
	Listing      Address   `json:"listing"`
	Seller       Address   `json:"seller"`
	Buyer        Address   `json:"buyer"`
	Price        uint64    `json:"price"`
	FeeBps       uint16    `json:"feeBps"`
	FeeAmount    uint64    `json:"feeAmount"`
	SellerAmount uint64    `json:"sellerAmount"`
	SettledAt    time.Time `json:"settledAt"`
}
