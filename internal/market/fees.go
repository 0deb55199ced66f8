package market

import "github.com/alanyoungcy/nftmarket/internal/domain"

// SplitFee computes floor(price * feeBps / 10000) and the seller remainder.
// The decomposition price = q*10000 + r keeps every intermediate product
// within uint64 (r*feeBps < 10^8), so the result is exact for the full
// uint64 price range. feeAmount + sellerAmount == price always holds.
func SplitFee(price uint64, feeBps uint16) (feeAmount, sellerAmount uint64) {
	q := price / domain.MaxFeeBasisPoints
	r := price % domain.MaxFeeBasisPoints
	feeAmount = q*uint64(feeBps) + r*uint64(feeBps)/domain.MaxFeeBasisPoints
	sellerAmount = price - feeAmount
	return feeAmount, sellerAmount
}
