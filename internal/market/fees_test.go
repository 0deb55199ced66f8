package market

import (
	"math"
	"testing"
)

func TestSplitFee(t *testing.T) {
	cases := []struct {
		name    string
		price   uint64
		feeBps  uint16
		wantFee uint64
	}{
		{"two percent", 1_000_000_000, 200, 20_000_000},
		{"zero fee", 1_000_000_000, 0, 0},
		{"full fee", 1_000_000_000, 10000, 1_000_000_000},
		{"rounds down", 999, 250, 24},     // 999*250/10000 = 24.975
		{"tiny price", 1, 9999, 0},        // floor(0.9999)
		{"one basis point", 10_000, 1, 1}, // exact boundary
		{"sub basis point", 9_999, 1, 0},  // floor(0.9999)
		{"max price", math.MaxUint64, 10000, math.MaxUint64},
		{"max price half", math.MaxUint64, 5000, math.MaxUint64 / 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, sellerAmt := SplitFee(tc.price, tc.feeBps)
			if fee != tc.wantFee {
				t.Fatalf("fee=%d want=%d", fee, tc.wantFee)
			}
			if fee+sellerAmt != tc.price {
				t.Fatalf("fee+seller=%d want=%d (no leaked or duplicated funds)", fee+sellerAmt, tc.price)
			}
		})
	}
}

func TestSplitFeeNeverExceedsPrice(t *testing.T) {
	prices := []uint64{0, 1, 9_999, 10_000, 10_001, 123_456_789, math.MaxUint64 - 1, math.MaxUint64}
	fees := []uint16{0, 1, 199, 200, 5000, 9999, 10000}

	for _, p := range prices {
		for _, f := range fees {
			fee, sellerAmt := SplitFee(p, f)
			if fee > p {
				t.Fatalf("price=%d fee_bps=%d: fee %d exceeds price", p, f, fee)
			}
			if fee+sellerAmt != p {
				t.Fatalf("price=%d fee_bps=%d: split %d+%d != price", p, f, fee, sellerAmt)
			}
		}
	}
}
