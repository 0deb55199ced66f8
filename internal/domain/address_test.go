package domain

import (
	"strings"
	"testing"
)

func TestDerivedAddressesAreDeterministic(t *testing.T) {
	if ConfigAddress() != ConfigAddress() {
		t.Fatal("config address is not stable")
	}
	if ListingAddress("mint-1") != ListingAddress("mint-1") {
		t.Fatal("listing address is not stable")
	}
	if EscrowAddress("mint-1") != EscrowAddress("mint-1") {
		t.Fatal("escrow address is not stable")
	}
}

func TestDerivedAddressesAreDistinct(t *testing.T) {
	seen := map[Address]string{}
	for name, addr := range map[string]Address{
		"config":          ConfigAddress(),
		"listing mint-1":  ListingAddress("mint-1"),
		"listing mint-2":  ListingAddress("mint-2"),
		"escrow mint-1":   EscrowAddress("mint-1"),
		"escrow mint-2":   EscrowAddress("mint-2"),
		"listing mint-12": ListingAddress("mint-12"),
	} {
		if prev, ok := seen[addr]; ok {
			t.Fatalf("%s and %s derived the same address %s", name, prev, addr)
		}
		seen[addr] = name
	}
}

func TestDerivedAddressAlphabet(t *testing.T) {
	// Base58 excludes 0, O, I, and l.
	addr := string(ListingAddress("mint-1"))
	if addr == "" {
		t.Fatal("empty address")
	}
	if strings.ContainsAny(addr, "0OIl") {
		t.Fatalf("address %q contains non-base58 characters", addr)
	}
}
