package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

func TestWithinCommitsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()

	// Seed committed state.
	err := s.Within(ctx, func(tx domain.Tx) error {
		if err := tx.Ledger().Credit(ctx, "alice", 100); err != nil {
			return err
		}
		return tx.Holdings().Credit(ctx, "alice", "mint-1", 1)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// A failing unit of work must discard every staged mutation, including
	// the ones that succeeded before the failure.
	boom := errors.New("boom")
	err = s.Within(ctx, func(tx domain.Tx) error {
		if err := tx.Ledger().Transfer(ctx, "alice", "bob", 60); err != nil {
			return err
		}
		if err := tx.Holdings().Transfer(ctx, "alice", "bob", "mint-1", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want=%v", err, boom)
	}

	_ = s.View(ctx, func(tx domain.Tx) error {
		bal, _ := tx.Ledger().Balance(ctx, "alice")
		if bal != 100 {
			t.Fatalf("alice balance=%d want=100 after rollback", bal)
		}
		held, _ := tx.Holdings().Balance(ctx, "alice", "mint-1")
		if held != 1 {
			t.Fatalf("alice holding=%d want=1 after rollback", held)
		}
		bobBal, _ := tx.Ledger().Balance(ctx, "bob")
		if bobBal != 0 {
			t.Fatalf("bob balance=%d want=0 after rollback", bobBal)
		}
		return nil
	})
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Within(ctx, func(tx domain.Tx) error {
		return tx.Ledger().Transfer(ctx, "alice", "bob", 1)
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err=%v want=%v", err, domain.ErrInsufficientBalance)
	}
}

func TestViewDiscardsMutations(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.View(ctx, func(tx domain.Tx) error {
		return tx.Ledger().Credit(ctx, "alice", 50)
	})

	_ = s.View(ctx, func(tx domain.Tx) error {
		bal, _ := tx.Ledger().Balance(ctx, "alice")
		if bal != 0 {
			t.Fatalf("balance=%d want=0; View must not commit", bal)
		}
		return nil
	})
}

func TestConfigSingletonLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	cfg := domain.MarketplaceConfig{
		Address:   domain.ConfigAddress(),
		Authority: "auth",
		Treasury:  "treasury",
	}

	err := s.Within(ctx, func(tx domain.Tx) error {
		return tx.Configs().Create(ctx, cfg)
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.Within(ctx, func(tx domain.Tx) error {
		return tx.Configs().Create(ctx, cfg)
	})
	if !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("err=%v want=%v", err, domain.ErrAlreadyInitialized)
	}

	err = s.Within(ctx, func(tx domain.Tx) error {
		return tx.Configs().Delete(ctx)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = s.Within(ctx, func(tx domain.Tx) error {
		return tx.Configs().Delete(ctx)
	})
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("err=%v want=%v", err, domain.ErrNotInitialized)
	}
}

func TestListActiveOrderingAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := s.Within(ctx, func(tx domain.Tx) error {
		for i, id := range []domain.AssetID{"m1", "m2", "m3"} {
			l := domain.NewListing("seller", id, 100, time.Hour, base.Add(time.Duration(i)*time.Minute))
			if err := tx.Listings().Create(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_ = s.View(ctx, func(tx domain.Tx) error {
		out, err := tx.Listings().ListActive(ctx, domain.ListOpts{Limit: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("len=%d want=2", len(out))
		}
		// Newest first.
		if out[0].AssetID != "m3" || out[1].AssetID != "m2" {
			t.Fatalf("order=%s,%s want=m3,m2", out[0].AssetID, out[1].AssetID)
		}

		out, err = tx.Listings().ListActive(ctx, domain.ListOpts{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("list offset: %v", err)
		}
		if len(out) != 1 || out[0].AssetID != "m1" {
			t.Fatalf("offset page wrong: %+v", out)
		}
		return nil
	})
}
