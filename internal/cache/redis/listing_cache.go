package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

const listingTTL = 5 * time.Minute

// ListingCache implements domain.ListingCache using JSON-serialized listing
// records keyed by asset ID.
//
// Key schema:
//
//	listing:{assetID} - JSON-encoded domain.Listing
//
// The engine invalidates an entry on every mutating transition, so a cached
// listing can be at most one TTL stale only if invalidation itself failed.
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(asset domain.AssetID) string {
	return "listing:" + string(asset)
}

// Set stores a listing with the cache TTL.
func (lc *ListingCache) Set(ctx context.Context, l domain.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("redis: marshal listing %s: %w", l.AssetID, err)
	}
	if err := lc.rdb.Set(ctx, listingKey(l.AssetID), data, listingTTL).Err(); err != nil {
		return fmt.Errorf("redis: set listing %s: %w", l.AssetID, err)
	}
	return nil
}

// Get retrieves a listing by asset ID. It returns domain.ErrNotFound when
// the key does not exist.
func (lc *ListingCache) Get(ctx context.Context, asset domain.AssetID) (domain.Listing, error) {
	data, err := lc.rdb.Get(ctx, listingKey(asset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("redis: get listing %s: %w", asset, err)
	}

	var l domain.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Listing{}, fmt.Errorf("redis: unmarshal listing %s: %w", asset, err)
	}
	return l, nil
}

// Invalidate removes the cached listing for an asset. Missing keys are not
// an error.
func (lc *ListingCache) Invalidate(ctx context.Context, asset domain.AssetID) error {
	if err := lc.rdb.Del(ctx, listingKey(asset)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate listing %s: %w", asset, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
