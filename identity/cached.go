package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/url"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const resolutionCacheKeyPrefix = "go-offchain::identity::v1"

type resolution struct {
	BaseURL   string
	PublicKey []byte
}

// CachedResolver memoizes counterparty resolutions. Registrations change
// rarely (an on-chain transaction), so cached entries only go stale across
// key rotations; the cache service owns expiry policy.
type CachedResolver struct {
	base  *Resolver
	cache repositorycache.CacheService
}

func NewCachedResolver(base *Resolver, cacheService repositorycache.CacheService) (*CachedResolver, error) {
	if base == nil {
		return nil, fmt.Errorf("identity: base resolver is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("identity: cache service is required")
	}
	return &CachedResolver{base: base, cache: cacheService}, nil
}

// ResolutionCacheKey returns the deterministic cache key for an account id:
// go-offchain::identity::v1::<escaped account id>.
func ResolutionCacheKey(accountID string) string {
	return resolutionCacheKeyPrefix + "::" + url.PathEscape(accountID)
}

func (r *CachedResolver) Resolve(ctx context.Context, accountID string) (string, ed25519.PublicKey, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return "", nil, fmt.Errorf("identity: cached resolver is not configured")
	}
	cached, err := repositorycache.GetOrFetch(ctx, r.cache, ResolutionCacheKey(accountID),
		func(ctx context.Context) (resolution, error) {
			baseURL, key, fetchErr := r.base.Resolve(ctx, accountID)
			if fetchErr != nil {
				return resolution{}, fetchErr
			}
			return resolution{
				BaseURL:   baseURL,
				PublicKey: append([]byte(nil), key...),
			}, nil
		})
	if err != nil {
		return "", nil, err
	}
	return cached.BaseURL, ed25519.PublicKey(cached.PublicKey), nil
}

// IsLocal delegates to the base resolver; locality checks are cheap and must
// see parent relationships as registered now.
func (r *CachedResolver) IsLocal(ctx context.Context, accountID string) (bool, error) {
	if r == nil || r.base == nil {
		return false, fmt.Errorf("identity: cached resolver is not configured")
	}
	return r.base.IsLocal(ctx, accountID)
}

// LocalAccountID exposes the base resolver's derived local identifier.
func (r *CachedResolver) LocalAccountID() string {
	if r == nil || r.base == nil {
		return ""
	}
	return r.base.LocalAccountID()
}
