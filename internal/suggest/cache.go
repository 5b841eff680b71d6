package suggest

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pkordes/trip-planner/internal/domain"
)

const regionsKey = "regions"

// CachedCatalog memoises a Catalog's results for a fixed TTL.
// Errors are never cached.
type CachedCatalog struct {
	next  Catalog
	cache *cache.Cache
}

var _ Catalog = (*CachedCatalog)(nil)

// NewCachedCatalog wraps next with a TTL cache.
func NewCachedCatalog(next Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedCatalog) Regions(ctx context.Context) ([]domain.Region, error) {
	if cached, found := c.cache.Get(regionsKey); found {
		return cached.([]domain.Region), nil
	}
	regions, err := c.next.Regions(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(regionsKey, regions, cache.DefaultExpiration)
	return regions, nil
}

func (c *CachedCatalog) ListPlaces(ctx context.Context, regions []string) ([]domain.Place, error) {
	key := placesKey(regions)
	if cached, found := c.cache.Get(key); found {
		return cached.([]domain.Place), nil
	}
	places, err := c.next.ListPlaces(ctx, regions)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, places, cache.DefaultExpiration)
	return places, nil
}

// Flush drops every cached entry.
func (c *CachedCatalog) Flush() {
	c.cache.Flush()
}

// placesKey is independent of region order.
func placesKey(regions []string) string {
	sorted := slices.Clone(regions)
	slices.Sort(sorted)
	return "places:" + strings.Join(sorted, ",")
}
