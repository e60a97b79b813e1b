package service

import (
	"context"
	"time"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/metrics"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"github.com/vintagebeauty/storefront-backend/pkg/redis"
)

// ProductCache is a read-through cache of products keyed by slug.
// Failures are logged and treated as misses.
type ProductCache interface {
	Get(ctx context.Context, slug string) (*model.Product, bool)
	Set(ctx context.Context, product *model.Product)
	Invalidate(ctx context.Context, slugs ...string)
}

const productCachePrefix = "product:slug:"

type redisProductCache struct {
	ttl time.Duration
}

// NewProductCache returns a Redis-backed cache, or a no-op one when Redis is not connected.
func NewProductCache(ttl time.Duration) ProductCache {
	if !redis.Enabled() {
		return noopProductCache{}
	}
	return &redisProductCache{ttl: ttl}
}

func (c *redisProductCache) Get(ctx context.Context, slug string) (*model.Product, bool) {
	var product model.Product
	found, err := redis.GetJSON(ctx, productCachePrefix+slug, &product)
	if err != nil {
		logger.Warn("Product cache read failed", map[string]interface{}{
			"slug":  slug,
			"error": err.Error(),
		})
		found = false
	}

	if found {
		metrics.ProductCacheRequestsTotal.WithLabelValues("hit").Inc()
		return &product, true
	}
	metrics.ProductCacheRequestsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

func (c *redisProductCache) Set(ctx context.Context, product *model.Product) {
	if err := redis.SetJSON(ctx, productCachePrefix+product.Slug, product, c.ttl); err != nil {
		logger.Warn("Product cache write failed", map[string]interface{}{
			"slug":  product.Slug,
			"error": err.Error(),
		})
	}
}

func (c *redisProductCache) Invalidate(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, productCachePrefix+slug)
		}
	}
	if err := redis.Delete(ctx, keys...); err != nil {
		logger.Warn("Product cache invalidation failed", map[string]interface{}{
			"slugs": slugs,
			"error": err.Error(),
		})
	}
}

type noopProductCache struct{}

func (noopProductCache) Get(context.Context, string) (*model.Product, bool) { return nil, false }
func (noopProductCache) Set(context.Context, *model.Product)                {}
func (noopProductCache) Invalidate(context.Context, ...string)              {}
