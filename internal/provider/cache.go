package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"continuous-futures/internal/series"
)

// CacheOptions configure the Redis read-through cache.
type CacheOptions struct {
	Prefix string
	TTL    time.Duration
}

// Cached serves contract histories from Redis, falling back to next on a miss.
//
// Cache faults never fail a fetch: they are logged and the provider is used.
type Cached struct {
	next   Fetcher
	client redis.Cmdable
	opts   CacheOptions
	logger zerolog.Logger
}

// NewCached decorates next with a Redis cache.
func NewCached(next Fetcher, client redis.Cmdable, opts CacheOptions, logger zerolog.Logger) *Cached {
	if opts.Prefix == "" {
		opts.Prefix = "contchain"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Cached{
		next:   next,
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "provider_cache").Logger(),
	}
}

// Key returns the cache key for a contract.
func (c *Cached) Key(exchange string, contract series.ContractID) string {
	return fmt.Sprintf("%s:raw:%s:%s", c.opts.Prefix, exchange, contract)
}

// FetchContract returns the cached series when present, otherwise fetches and stores it.
func (c *Cached) FetchContract(ctx context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error) {
	key := c.Key(exchange, contract)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached series.RawContractSeries
		decodeErr := json.Unmarshal(data, &cached)
		if decodeErr == nil {
			c.logger.Debug().Str("key", key).Msg("cache hit")
			return cached, nil
		}
		c.logger.Warn().Err(decodeErr).Str("key", key).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	raw, err := c.next.FetchContract(ctx, exchange, contract)
	if err != nil {
		return series.RawContractSeries{}, err
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return raw, nil
	}
	if err := c.client.Set(ctx, key, encoded, c.opts.TTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return raw, nil
}

var _ Fetcher = (*Cached)(nil)
