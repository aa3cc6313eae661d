package origination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

const summaryKeyPrefix = "origination:summary:"

// CachedClient is a redis read-through wrapper. Summaries are immutable once
// the request is approved, so a short TTL only bounds memory, not staleness.
type CachedClient struct {
	log   *logger.Logger
	inner Client
	rdb   *goredis.Client
	ttl   time.Duration
}

func NewCached(log *logger.Logger, inner Client, rdb *goredis.Client, ttl time.Duration) (*CachedClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if inner == nil {
		return nil, fmt.Errorf("inner client required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedClient{
		log:   log.With("client", "CachedOriginationClient"),
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}, nil
}

func (c *CachedClient) GetRequestSummary(ctx context.Context, requestID int64) (*RequestSummary, error) {
	key := fmt.Sprintf("%s%d", summaryKeyPrefix, requestID)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached RequestSummary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		// Corrupt entry: drop it and fall through to the origin.
		_ = c.rdb.Del(ctx, key).Err()
	}

	summary, err := c.inner.GetRequestSummary(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(summary); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("failed to cache request summary", "request_id", requestID, "error", err)
		}
	}
	return summary, nil
}

// NewRedisClient dials redis and verifies connectivity before handing the
// client out.
func NewRedisClient(addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
