package app

import (
	"github.com/banquito-core/formalization-backend/internal/clients/origination"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
)

// wireOrigination builds the origination client, wrapped in the redis
// read-through cache when REDIS_ADDR is set. A missing or unreachable redis
// is not fatal; the service just reads the origin every time.
func wireOrigination(log *logger.Logger, cfg Config) (origination.Client, error) {
	base, err := origination.New(log, origination.Config{BaseURL: cfg.OriginationURL})
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		return base, nil
	}
	rdb, err := origination.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, origination cache disabled", "error", err)
		return base, nil
	}
	cached, err := origination.NewCached(log, base, rdb, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
