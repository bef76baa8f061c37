package app

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/goout-id/goout/internal/cache"
)

// RedisClientConfig resolves the cache section into cache.RedisConfig. The
// address may be a plain host:port or a redis:// / rediss:// URL; explicit
// username, password and db settings take precedence over the URL.
func (c CacheConfig) RedisClientConfig() (cache.RedisConfig, error) {
	address := strings.TrimSpace(c.Redis.Address)
	out := cache.RedisConfig{
		Address:  address,
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}

	if !strings.Contains(address, "://") {
		return out, nil
	}

	opts, err := redis.ParseURL(address)
	if err != nil {
		return cache.RedisConfig{}, fmt.Errorf("cache.redis.address: %w", err)
	}
	out.Address = opts.Addr
	if out.Username == "" {
		out.Username = opts.Username
	}
	if out.Password == "" {
		out.Password = opts.Password
	}
	if out.DB == 0 {
		out.DB = opts.DB
	}
	out.TLS = out.TLS || opts.TLSConfig != nil
	return out, nil
}
