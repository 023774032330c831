package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Store shared between processes. Redis errors degrade to a
// miss (Get) or a dropped write (Set).
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	log    *zap.Logger
}

type RedisOptions struct {
	Addr     string
	DB       int
	Username string
	Password string
	Prefix   string // по умолчанию: "tokenscope:"
}

func NewRedis(opts RedisOptions, log *zap.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Username: opts.Username,
		Password: opts.Password,
	})
	return NewRedisFromClient(rdb, opts.Prefix, log)
}

func NewRedisFromClient(rdb redis.UniversalClient, prefix string, log *zap.Logger) *Redis {
	if prefix == "" {
		prefix = "tokenscope:"
	}
	return &Redis{rdb: rdb, prefix: prefix, log: log}
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (s *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.rdb.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		s.log.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Ping checks connectivity at start-up.
func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Redis) Close() error { return s.rdb.Close() }
