package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrKeyNotFound = errors.New("key not found")

// DigestCache is a redis-backed TTL cache for resolved remote digests,
// keyed by image reference. It keeps repeated update checks from
// hammering the same registries.

type DigestCache struct {
	Endpoint string
	Ttl      time.Duration

	rdb    *redis.Client
	logger *zerolog.Logger
}

func NewDigestCache(endpoint string, ttl time.Duration, logger *zerolog.Logger) (*DigestCache, error) {

	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	// prepare client, does not connect
	options, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(options)
	return &DigestCache{
		Endpoint: endpoint,
		Ttl:      ttl,
		rdb:      client,
		logger:   logger,
	}, nil
}

func (rx DigestCache) ServiceName() string {
	return "digest-cache"
}

func (rx *DigestCache) Connect(ctx context.Context) error {

	if err := rx.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connect (ping): %v", err)
	}
	return nil
}

func (rx *DigestCache) Close() {
	if rx.rdb != nil {
		rx.rdb.Close()
	}
}

// GetDigest returns the cached digest for an image reference.
func (rx *DigestCache) GetDigest(ctx context.Context, imageRef string) (string, error) {

	digest, err := rx.rdb.Get(ctx, rx.key(imageRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return digest, nil
}

// SetDigest stores a resolved digest with the configured TTL.
func (rx *DigestCache) SetDigest(ctx context.Context, imageRef, digest string) error {
	return rx.rdb.Set(ctx, rx.key(imageRef), digest, rx.Ttl).Err()
}

func (rx *DigestCache) key(imageRef string) string {
	return "digest." + imageRef
}
