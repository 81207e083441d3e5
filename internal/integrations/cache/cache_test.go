package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/digestwatch/digestwatch/internal/logging"
)

var logger = logging.NewLogger("error")

func TestDigestCache(t *testing.T) {

	mr := miniredis.RunT(t)
	ctx := context.Background()

	kvc, err := NewDigestCache("redis://"+mr.Addr(), time.Minute, logger)
	assert.NoError(t, err)
	assert.Equal(t, "digest-cache", kvc.ServiceName())
	defer kvc.Close()

	err = kvc.Connect(ctx)
	assert.NoError(t, err)

	// miss
	_, err = kvc.GetDigest(ctx, "nginx:latest")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// set/get
	err = kvc.SetDigest(ctx, "nginx:latest", "sha256:aaa111")
	assert.NoError(t, err)

	digest, err := kvc.GetDigest(ctx, "nginx:latest")
	assert.NoError(t, err)
	assert.Equal(t, "sha256:aaa111", digest)

	// expiry
	mr.FastForward(2 * time.Minute)
	_, err = kvc.GetDigest(ctx, "nginx:latest")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestDigestCacheBadEndpoint(t *testing.T) {
	_, err := NewDigestCache("not-a-redis-url", time.Minute, logger)
	assert.Error(t, err)
}
