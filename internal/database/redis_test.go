package database

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set; skipping integration tests")
	}
	ctx := context.Background()
	s, err := NewRedis(ctx, RedisConfig{Addr: addr}, logrus.New())
	require.NoError(t, err)
	defer s.Close()

	key := "coinfolio:test:portfolio"
	require.NoError(t, s.client.Del(ctx, key).Err())
	exerciseKV(t, s, key)
}
