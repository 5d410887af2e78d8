package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

func unreachableRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheRepositoryReportsConnectionErrors(t *testing.T) {
	repo := NewCacheRepository(unreachableRedis(t))

	var dest []string
	err := repo.Get(context.Background(), "k", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Error(t, repo.Delete(context.Background(), "k"))
}

func TestCacheRepositoryEdgeCases(t *testing.T) {
	repo := NewCacheRepository(unreachableRedis(t))

	assert.NoError(t, repo.Delete(context.Background()))

	err := repo.Set(context.Background(), "k", make(chan int), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode cache value")
}
