package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewAdminRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	t.Run("missing stream", func(t *testing.T) {
		n, err := repo.StreamLength(ctx, "nope")
		require.NoError(t, err)
		assert.Zero(t, n)

		groups, err := repo.GetGroupInfo(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	require.NoError(t, client.XGroupCreateMkStream(ctx, testStream, testGroup, "0").Err())
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: testStream, Values: map[string]any{"v": v}}).Err())
	}
	_, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    testGroup,
		Consumer: "worker-1",
		Streams:  []string{testStream, ">"},
		Count:    2,
	}).Result()
	require.NoError(t, err)

	t.Run("length", func(t *testing.T) {
		n, err := repo.StreamLength(ctx, testStream)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("groups", func(t *testing.T) {
		groups, err := repo.GetGroupInfo(ctx, testStream)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, testGroup, groups[0].Name)
		assert.Equal(t, int64(2), groups[0].Pending)
	})

	t.Run("pending summary", func(t *testing.T) {
		summary, err := repo.GetPendingSummary(ctx, testStream, testGroup)
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.Total)
		assert.Equal(t, map[string]int64{"worker-1": 2}, summary.ConsumerTotals)
		assert.NotEmpty(t, summary.FirstMessageID)
	})
}
