package stats_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/stats"
)

func TestRedisStats_RecordSettlement(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	s := stats.NewRedisStats(rdb)
	for range 3 {
		require.NoError(t, s.RecordPlaced(ctx, "u1"))
	}
	require.NoError(t, s.RecordSettlement(ctx, "u1", "won", decimal.RequireFromString("25.50")))
	require.NoError(t, s.RecordSettlement(ctx, "u1", "lost", decimal.Zero))
	require.NoError(t, s.RecordSettlement(ctx, "u1", "won", decimal.NewFromInt(10)))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0", got["pending"])
	assert.Equal(t, "3", got["settled"])
	assert.Equal(t, "2", got["won"])
	assert.Equal(t, "1", got["lost"])
	total, err := strconv.ParseFloat(got["total_winnings"], 64)
	require.NoError(t, err)
	assert.InDelta(t, 35.5, total, 1e-9)
}

func TestRedisStats_PendingNeverNegative(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	s := stats.NewRedisStats(rdb)
	require.NoError(t, s.RecordSettlement(ctx, "u2", "lost", decimal.Zero))
	require.NoError(t, s.RecordSettlement(ctx, "u2", "void", decimal.Zero))

	got, err := s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.NotContains(t, got["pending"], "-")
	assert.Equal(t, "2", got["settled"])

	require.NoError(t, s.RecordPlaced(ctx, "u2"))
	require.NoError(t, s.RecordSettlement(ctx, "u2", "won", decimal.NewFromInt(5)))
	got, err = s.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "0", got["pending"])
	assert.Equal(t, "3", got["settled"])
}

func TestRedisStats_ReportsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	err := stats.NewRedisStats(rdb).RecordSettlement(context.Background(), "u1", "lost", decimal.Zero)
	assert.ErrorContains(t, err, "record stats for u1")

	err = stats.NewRedisStats(rdb).RecordPlaced(context.Background(), "u1")
	assert.ErrorContains(t, err, "record placed for u1")
}
