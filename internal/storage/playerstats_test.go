package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJoinUpserts(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	require.NoError(t, stats.RecordJoin(ctx, "steve"))
	require.NoError(t, stats.RecordJoin(ctx, "steve"))
	require.NoError(t, stats.RecordJoin(ctx, "alex"))

	count, err := stats.JoinCount(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = stats.JoinCount(ctx, "alex")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	sum, err := stats.Summary(ctx, "steve")
	require.NoError(t, err)
	require.NotNil(t, sum.FirstJoin)
	require.NotNil(t, sum.LastJoin)
	assert.False(t, sum.LastJoin.Before(*sum.FirstJoin))
}

func TestUnknownPlayerReadsReturnZero(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	count, err := stats.JoinCount(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, count)

	playtime, err := stats.TotalPlaytime(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, playtime)

	deaths, err := stats.CounterValue(ctx, "nobody", "deaths")
	require.NoError(t, err)
	assert.Zero(t, deaths)

	sum, err := stats.Summary(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", sum.Name)
	assert.Zero(t, sum.TotalJoins)
	assert.Nil(t, sum.FirstJoin)
}

func TestIncrementCounters(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	require.NoError(t, stats.RecordJoin(ctx, "steve"))

	for i := 0; i < 3; i++ {
		require.NoError(t, stats.IncrementCounter(ctx, "steve", "deaths"))
	}
	require.NoError(t, stats.IncrementCounter(ctx, "steve", "blocks_broken"))
	require.NoError(t, stats.IncrementCounter(ctx, "steve", "messages_sent"))

	deaths, err := stats.CounterValue(ctx, "steve", "deaths")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deaths)

	broken, err := stats.CounterValue(ctx, "steve", "blocks_broken")
	require.NoError(t, err)
	assert.Equal(t, int64(1), broken)

	kills, err := stats.CounterValue(ctx, "steve", "player_kills")
	require.NoError(t, err)
	assert.Zero(t, kills)
}

func TestIncrementCounterRejectsUnknownName(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)

	err := stats.IncrementCounter(context.Background(), "steve", "high_scores")
	assert.Error(t, err)

	_, err = stats.CounterValue(context.Background(), "steve", "high_scores")
	assert.Error(t, err)
}

func TestAddPlaytimeAccumulates(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	require.NoError(t, stats.RecordJoin(ctx, "steve"))
	require.NoError(t, stats.RecordJoin(ctx, "alex"))
	require.NoError(t, stats.AddPlaytime(ctx, "steve", 60_000))
	require.NoError(t, stats.AddPlaytime(ctx, "steve", 30_000))
	require.NoError(t, stats.AddPlaytime(ctx, "alex", 10_000))

	playtime, err := stats.TotalPlaytime(ctx, "steve")
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), playtime)

	all, err := stats.TotalPlaytimeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), all)
}

func TestTotalPlaytimeAllEmpty(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)

	all, err := stats.TotalPlaytimeAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, all)
}

func TestTouchActivity(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	require.NoError(t, stats.RecordJoin(ctx, "steve"))
	require.NoError(t, stats.TouchActivity(ctx, "steve"))

	sum, err := stats.Summary(ctx, "steve")
	require.NoError(t, err)
	assert.NotNil(t, sum.LastActivity)
}

func TestTopByJoins(t *testing.T) {
	db := openTestDB(t)
	stats := NewPlayerStatsStore(db)
	ctx := context.Background()

	joins := map[string]int{"steve": 3, "alex": 5, "herobrine": 1}
	for name, n := range joins {
		for i := 0; i < n; i++ {
			require.NoError(t, stats.RecordJoin(ctx, name))
		}
	}

	top, err := stats.TopByJoins(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alex", top[0].Name)
	assert.Equal(t, int64(5), top[0].TotalJoins)
	assert.Equal(t, "steve", top[1].Name)
}
