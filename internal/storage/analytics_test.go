package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertSnapshotAt writes a snapshot with an explicit relative timestamp
func insertSnapshotAt(t *testing.T, db *DB, modifier string, onlineCount int) {
	t.Helper()
	_, err := db.conn.Exec(
		`INSERT INTO online_snapshots (timestamp, online_count) VALUES (datetime('now', ?), ?)`,
		modifier, onlineCount)
	require.NoError(t, err)
}

func TestHourlyAverages(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	require.NoError(t, analytics.RecordSnapshot(ctx, 4))
	require.NoError(t, analytics.RecordSnapshot(ctx, 8))

	averages, err := analytics.HourlyAverages(ctx, 7)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	assert.GreaterOrEqual(t, averages[0].Hour, 0)
	assert.Less(t, averages[0].Hour, 24)
	assert.InDelta(t, 6.0, averages[0].Average, 0.001)
}

func TestHourlyAveragesRespectWindow(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	insertSnapshotAt(t, db, "-10 days", 100)
	require.NoError(t, analytics.RecordSnapshot(ctx, 2))

	averages, err := analytics.HourlyAverages(ctx, 7)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	assert.InDelta(t, 2.0, averages[0].Average, 0.001)
}

func TestDailyAverages(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	insertSnapshotAt(t, db, "-2 days", 10)
	insertSnapshotAt(t, db, "-2 days", 20)
	require.NoError(t, analytics.RecordSnapshot(ctx, 6))

	averages, err := analytics.DailyAverages(ctx, 7)
	require.NoError(t, err)
	require.Len(t, averages, 2)
	// Ordered by date ascending: the older day first
	assert.InDelta(t, 15.0, averages[0].Average, 0.001)
	assert.InDelta(t, 6.0, averages[1].Average, 0.001)
	assert.Less(t, averages[0].Date, averages[1].Date)
}

func TestWeekdayAverages(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	require.NoError(t, analytics.RecordSnapshot(ctx, 3))
	require.NoError(t, analytics.RecordSnapshot(ctx, 5))

	averages, err := analytics.WeekdayAverages(ctx, 4)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	assert.GreaterOrEqual(t, averages[0].Weekday, 0)
	assert.LessOrEqual(t, averages[0].Weekday, 6)
	assert.InDelta(t, 4.0, averages[0].Average, 0.001)
}

func TestPeakHours(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	// Spread peaks over distinct hours of the last day
	insertSnapshotAt(t, db, "-1 hours", 9)
	insertSnapshotAt(t, db, "-1 hours", 3)
	insertSnapshotAt(t, db, "-2 hours", 14)
	insertSnapshotAt(t, db, "-3 hours", 7)
	insertSnapshotAt(t, db, "-4 hours", 7)
	insertSnapshotAt(t, db, "-5 hours", 5)
	insertSnapshotAt(t, db, "-6 hours", 1)
	insertSnapshotAt(t, db, "-7 hours", 2)

	peaks, err := analytics.PeakHours(ctx, 7)
	require.NoError(t, err)
	require.Len(t, peaks, 5)

	assert.Equal(t, int64(14), peaks[0].Peak)
	assert.Regexp(t, `^\d{2}:00$`, peaks[0].Hour)
	for i := 1; i < len(peaks); i++ {
		assert.LessOrEqual(t, peaks[i].Peak, peaks[i-1].Peak)
	}
}

func TestPeakHoursEmpty(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)

	peaks, err := analytics.PeakHours(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, peaks)
}

func TestPruneOlderThan(t *testing.T) {
	db := openTestDB(t)
	analytics := NewAnalyticsStore(db)
	ctx := context.Background()

	insertSnapshotAt(t, db, "-40 days", 1)
	insertSnapshotAt(t, db, "-35 days", 2)
	insertSnapshotAt(t, db, "-10 days", 3)
	require.NoError(t, analytics.RecordSnapshot(ctx, 4))

	deleted, err := analytics.PruneOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, db.conn.QueryRow(
		`SELECT COUNT(*) FROM online_snapshots`).Scan(&remaining))
	assert.Equal(t, int64(2), remaining)

	// Nothing left beyond the window
	deleted, err = analytics.PruneOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
