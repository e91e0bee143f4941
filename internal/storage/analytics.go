package storage

import (
	"context"
	"fmt"

	"github.com/avolkov/uptrack/internal/domain"
)

// AnalyticsStore records periodic online-count snapshots and aggregates
// them into averages and peaks. All aggregation happens in SQL; Go only
// shapes the rows.
type AnalyticsStore struct {
	db *DB
}

// NewAnalyticsStore creates an analytics store over the shared connection
func NewAnalyticsStore(db *DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// RecordSnapshot stores one online-count sample at the adjusted current time
func (s *AnalyticsStore) RecordSnapshot(ctx context.Context, onlineCount int) error {
	query := fmt.Sprintf(
		`INSERT INTO online_snapshots (timestamp, online_count) VALUES (%s, ?)`,
		s.db.dialect.Now())
	if _, err := s.db.exec(ctx, query, onlineCount); err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	return nil
}

// HourlyAverages returns the average online count per hour of day over
// the trailing window. Hours with no snapshots are absent.
func (s *AnalyticsStore) HourlyAverages(ctx context.Context, daysBack int) ([]domain.HourlyAverage, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT %s AS hour, CAST(AVG(online_count) AS REAL)
		 FROM online_snapshots
		 WHERE timestamp >= %s
		 GROUP BY hour ORDER BY hour`,
		s.db.dialect.HourBucket("timestamp"), s.db.dialect.CutoffDays())
	rows, err := s.db.query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("querying hourly averages: %w", err)
	}
	defer rows.Close()

	var averages []domain.HourlyAverage
	for rows.Next() {
		var a domain.HourlyAverage
		if err := rows.Scan(&a.Hour, &a.Average); err != nil {
			return nil, fmt.Errorf("scanning hourly average: %w", err)
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}

// DailyAverages returns the average online count per calendar date over
// the trailing window
func (s *AnalyticsStore) DailyAverages(ctx context.Context, daysBack int) ([]domain.DailyAverage, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT %s AS day, CAST(AVG(online_count) AS REAL)
		 FROM online_snapshots
		 WHERE timestamp >= %s
		 GROUP BY day ORDER BY day`,
		s.db.dialect.DateBucket("timestamp"), s.db.dialect.CutoffDays())
	rows, err := s.db.query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("querying daily averages: %w", err)
	}
	defer rows.Close()

	var averages []domain.DailyAverage
	for rows.Next() {
		var a domain.DailyAverage
		if err := rows.Scan(&a.Date, &a.Average); err != nil {
			return nil, fmt.Errorf("scanning daily average: %w", err)
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}

// WeekdayAverages returns the average online count per day of week
// (0 = Sunday) over the trailing weeks
func (s *AnalyticsStore) WeekdayAverages(ctx context.Context, weeksBack int) ([]domain.WeekdayAverage, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT %s AS weekday, CAST(AVG(online_count) AS REAL)
		 FROM online_snapshots
		 WHERE timestamp >= %s
		 GROUP BY weekday ORDER BY weekday`,
		s.db.dialect.WeekdayBucket("timestamp"), s.db.dialect.CutoffDays())
	rows, err := s.db.query(ctx, query, weeksBack*7)
	if err != nil {
		return nil, fmt.Errorf("querying weekday averages: %w", err)
	}
	defer rows.Close()

	var averages []domain.WeekdayAverage
	for rows.Next() {
		var a domain.WeekdayAverage
		if err := rows.Scan(&a.Weekday, &a.Average); err != nil {
			return nil, fmt.Errorf("scanning weekday average: %w", err)
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}

// PeakHours returns the five busiest hours of day by maximum observed
// online count over the trailing window, busiest first
func (s *AnalyticsStore) PeakHours(ctx context.Context, daysBack int) ([]domain.PeakHour, error) {
	ctx, cancel := s.db.opCtx(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT %s AS hour, MAX(online_count) AS peak
		 FROM online_snapshots
		 WHERE timestamp >= %s
		 GROUP BY hour ORDER BY peak DESC, hour ASC LIMIT 5`,
		s.db.dialect.HourBucket("timestamp"), s.db.dialect.CutoffDays())
	rows, err := s.db.query(ctx, query, daysBack)
	if err != nil {
		return nil, fmt.Errorf("querying peak hours: %w", err)
	}
	defer rows.Close()

	var peaks []domain.PeakHour
	for rows.Next() {
		var hour int
		var peak int64
		if err := rows.Scan(&hour, &peak); err != nil {
			return nil, fmt.Errorf("scanning peak hour: %w", err)
		}
		peaks = append(peaks, domain.PeakHour{
			Hour: fmt.Sprintf("%02d:00", hour),
			Peak: peak,
		})
	}
	return peaks, rows.Err()
}

// PruneOlderThan deletes snapshots older than the retention window and
// returns the number of rows removed
func (s *AnalyticsStore) PruneOlderThan(ctx context.Context, daysToKeep int) (int64, error) {
	query := fmt.Sprintf(
		`DELETE FROM online_snapshots WHERE timestamp < %s`,
		s.db.dialect.CutoffDays())
	result, err := s.db.exec(ctx, query, daysToKeep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned snapshots: %w", err)
	}
	return deleted, nil
}
