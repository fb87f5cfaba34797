package store

import (
	"database/sql"
	"time"

	"github.com/rtorralba/floodwatch/internal/models"
)

// ComputeNodeDailySummary rolls one node's readings for one local calendar
// day into a summary row. Status severity is resolved in SQL by position in
// the ladder so a worst-of-day label survives averaging.
func (s *Store) ComputeNodeDailySummary(nodeID string, date time.Time) (*models.NodeDailySummary, error) {
	localDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	dayStart := localDate.UTC()
	dayEnd := localDate.AddDate(0, 0, 1).UTC()

	summary := models.NodeDailySummary{
		Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		NodeID: nodeID,
	}

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			AVG(rain_analog),
			MIN(rain_analog),
			AVG(water_distance_cm),
			MIN(water_distance_cm)
		FROM readings
		WHERE node_id = ? AND recorded_at >= ? AND recorded_at < ?
	`, nodeID, dayStart, dayEnd)
	if err := row.Scan(&summary.ReadingCount, &summary.AvgRainAnalog, &summary.MinRainAnalog,
		&summary.AvgWaterDistanceCM, &summary.MinWaterDistanceCM); err != nil {
		return nil, err
	}

	err := s.db.QueryRow(`
		SELECT flood_status
		FROM readings
		WHERE node_id = ? AND recorded_at >= ? AND recorded_at < ? AND flood_status != ''
		ORDER BY CASE flood_status
			WHEN 'CRITICAL_FLOOD' THEN 4
			WHEN 'FLOOD_RISK' THEN 3
			WHEN 'RAIN_ALERT' THEN 2
			WHEN 'NORMAL' THEN 1
			ELSE 0
		END DESC
		LIMIT 1
	`, nodeID, dayStart, dayEnd).Scan(&summary.WorstFloodStatus)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return &summary, nil
}

func (s *Store) UpsertNodeDailySummary(ds models.NodeDailySummary) error {
	_, err := s.db.Exec(`
		INSERT INTO node_daily_summaries (date, node_id, reading_count, avg_rain_analog, min_rain_analog,
		    avg_water_distance_cm, min_water_distance_cm, worst_flood_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, node_id) DO UPDATE SET
			reading_count = excluded.reading_count,
			avg_rain_analog = excluded.avg_rain_analog,
			min_rain_analog = excluded.min_rain_analog,
			avg_water_distance_cm = excluded.avg_water_distance_cm,
			min_water_distance_cm = excluded.min_water_distance_cm,
			worst_flood_status = excluded.worst_flood_status
	`, ds.Date, ds.NodeID, ds.ReadingCount, ds.AvgRainAnalog, ds.MinRainAnalog,
		ds.AvgWaterDistanceCM, ds.MinWaterDistanceCM, ds.WorstFloodStatus)
	return err
}

func (s *Store) GetNodeDailySummaries(nodeID string, days int) ([]models.NodeDailySummary, error) {
	rows, err := s.db.Query(`
		SELECT date, node_id, reading_count, avg_rain_analog, min_rain_analog,
		       avg_water_distance_cm, min_water_distance_cm, worst_flood_status
		FROM node_daily_summaries
		WHERE node_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, nodeID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.NodeDailySummary
	for rows.Next() {
		var ds models.NodeDailySummary
		if err := rows.Scan(&ds.Date, &ds.NodeID, &ds.ReadingCount, &ds.AvgRainAnalog, &ds.MinRainAnalog,
			&ds.AvgWaterDistanceCM, &ds.MinWaterDistanceCM, &ds.WorstFloodStatus); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}
