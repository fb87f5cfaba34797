package store

import (
	"database/sql"
	"time"

	"github.com/rtorralba/floodwatch/internal/models"
)

// alertDedupWindow bounds how long a quiet gap can be before a repeated
// status opens a new alert row instead of extending the previous one.
const alertDedupWindow = 30 * time.Minute

// RecordAlert logs an elevated flood status for a node. If the node's most
// recent alert carries the same status and was last seen within the dedup
// window, that row is extended; otherwise a new row is inserted. Returns the
// alert row and whether it was newly created.
func (s *Store) RecordAlert(r models.Reading) (*models.FloodAlert, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, node_id, flood_status, rain_analog, water_distance_cm, first_seen_at, last_seen_at, reading_count
		FROM flood_alerts
		WHERE node_id = ?
		ORDER BY last_seen_at DESC
		LIMIT 1
	`, r.NodeID)

	var last models.FloodAlert
	err := row.Scan(&last.ID, &last.NodeID, &last.FloodStatus, &last.RainAnalog,
		&last.WaterDistanceCM, &last.FirstSeenAt, &last.LastSeenAt, &last.ReadingCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, err
	}

	if err == nil && last.FloodStatus == r.FloodStatus && r.RecordedAt.Sub(last.LastSeenAt) <= alertDedupWindow {
		_, err := s.db.Exec(`
			UPDATE flood_alerts
			SET last_seen_at = ?, rain_analog = ?, water_distance_cm = ?, reading_count = reading_count + 1
			WHERE id = ?
		`, r.RecordedAt, r.RainAnalog, r.WaterDistanceCM, last.ID)
		if err != nil {
			return nil, false, err
		}
		last.LastSeenAt = r.RecordedAt
		last.RainAnalog = r.RainAnalog
		last.WaterDistanceCM = r.WaterDistanceCM
		last.ReadingCount++
		return &last, false, nil
	}

	res, err := s.db.Exec(`
		INSERT INTO flood_alerts (node_id, flood_status, rain_analog, water_distance_cm, first_seen_at, last_seen_at, reading_count)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, r.NodeID, r.FloodStatus, r.RainAnalog, r.WaterDistanceCM, r.RecordedAt, r.RecordedAt)
	if err != nil {
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}

	alert := models.FloodAlert{
		ID:              id,
		NodeID:          r.NodeID,
		FloodStatus:     r.FloodStatus,
		RainAnalog:      r.RainAnalog,
		WaterDistanceCM: r.WaterDistanceCM,
		FirstSeenAt:     r.RecordedAt,
		LastSeenAt:      r.RecordedAt,
		ReadingCount:    1,
	}
	return &alert, true, nil
}

func (s *Store) GetRecentAlerts(limit int) ([]models.FloodAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, node_id, flood_status, rain_analog, water_distance_cm, first_seen_at, last_seen_at, reading_count
		FROM flood_alerts
		ORDER BY last_seen_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.FloodAlert
	for rows.Next() {
		var a models.FloodAlert
		if err := rows.Scan(&a.ID, &a.NodeID, &a.FloodStatus, &a.RainAnalog,
			&a.WaterDistanceCM, &a.FirstSeenAt, &a.LastSeenAt, &a.ReadingCount); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
