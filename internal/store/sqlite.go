package store

import (
	"database/sql"
	"time"

	"github.com/rtorralba/floodwatch/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

func (s *Store) UpsertNode(n models.Node) error {
	_, err := s.db.Exec(`
		INSERT INTO nodes (node_id, name, location, latitude, longitude, is_primary, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			is_primary = excluded.is_primary,
			active = excluded.active
	`, n.NodeID, n.Name, n.Location, n.Latitude, n.Longitude, n.IsPrimary, n.Active)
	return err
}

// RegisterNode inserts a node row if one does not exist yet, leaving any
// operator-edited metadata alone. Used when an unknown node starts posting.
func (s *Store) RegisterNode(nodeID string) error {
	_, err := s.db.Exec(`
		INSERT INTO nodes (node_id, name, active) VALUES (?, ?, TRUE)
		ON CONFLICT(node_id) DO NOTHING
	`, nodeID, nodeID)
	return err
}

func (s *Store) GetActiveNodes() ([]models.Node, error) {
	rows, err := s.db.Query(`SELECT node_id, name, location, latitude, longitude, is_primary, active FROM nodes WHERE active = TRUE ORDER BY node_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.NodeID, &n.Name, &n.Location, &n.Latitude, &n.Longitude, &n.IsPrimary, &n.Active); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) GetNode(nodeID string) (*models.Node, error) {
	row := s.db.QueryRow(`SELECT node_id, name, location, latitude, longitude, is_primary, active FROM nodes WHERE node_id = ?`, nodeID)
	var n models.Node
	err := row.Scan(&n.NodeID, &n.Name, &n.Location, &n.Latitude, &n.Longitude, &n.IsPrimary, &n.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) InsertReading(r models.Reading) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO readings (node_id, rain_analog, rain_intensity, water_distance_cm, flood_status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.NodeID, r.RainAnalog, r.RainIntensity, r.WaterDistanceCM, r.FloodStatus, r.RecordedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetLatestReading(nodeID string) (*models.Reading, error) {
	row := s.db.QueryRow(`
		SELECT id, node_id, rain_analog, rain_intensity, water_distance_cm, flood_status, recorded_at, created_at
		FROM readings
		WHERE node_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, nodeID)

	var r models.Reading
	err := row.Scan(&r.ID, &r.NodeID, &r.RainAnalog, &r.RainIntensity, &r.WaterDistanceCM, &r.FloodStatus, &r.RecordedAt, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetReadings(nodeID string, start, end time.Time) ([]models.Reading, error) {
	rows, err := s.db.Query(`
		SELECT id, node_id, rain_analog, rain_intensity, water_distance_cm, flood_status, recorded_at, created_at
		FROM readings
		WHERE node_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC
	`, nodeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

// GetReadingsSince returns readings across all nodes with recorded_at at or
// after the cutoff, oldest first. This is the aggregator's input window.
func (s *Store) GetReadingsSince(cutoff time.Time) ([]models.Reading, error) {
	rows, err := s.db.Query(`
		SELECT id, node_id, rain_analog, rain_intensity, water_distance_cm, flood_status, recorded_at, created_at
		FROM readings
		WHERE recorded_at >= ?
		ORDER BY recorded_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]models.Reading, error) {
	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.ID, &r.NodeID, &r.RainAnalog, &r.RainIntensity, &r.WaterDistanceCM, &r.FloodStatus, &r.RecordedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// DeleteReadingsBefore purges readings older than the cutoff and reports how
// many rows were removed.
func (s *Store) DeleteReadingsBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM readings WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
