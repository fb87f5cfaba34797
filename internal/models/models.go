package models

import (
	"database/sql"
	"time"
)

type Node struct {
	NodeID    string
	Name      string
	Location  string
	Latitude  float64
	Longitude float64
	IsPrimary bool
	Active    bool
}

// Reading is one immutable sample from one node. The raw measurements are
// nullable at the store boundary: a record that arrives without a numeric
// field is kept, but the missing field never contributes to aggregates.
type Reading struct {
	ID              int64
	NodeID          string
	RainAnalog      sql.NullInt64
	RainIntensity   string
	WaterDistanceCM sql.NullFloat64
	FloodStatus     string
	RecordedAt      time.Time
	CreatedAt       time.Time
}

type NodeDailySummary struct {
	Date               time.Time
	NodeID             string
	ReadingCount       int
	AvgRainAnalog      sql.NullFloat64
	MinRainAnalog      sql.NullInt64
	AvgWaterDistanceCM sql.NullFloat64
	MinWaterDistanceCM sql.NullFloat64
	WorstFloodStatus   sql.NullString
}

// FloodAlert is one row of the alert log. Consecutive readings at the same
// elevated status extend LastSeenAt instead of inserting a new row.
type FloodAlert struct {
	ID              int64
	NodeID          string
	FloodStatus     string
	RainAnalog      sql.NullInt64
	WaterDistanceCM sql.NullFloat64
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	ReadingCount    int64
}
