// Package risk reduces a window of stored readings into a ranked per-node
// flood-risk summary. Aggregation is a pure function of its input: no shared
// state, safe to invoke concurrently.
package risk

import (
	"sort"
	"time"

	"github.com/rtorralba/floodwatch/internal/models"
)

// DefaultWindow is the trailing interval readings are aggregated over.
const DefaultWindow = 24 * time.Hour

// NodeSummary is the derived, ephemeral per-node risk summary. It is
// recomputed on every request and never persisted.
type NodeSummary struct {
	NodeID           string    `json:"node_id"`
	TotalReadings    int       `json:"total_readings"`
	AvgRainAnalog    float64   `json:"avg_rain_analog"`
	AvgWaterDistance float64   `json:"avg_water_distance"`
	LastReadingTime  time.Time `json:"last_reading_time"`
	SeverityLevel    int       `json:"max_flood_status_level"`
}

type group struct {
	nodeID   string
	count    int
	rainSum  float64
	rainN    int
	distSum  float64
	distN    int
	lastSeen time.Time
}

// Aggregate filters readings to the trailing window ending at windowEnd,
// groups them by node, averages the raw measurements and re-derives a coarse
// severity from the averaged rain value. The result is sorted by severity
// descending; ties keep the order nodes first appeared in the input, so
// identical input always produces identical output.
//
// A reading missing a numeric field is excluded from the average that field
// feeds but still counts toward the group's cardinality. One bad record
// degrades precision, not availability.
func Aggregate(readings []models.Reading, windowEnd time.Time, window time.Duration) []NodeSummary {
	cutoff := windowEnd.Add(-window)

	groups := make(map[string]*group)
	var order []string

	for _, r := range readings {
		if r.RecordedAt.Before(cutoff) {
			continue
		}
		g, ok := groups[r.NodeID]
		if !ok {
			g = &group{nodeID: r.NodeID}
			groups[r.NodeID] = g
			order = append(order, r.NodeID)
		}
		g.count++
		if r.RainAnalog.Valid {
			g.rainSum += float64(r.RainAnalog.Int64)
			g.rainN++
		}
		if r.WaterDistanceCM.Valid {
			g.distSum += r.WaterDistanceCM.Float64
			g.distN++
		}
		if r.RecordedAt.After(g.lastSeen) {
			g.lastSeen = r.RecordedAt
		}
	}

	summaries := make([]NodeSummary, 0, len(order))
	for _, nodeID := range order {
		g := groups[nodeID]
		s := NodeSummary{
			NodeID:          g.nodeID,
			TotalReadings:   g.count,
			LastReadingTime: g.lastSeen,
			SeverityLevel:   1,
		}
		if g.rainN > 0 {
			s.AvgRainAnalog = g.rainSum / float64(g.rainN)
			s.SeverityLevel = SeverityLevel(s.AvgRainAnalog)
		}
		if g.distN > 0 {
			s.AvgWaterDistance = g.distSum / float64(g.distN)
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SeverityLevel > summaries[j].SeverityLevel
	})
	return summaries
}

// Windowed severity boundaries over the averaged rain analog value. This is a
// deliberately coarser 4-level ladder than the per-reading intensity scale:
// it answers "how bad was the rain regime over the window", collapsing
// NO_RAIN and LIGHT into the same bottom level. Do not unify the two ladders.
const (
	severity4Max   = 1800
	severity3Below = 2400
	severity2Below = 3000
)

// SeverityLevel maps a window-averaged rain analog value onto the 4-level
// aggregate ladder: 4 is worst, 1 is quiet. The worst band is inclusive at
// its boundary: an average sitting exactly on it reads as the wetter level.
func SeverityLevel(avgRainAnalog float64) int {
	switch {
	case avgRainAnalog <= severity4Max:
		return 4
	case avgRainAnalog < severity3Below:
		return 3
	case avgRainAnalog < severity2Below:
		return 2
	default:
		return 1
	}
}

// Percent is the display-layer risk percentage derived from the averaged
// water distance alone. It saturates at both ends: 0 cm reads 100, anything
// at or beyond 50 cm reads 0.
func Percent(avgWaterDistanceCM float64) int {
	p := 100 - avgWaterDistanceCM*2
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
