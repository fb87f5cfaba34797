package risk

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtorralba/floodwatch/internal/models"
)

func reading(nodeID string, rain int64, dist float64, at time.Time) models.Reading {
	return models.Reading{
		NodeID:          nodeID,
		RainAnalog:      sql.NullInt64{Int64: rain, Valid: true},
		WaterDistanceCM: sql.NullFloat64{Float64: dist, Valid: true},
		RecordedAt:      at,
	}
}

func TestAggregate_SingleNodeAverages(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		reading("A", 1700, 12, end.Add(-2*time.Hour)),
		reading("A", 1900, 18, end.Add(-1*time.Hour)),
	}

	summaries := Aggregate(readings, end, DefaultWindow)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "A", s.NodeID)
	assert.Equal(t, 2, s.TotalReadings)
	assert.Equal(t, 1800.0, s.AvgRainAnalog)
	assert.Equal(t, 15.0, s.AvgWaterDistance)
	assert.Equal(t, end.Add(-1*time.Hour), s.LastReadingTime)
	assert.Equal(t, 4, s.SeverityLevel)
}

func TestAggregate_WindowFilter(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		reading("A", 1000, 5, end.Add(-25*time.Hour)), // outside window
		reading("A", 3800, 120, end.Add(-1*time.Hour)),
	}

	summaries := Aggregate(readings, end, DefaultWindow)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].TotalReadings)
	assert.Equal(t, 3800.0, summaries[0].AvgRainAnalog)
	assert.Equal(t, 1, summaries[0].SeverityLevel)
}

func TestAggregate_EmptyWindow(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)

	summaries := Aggregate(nil, end, DefaultWindow)
	assert.Empty(t, summaries)

	old := []models.Reading{reading("A", 2000, 10, end.Add(-48*time.Hour))}
	summaries = Aggregate(old, end, DefaultWindow)
	assert.Empty(t, summaries)
}

func TestAggregate_RanksBySeverityDescending(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	at := end.Add(-time.Hour)
	readings := []models.Reading{
		reading("quiet", 3700, 150, at),
		reading("soaked", 1500, 8, at),
		reading("damp", 2600, 40, at),
	}

	summaries := Aggregate(readings, end, DefaultWindow)
	require.Len(t, summaries, 3)
	assert.Equal(t, "soaked", summaries[0].NodeID)
	assert.Equal(t, 4, summaries[0].SeverityLevel)
	assert.Equal(t, "damp", summaries[1].NodeID)
	assert.Equal(t, 3, summaries[1].SeverityLevel)
	assert.Equal(t, "quiet", summaries[2].NodeID)
	assert.Equal(t, 1, summaries[2].SeverityLevel)
}

func TestAggregate_Idempotent(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		reading("A", 2100, 14, end.Add(-3*time.Hour)),
		reading("B", 2100, 30, end.Add(-2*time.Hour)),
		reading("A", 2300, 16, end.Add(-1*time.Hour)),
	}

	first := Aggregate(readings, end, DefaultWindow)
	second := Aggregate(readings, end, DefaultWindow)
	assert.Equal(t, first, second)

	// Equal severity: ties must keep input grouping order on every run.
	require.Len(t, first, 2)
	assert.Equal(t, "A", first[0].NodeID)
	assert.Equal(t, "B", first[1].NodeID)
}

func TestAggregate_MalformedFieldsExcludedFromAverages(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	at := end.Add(-time.Hour)

	readings := []models.Reading{
		reading("A", 2000, 10, at),
		{NodeID: "A", WaterDistanceCM: sql.NullFloat64{Float64: 30, Valid: true}, RecordedAt: at}, // no rain value
		{NodeID: "A", RainAnalog: sql.NullInt64{Int64: 2200, Valid: true}, RecordedAt: at},        // no distance
	}

	summaries := Aggregate(readings, end, DefaultWindow)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, 3, s.TotalReadings)
	assert.Equal(t, 2100.0, s.AvgRainAnalog)
	assert.Equal(t, 20.0, s.AvgWaterDistance)
}

func TestAggregate_NoNumericDataDefaultsQuiet(t *testing.T) {
	end := time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		{NodeID: "A", FloodStatus: "NORMAL", RecordedAt: end.Add(-time.Hour)},
	}

	summaries := Aggregate(readings, end, DefaultWindow)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].SeverityLevel)
	assert.Zero(t, summaries[0].AvgRainAnalog)
}

func TestSeverityLevel_Boundaries(t *testing.T) {
	tests := []struct {
		avg  float64
		want int
	}{
		{avg: 0, want: 4},
		{avg: 1799.9, want: 4},
		{avg: 1800, want: 4},
		{avg: 1800.1, want: 3},
		{avg: 2399.9, want: 3},
		{avg: 2400, want: 2},
		{avg: 2999.9, want: 2},
		{avg: 3000, want: 1},
		{avg: 4095, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityLevel(tt.avg), "SeverityLevel(%v)", tt.avg)
	}
}

func TestPercent_Saturates(t *testing.T) {
	assert.Equal(t, 100, Percent(0))
	assert.Equal(t, 80, Percent(10))
	assert.Equal(t, 0, Percent(50))
	assert.Equal(t, 0, Percent(400))
}
