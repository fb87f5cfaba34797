package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	observed := time.Date(2026, 8, 14, 6, 30, 0, 0, time.UTC)
	rain := int64(2100)
	dist := 9.5
	ev := Event{
		NodeID:          "esp32-001",
		FloodStatus:     "CRITICAL_FLOOD",
		SeverityLevel:   4,
		RainAnalog:      &rain,
		WaterDistanceCM: &dist,
		ObservedAt:      observed,
	}

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("esp32-001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"flood_status":"CRITICAL_FLOOD"`)
	assert.Contains(t, string(msg.Value), `"severity_level":4`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "flood_status", msg.Headers[0].Key)
	assert.Equal(t, []byte("CRITICAL_FLOOD"), msg.Headers[0].Value)
	assert.Equal(t, "observed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(observed.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessageNullSensors(t *testing.T) {
	ev := Event{
		NodeID:      "esp32-002",
		FloodStatus: "FLOOD_RISK",
		ObservedAt:  time.Date(2026, 8, 14, 6, 30, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"rain_analog":null`)
	assert.Contains(t, string(msg.Value), `"water_distance_cm":null`)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	err := p.Publish(context.Background(), Event{NodeID: "esp32-001"})
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
}
