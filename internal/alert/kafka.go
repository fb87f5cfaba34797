package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Event is the payload fanned out to downstream alerting consumers whenever
// a node's flood status changes to an elevated level.
type Event struct {
	NodeID          string    `json:"node_id"`
	FloodStatus     string    `json:"flood_status"`
	SeverityLevel   int       `json:"severity_level"`
	RainAnalog      *int64    `json:"rain_analog"`
	WaterDistanceCM *float64  `json:"water_distance_cm"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Publisher produces alert events to a Kafka topic. A nil *Publisher is a
// valid no-op, so callers never need to branch on whether alerting is
// configured.
type Publisher struct {
	writer *kafkago.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil {
		return nil
	}
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

func serializeToMessage(ev Event) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.NodeID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "flood_status", Value: []byte(ev.FloodStatus)},
			{Key: "observed_at", Value: []byte(ev.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
