package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rtorralba/floodwatch/internal/alert"
	"github.com/rtorralba/floodwatch/internal/classify"
	"github.com/rtorralba/floodwatch/internal/metrics"
	"github.com/rtorralba/floodwatch/internal/models"
)

// sensorPayload is the wire format nodes POST. The raw measurements and the
// timestamp are optional; labels posted alongside raws are advisory only and
// are re-derived server-side.
type sensorPayload struct {
	NodeID          string     `json:"node_id"`
	RainAnalog      *int       `json:"rain_analog"`
	RainIntensity   string     `json:"rain_intensity"`
	WaterDistanceCM *float64   `json:"water_distance_cm"`
	FloodStatus     string     `json:"flood_status"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	defer func() {
		metrics.IngestLatency.Observe(time.Since(start).Seconds())
	}()

	var payload sensorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.ReadingsRejected.WithLabelValues("bad_json").Inc()
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.NodeID == "" {
		metrics.ReadingsRejected.WithLabelValues("missing_node_id").Inc()
		http.Error(w, "node_id required", http.StatusBadRequest)
		return
	}
	if payload.RainAnalog != nil && (*payload.RainAnalog < 0 || *payload.RainAnalog > classify.MaxRainAnalog) {
		metrics.ReadingsRejected.WithLabelValues("rain_out_of_range").Inc()
		http.Error(w, "rain_analog out of ADC range", http.StatusBadRequest)
		return
	}
	if payload.WaterDistanceCM != nil && *payload.WaterDistanceCM < 0 {
		metrics.ReadingsRejected.WithLabelValues("distance_out_of_range").Inc()
		http.Error(w, "water_distance_cm must be non-negative", http.StatusBadRequest)
		return
	}

	reading := models.Reading{
		NodeID:     payload.NodeID,
		RecordedAt: time.Now().UTC(),
	}
	if payload.Timestamp != nil {
		reading.RecordedAt = payload.Timestamp.UTC()
	}
	if payload.RainAnalog != nil {
		reading.RainAnalog = sql.NullInt64{Int64: int64(*payload.RainAnalog), Valid: true}
	}
	if payload.WaterDistanceCM != nil {
		dist := *payload.WaterDistanceCM
		// Beyond the no-echo sentinel means "nothing in range".
		if dist > classify.NoEchoDistanceCM {
			dist = classify.NoEchoDistanceCM
		}
		reading.WaterDistanceCM = sql.NullFloat64{Float64: dist, Valid: true}
	}

	s.deriveLabels(&reading, payload)

	if err := s.store.RegisterNode(payload.NodeID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id, err := s.store.InsertReading(reading)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReadingsIngested.WithLabelValues(reading.NodeID, reading.FloodStatus).Inc()

	if classify.FloodStatus(reading.FloodStatus).Level() >= classify.StatusFloodRisk.Level() {
		s.recordAlert(reading)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "id": id})
}

// deriveLabels fills the reading's classification labels. When both raw
// measurements are present the labels are computed here and any conflicting
// posted label is logged, not trusted. Posted labels are only accepted
// verbatim when the raws that would reproduce them are missing.
func (s *Server) deriveLabels(reading *models.Reading, payload sensorPayload) {
	if reading.RainAnalog.Valid {
		intensity := classify.Rain(int(reading.RainAnalog.Int64))
		if payload.RainIntensity != "" {
			if posted, ok := classify.ParseRainIntensity(payload.RainIntensity); !ok || posted != intensity {
				log.Printf("api: node %s posted rain_intensity %q, derived %s", payload.NodeID, payload.RainIntensity, intensity)
			}
		}
		reading.RainIntensity = string(intensity)
	} else if posted, ok := classify.ParseRainIntensity(payload.RainIntensity); ok {
		reading.RainIntensity = string(posted)
	}

	if reading.RainAnalog.Valid && reading.WaterDistanceCM.Valid {
		status := classify.Flood(int(reading.RainAnalog.Int64), reading.WaterDistanceCM.Float64)
		if payload.FloodStatus != "" {
			if posted, ok := classify.ParseFloodStatus(payload.FloodStatus); !ok || posted != status {
				log.Printf("api: node %s posted flood_status %q, derived %s", payload.NodeID, payload.FloodStatus, status)
			}
		}
		reading.FloodStatus = string(status)
	} else if posted, ok := classify.ParseFloodStatus(payload.FloodStatus); ok {
		reading.FloodStatus = string(posted)
	}
}

// recordAlert appends to the alert log and, when a new alert opens and a
// publisher is configured, fans the event out. Publishing happens off the
// request path so a slow broker never delays ingest.
func (s *Server) recordAlert(reading models.Reading) {
	a, created, err := s.store.RecordAlert(reading)
	if err != nil {
		log.Printf("api: record alert for %s: %v", reading.NodeID, err)
		return
	}
	if !created {
		return
	}
	metrics.AlertsRecorded.WithLabelValues(a.NodeID, a.FloodStatus).Inc()
	log.Printf("api: alert opened: node=%s status=%s", a.NodeID, a.FloodStatus)

	if s.alerts == nil {
		return
	}
	ev := alert.Event{
		NodeID:        a.NodeID,
		FloodStatus:   a.FloodStatus,
		SeverityLevel: classify.FloodStatus(a.FloodStatus).Level(),
		ObservedAt:    a.FirstSeenAt,
	}
	if a.RainAnalog.Valid {
		rain := a.RainAnalog.Int64
		ev.RainAnalog = &rain
	}
	if a.WaterDistanceCM.Valid {
		dist := a.WaterDistanceCM.Float64
		ev.WaterDistanceCM = &dist
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.alerts.Publish(ctx, ev); err != nil {
			metrics.AlertPublishErrors.Inc()
			log.Printf("api: publish alert for %s: %v", ev.NodeID, err)
		}
	}()
}
