package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/rtorralba/floodwatch/internal/classify"
)

// DefaultSamplePeriod matches the node firmware's sensing cycle.
const DefaultSamplePeriod = 4 * time.Second

type Config struct {
	NodeID       string
	BackendURL   string
	SamplePeriod time.Duration
	HTTPTimeout  time.Duration
}

type Agent struct {
	cfg     Config
	sensors Sensors
	clock   clockwork.Clock
	client  *http.Client
}

// New builds an agent. A nil clock means real time; tests inject a fake.
func New(cfg Config, sensors Sensors, clock clockwork.Clock) *Agent {
	if cfg.SamplePeriod <= 0 {
		cfg.SamplePeriod = DefaultSamplePeriod
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 3 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Agent{
		cfg:     cfg,
		sensors: sensors,
		clock:   clock,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// WaitForBackend probes the backend's health endpoint with exponential
// backoff until it answers or the context is cancelled. This only runs at
// startup; once sampling begins there is no retrying, each cycle sends its
// own reading or drops it.
func (a *Agent) WaitForBackend(ctx context.Context) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", a.cfg.BackendURL+"/health", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return fmt.Errorf("probe backend: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("probe backend: status %d", resp.StatusCode)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	log.Printf("node: backend reachable at %s", a.cfg.BackendURL)
	return nil
}

// Run samples, classifies and transmits on a fixed cycle until the context
// is cancelled.
func (a *Agent) Run(ctx context.Context) {
	ticker := a.clock.NewTicker(a.cfg.SamplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("node: shutting down")
			return
		case <-ticker.Chan():
			a.cycle()
		}
	}
}

type reading struct {
	NodeID          string  `json:"node_id"`
	RainAnalog      int     `json:"rain_analog"`
	RainIntensity   string  `json:"rain_intensity"`
	WaterDistanceCM float64 `json:"water_distance_cm"`
	FloodStatus     string  `json:"flood_status"`
}

func (a *Agent) cycle() {
	sample, err := a.sensors.Read()
	if err != nil {
		log.Printf("node: read sensors: %v", err)
		return
	}

	distance := sample.DistanceCM
	if sample.NoEcho {
		distance = classify.NoEchoDistanceCM
	}
	intensity, status := classify.Classify(sample.RainAnalog, distance)
	log.Printf("node: rain=%d (%s) distance=%.1fcm status=%s", sample.RainAnalog, intensity, distance, status)

	r := reading{
		NodeID:          a.cfg.NodeID,
		RainAnalog:      sample.RainAnalog,
		RainIntensity:   string(intensity),
		WaterDistanceCM: distance,
		FloodStatus:     string(status),
	}
	// Fire-and-forget: the client timeout bounds the attempt and a failure
	// is dropped, never carried into the next cycle.
	go func() {
		if err := a.send(r); err != nil {
			log.Printf("node: send reading: %v", err)
		}
	}()
}

func (a *Agent) send(r reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	req, err := http.NewRequest("POST", a.cfg.BackendURL+"/api/sensor-data", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend status %d", resp.StatusCode)
	}
	return nil
}
