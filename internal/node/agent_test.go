package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSensors struct {
	mu     sync.Mutex
	sample Sample
	reads  int
}

func (f *fixedSensors) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.sample, nil
}

func (f *fixedSensors) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func TestAgentClassifiesAndPosts(t *testing.T) {
	posts := make(chan reading, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload reading
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		posts <- payload
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	sensors := &fixedSensors{sample: Sample{RainAnalog: 2180, DistanceCM: 9.5}}
	clock := clockwork.NewFakeClock()
	agent := New(Config{NodeID: "esp32-001", BackendURL: server.URL}, sensors, clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		agent.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(DefaultSamplePeriod)

	select {
	case payload := <-posts:
		assert.Equal(t, "esp32-001", payload.NodeID)
		assert.Equal(t, 2180, payload.RainAnalog)
		assert.Equal(t, "HEAVY", payload.RainIntensity)
		assert.Equal(t, "CRITICAL_FLOOD", payload.FloodStatus)
	case <-time.After(5 * time.Second):
		t.Fatal("no reading posted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not shut down")
	}
}

func TestAgentSubstitutesNoEchoSentinel(t *testing.T) {
	posts := make(chan reading, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload reading
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		posts <- payload
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	// Torrential rain but the rangefinder times out: the far sentinel must
	// keep this out of the critical band.
	sensors := &fixedSensors{sample: Sample{RainAnalog: 1200, DistanceCM: 3, NoEcho: true}}
	clock := clockwork.NewFakeClock()
	agent := New(Config{NodeID: "esp32-001", BackendURL: server.URL}, sensors, clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go agent.Run(ctx)

	clock.BlockUntil(1)
	clock.Advance(DefaultSamplePeriod)

	select {
	case payload := <-posts:
		assert.Equal(t, float64(400), payload.WaterDistanceCM)
		assert.Equal(t, "TORRENTIAL", payload.RainIntensity)
		assert.Equal(t, "RAIN_ALERT", payload.FloodStatus)
	case <-time.After(5 * time.Second):
		t.Fatal("no reading posted")
	}
}

func TestAgentKeepsSamplingWhenBackendDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connections now refused

	sensors := &fixedSensors{sample: Sample{RainAnalog: 3800, DistanceCM: 150}}
	clock := clockwork.NewFakeClock()
	agent := New(Config{NodeID: "esp32-001", BackendURL: server.URL}, sensors, clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go agent.Run(ctx)

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(DefaultSamplePeriod)
		require.Eventually(t, func() bool {
			return sensors.readCount() >= i+1
		}, 5*time.Second, 10*time.Millisecond)
	}

	assert.GreaterOrEqual(t, sensors.readCount(), 3)
}

func TestWaitForBackend(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	agent := New(Config{NodeID: "esp32-001", BackendURL: server.URL}, &fixedSensors{}, nil)
	err := agent.WaitForBackend(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 3)
}

func TestWaitForBackendCancelled(t *testing.T) {
	agent := New(Config{NodeID: "esp32-001", BackendURL: "http://127.0.0.1:1"}, &fixedSensors{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := agent.WaitForBackend(ctx)
	assert.Error(t, err)
}

func TestSimulatorStaysInRange(t *testing.T) {
	sim := NewSimulator(42)
	for i := 0; i < 10000; i++ {
		sample, err := sim.Read()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sample.RainAnalog, 0)
		assert.LessOrEqual(t, sample.RainAnalog, 4095)
		assert.GreaterOrEqual(t, sample.DistanceCM, 2.0)
		assert.LessOrEqual(t, sample.DistanceCM, 400.0)
	}
}
