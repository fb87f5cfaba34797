package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rtorralba/floodwatch/internal/models"
	"github.com/rtorralba/floodwatch/internal/risk"
)

// staleThreshold marks a node degraded when nothing has arrived for this
// long. At a 4 s sampling period this tolerates a few dozen dropped cycles.
const staleThreshold = 3 * time.Minute

type HealthStatus struct {
	Status string       `json:"status"`
	Nodes  []NodeHealth `json:"nodes"`
	Errors []string     `json:"errors,omitempty"`
}

type NodeHealth struct {
	NodeID     string    `json:"node_id"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
	AgeSeconds int       `json:"age_seconds"`
	Stale      bool      `json:"stale"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	nodes, err := s.store.GetActiveNodes()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := HealthStatus{
		Status: "ok",
		Nodes:  make([]NodeHealth, 0, len(nodes)),
	}
	now := time.Now()

	for _, n := range nodes {
		latest, err := s.store.GetLatestReading(n.NodeID)
		if err != nil {
			health.Errors = append(health.Errors, n.NodeID+": "+err.Error())
			continue
		}

		nh := NodeHealth{NodeID: n.NodeID}
		if latest != nil {
			nh.LastSeen = latest.RecordedAt
			nh.AgeSeconds = int(now.Sub(latest.RecordedAt).Seconds())
			nh.Stale = now.Sub(latest.RecordedAt) > staleThreshold
		} else {
			nh.Stale = true
			nh.AgeSeconds = -1
		}

		if nh.Stale {
			health.Status = "degraded"
		}
		health.Nodes = append(health.Nodes, nh)
	}

	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	json.NewEncoder(w).Encode(health)
}

// NodeRow is one dashboard row: node metadata next to its latest reading.
type NodeRow struct {
	Node   models.Node
	Latest *models.Reading
	Stale  bool
}

type IndexData struct {
	Rows        []NodeRow
	Risk        []NodeRisk
	Alerts      []models.FloodAlert
	LastUpdated time.Time
}

func (s *Server) getIndexData() (*IndexData, error) {
	nodes, err := s.store.GetActiveNodes()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	data := &IndexData{LastUpdated: now.In(s.loc)}

	for _, n := range nodes {
		latest, err := s.store.GetLatestReading(n.NodeID)
		if err != nil {
			log.Printf("api: latest reading %s: %v", n.NodeID, err)
			continue
		}
		row := NodeRow{Node: n, Latest: latest}
		if latest == nil || now.Sub(latest.RecordedAt) > staleThreshold {
			row.Stale = true
		}
		data.Rows = append(data.Rows, row)
	}

	data.Risk, err = s.getRiskSummaries(now, risk.DefaultWindow)
	if err != nil {
		return nil, err
	}

	data.Alerts, err = s.store.GetRecentAlerts(10)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := s.getIndexData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

type ChartData struct {
	NodeID string        `json:"node_id"`
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

type ChartSeries struct {
	Name  string    `json:"name"`
	Data  []float64 `json:"data"`
	Color string    `json:"color"`
}

func (s *Server) handleChartPartial(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("node")
	if nodeID == "" {
		http.Error(w, "node required", http.StatusBadRequest)
		return
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	readings, err := s.store.GetReadings(nodeID, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	chartData := ChartData{
		NodeID: nodeID,
		Labels: make([]string, 0, len(readings)),
		Series: []ChartSeries{
			{Name: "Rain analog", Data: make([]float64, 0, len(readings)), Color: "#4fc3f7"},
			{Name: "Water distance (cm)", Data: make([]float64, 0, len(readings)), Color: "#ffb74d"},
		},
	}

	for _, reading := range readings {
		if !reading.RainAnalog.Valid || !reading.WaterDistanceCM.Valid {
			continue
		}
		chartData.Labels = append(chartData.Labels, reading.RecordedAt.In(s.loc).Format("15:04"))
		chartData.Series[0].Data = append(chartData.Series[0].Data, float64(reading.RainAnalog.Int64))
		chartData.Series[1].Data = append(chartData.Series[1].Data, reading.WaterDistanceCM.Float64)
	}

	if err := s.tmpl.ExecuteTemplate(w, "chart.html", chartData); err != nil {
		log.Printf("api: template error: %v", err)
	}
}
