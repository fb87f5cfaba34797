package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rtorralba/floodwatch/internal/risk"
)

// NodeRisk is the wire shape of one aggregated node: the windowed summary
// plus the display-layer risk percentage.
type NodeRisk struct {
	risk.NodeSummary
	RiskPercent int `json:"risk_percent"`
}

func (s *Server) getRiskSummaries(now time.Time, window time.Duration) ([]NodeRisk, error) {
	readings, err := s.store.GetReadingsSince(now.Add(-window))
	if err != nil {
		return nil, err
	}
	summaries := risk.Aggregate(readings, now, window)
	out := make([]NodeRisk, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, NodeRisk{
			NodeSummary: sum,
			RiskPercent: risk.Percent(sum.AvgWaterDistance),
		})
	}
	return out, nil
}

func (s *Server) handleAPIRisk(w http.ResponseWriter, r *http.Request) {
	window := risk.DefaultWindow
	if h := r.URL.Query().Get("hours"); h != "" {
		hours, err := strconv.Atoi(h)
		if err != nil || hours <= 0 {
			http.Error(w, "invalid hours", http.StatusBadRequest)
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	summaries, err := s.getRiskSummaries(time.Now(), window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

func (s *Server) handleAPIReadings(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("node")
	if nodeID == "" {
		http.Error(w, "node required", http.StatusBadRequest)
		return
	}

	hours := 24
	if h := r.URL.Query().Get("hours"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid hours", http.StatusBadRequest)
			return
		}
		hours = parsed
	}

	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.GetReadings(nodeID, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

func (s *Server) handleAPINodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.GetActiveNodes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nodes)
}

func (s *Server) handleAPIAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	alerts, err := s.store.GetRecentAlerts(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

func (s *Server) handleAPISummaries(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("node")
	if nodeID == "" {
		http.Error(w, "node required", http.StatusBadRequest)
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	summaries, err := s.store.GetNodeDailySummaries(nodeID, days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}
