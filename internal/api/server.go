package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rtorralba/floodwatch/internal/alert"
	"github.com/rtorralba/floodwatch/internal/store"
)

type Server struct {
	store  *store.Store
	alerts *alert.Publisher
	port   string
	loc    *time.Location
	tmpl   *template.Template
}

func NewServer(store *store.Store, alerts *alert.Publisher, port string, loc *time.Location) *Server {
	return &Server{
		store:  store,
		alerts: alerts,
		port:   port,
		loc:    loc,
		tmpl:   newTemplates(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/partials/chart", s.handleChartPartial)
	mux.HandleFunc("/api/sensor-data", s.handleSensorData)
	mux.HandleFunc("/api/risk", s.handleAPIRisk)
	mux.HandleFunc("/api/readings", s.handleAPIReadings)
	mux.HandleFunc("/api/nodes", s.handleAPINodes)
	mux.HandleFunc("/api/alerts", s.handleAPIAlerts)
	mux.HandleFunc("/api/summaries", s.handleAPISummaries)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
