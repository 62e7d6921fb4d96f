package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Telemetry
	api.HandleFunc("/stats", s.StatsHandler.HandleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/{channel}", s.StatsHandler.HandleGetChannel).Methods(http.MethodGet)
	api.HandleFunc("/scan", s.StatsHandler.HandleScan).Methods(http.MethodGet)

	// Reports
	limited := middleware.RateLimitMiddleware(s.reportLimiter)
	api.Handle("/reports", limited(http.HandlerFunc(s.ReportHandler.HandleRequestReport))).Methods(http.MethodPost)
	api.HandleFunc("/reports", s.ReportHandler.HandleListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", s.ReportHandler.HandleGetReport).Methods(http.MethodGet)

	// Live push
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
