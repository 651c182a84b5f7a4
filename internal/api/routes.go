package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Trade routes
	api.HandleFunc("/trades", handler.ListTrades).Methods("GET")
	api.HandleFunc("/trades", handler.CreateTrade).Methods("POST")
	api.HandleFunc("/trades/{id:[0-9]+}", handler.GetTrade).Methods("GET")
	api.HandleFunc("/trades/{id:[0-9]+}", handler.UpdateTrade).Methods("PUT")
	api.HandleFunc("/trades/{id:[0-9]+}", handler.DeleteTrade).Methods("DELETE")

	// Broker CSV import
	api.HandleFunc("/import", handler.ImportCSV).Methods("POST")

	// Analytics and rollups
	api.HandleFunc("/analytics/monthly", handler.MonthlyAnalytics).Methods("GET")
	api.HandleFunc("/analytics/hourly", handler.HourlyAnalytics).Methods("GET")
	api.HandleFunc("/metrics", handler.GetMetrics).Methods("GET")

	// Labels
	api.HandleFunc("/tags", handler.GetTags).Methods("GET")
	api.HandleFunc("/emotions", handler.GetEmotions).Methods("GET")

	return r
}
