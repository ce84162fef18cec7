package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (signal/score push to UI collaborators)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - analytic read surface
	mux.HandleFunc("/api/signals", s.app.APIHandler.SignalsHandler)
	mux.HandleFunc("/api/scores", s.app.APIHandler.ScoresHandler)
	mux.HandleFunc("/api/clusters", s.app.APIHandler.ClustersHandler)
	mux.HandleFunc("/api/alerts", s.app.APIHandler.AlertsHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)

	// API routes - collaborator ingest
	mux.HandleFunc("/api/ingest/news", s.app.IngestHandler.NewsHandler)
	mux.HandleFunc("/api/ingest/quotes", s.app.IngestHandler.QuotesHandler)
	mux.HandleFunc("/api/ingest/geo", s.app.IngestHandler.GeoEventsHandler)
	mux.HandleFunc("/api/ingest/detections", s.app.IngestHandler.DetectionsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
