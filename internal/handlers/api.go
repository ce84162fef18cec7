package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/common"
	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/pipeline"
)

// APIHandler serves the analytic read surface: signals, scores, clusters and
// alerts from the most recently committed cycle, plus version/health/status.
type APIHandler struct {
	pipeline  *pipeline.Pipeline
	storage   interfaces.StorageManager
	logger    arbor.ILogger
	startedAt time.Time
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(p *pipeline.Pipeline, storage interfaces.StorageManager, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		pipeline:  p,
		storage:   storage,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// SignalsHandler returns recently fired signals, newest first.
// GET /api/signals?limit=N
func (h *APIHandler) SignalsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := QueryInt(r, "limit", 50)
	signals, err := h.storage.SignalStorage().Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list signals")
		WriteError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(signals),
		"signals": signals,
	})
}

// ScoresHandler returns the latest committed country scores.
// GET /api/scores
func (h *APIHandler) ScoresHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	scores, err := h.storage.ScoreStorage().List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list scores")
		WriteError(w, http.StatusInternalServerError, "failed to list scores")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(scores),
		"scores": scores,
	})
}

// ClustersHandler returns the last cycle's news clusters.
// GET /api/clusters
func (h *APIHandler) ClustersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snap := h.pipeline.Latest()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(snap.Clusters),
		"clusters": snap.Clusters,
	})
}

// AlertsHandler returns the last cycle's convergence alerts.
// GET /api/alerts
func (h *APIHandler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snap := h.pipeline.Latest()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(snap.Alerts),
		"alerts": snap.Alerts,
	})
}

// StatusHandler returns the last cycle summary and ingest backlog.
// GET /api/status
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snap := h.pipeline.Latest()
	news, quotes, geoEvents, detections := h.pipeline.Gateway().Pending()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"uptime":     time.Since(h.startedAt).String(),
		"last_cycle": snap.Summary,
		"pending": map[string]int{
			"news":       news,
			"quotes":     quotes,
			"geo_events": geoEvents,
			"detections": detections,
		},
	})
}

// VersionHandler returns build information.
// GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetFullVersion(),
	})
}

// HealthHandler reports liveness.
// GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFoundHandler handles unmatched API routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not found")
}
