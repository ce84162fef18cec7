package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
	"github.com/halcyonlabs/meridian/internal/pipeline"
)

// IngestHandler accepts typed batches from the fetch collaborators and hands
// them to the pipeline gateway. Validation is structural only; analytic
// filtering happens inside the cycle.
type IngestHandler struct {
	gateway *pipeline.Gateway
	logger  arbor.ILogger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(gateway *pipeline.Gateway, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{gateway: gateway, logger: logger}
}

// NewsHandler accepts a news batch.
// POST /api/ingest/news
func (h *IngestHandler) NewsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var items []models.NewsItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid news payload")
		return
	}
	for i, item := range items {
		if item.ID == "" || item.Title == "" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("news item %d missing id or title", i))
			return
		}
		if !item.SourceType.IsValid() {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("news item %d has unknown source type %q", i, item.SourceType))
			return
		}
	}

	h.accept(w, len(items), "news", h.gateway.AddNews(items))
}

// QuotesHandler accepts a market quote batch.
// POST /api/ingest/quotes
func (h *IngestHandler) QuotesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var quotes []models.MarketQuote
	if err := json.NewDecoder(r.Body).Decode(&quotes); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid quotes payload")
		return
	}
	for i, q := range quotes {
		if q.Symbol == "" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("quote %d missing symbol", i))
			return
		}
	}

	h.accept(w, len(quotes), "quotes", h.gateway.AddQuotes(quotes))
}

// GeoEventsHandler accepts a geo event batch.
// POST /api/ingest/geo
func (h *IngestHandler) GeoEventsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var events []models.GeoEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid geo payload")
		return
	}
	for i, ev := range events {
		if !ev.Kind.IsValid() {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("geo event %d has unknown kind %q", i, ev.Kind))
			return
		}
	}

	h.accept(w, len(events), "geo", h.gateway.AddGeoEvents(events))
}

// DetectionsHandler accepts pre-classified detections from upstream
// collaborators.
// POST /api/ingest/detections
func (h *IngestHandler) DetectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var detections []models.Detection
	if err := json.NewDecoder(r.Body).Decode(&detections); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid detections payload")
		return
	}
	for i, det := range detections {
		if !det.Kind.IsValid() || det.SubjectKey == "" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("detection %d malformed", i))
			return
		}
	}

	h.accept(w, len(detections), "detections", h.gateway.AddDetections(detections))
}

func (h *IngestHandler) accept(w http.ResponseWriter, count int, family string, err error) {
	switch {
	case err == nil:
		WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"status":   "accepted",
			"accepted": count,
		})
	case errors.Is(err, interfaces.ErrBatchTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, interfaces.ErrThrottled):
		WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error().Err(err).Str("family", family).Msg("Ingest failed")
		WriteError(w, http.StatusInternalServerError, "ingest failed")
	}
}
