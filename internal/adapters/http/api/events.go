// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/pulse/internal/domain/model"
)

// EventsHandler serves the recent-events read used by the onboarding
// live view and the dashboard.
type EventsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, maxLimit int) *EventsHandler {
	return &EventsHandler{deps: deps, maxLimit: maxLimit}
}

// eventJSON mirrors the read shape of a stored event.
type eventJSON struct {
	ID             string         `json:"id"`
	Event          string         `json:"event"`
	Timestamp      time.Time      `json:"timestamp"`
	CreatedAt      time.Time      `json:"created_at"`
	URL            string         `json:"url,omitempty"`
	Referrer       string         `json:"referrer,omitempty"`
	ReferrerDomain string         `json:"referrer_domain,omitempty"`
	DeviceType     string         `json:"device_type,omitempty"`
	OS             string         `json:"os,omitempty"`
	Browser        string         `json:"browser,omitempty"`
	Country        string         `json:"country,omitempty"`
	Region         string         `json:"region,omitempty"`
	Props          map[string]any `json:"props,omitempty"`
}

type eventsResponse struct {
	Success bool        `json:"success"`
	Events  []eventJSON `json:"events"`
}

// HandleRecentEvents handles GET /api/sites/{siteKey}/events requests.
func (h *EventsHandler) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	siteKey := chi.URLParam(r, "siteKey")

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, msgValidationError, []model.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	events, err := h.deps.RecentEvents(r.Context(), siteKey, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternalError, nil)
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:             e.ID,
			Event:          e.Event,
			Timestamp:      e.Timestamp,
			CreatedAt:      e.CreatedAt,
			URL:            e.URL,
			Referrer:       e.Referrer,
			ReferrerDomain: e.ReferrerDomain,
			DeviceType:     e.DeviceType,
			OS:             e.OS,
			Browser:        e.Browser,
			Country:        e.Country,
			Region:         e.Region,
			Props:          e.Props,
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: out})
}
