// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// Default endpoint configuration constants.
const (
	defaultMaxBodyBytes   = 64 << 10
	defaultRecentLimit    = 20
	defaultMaxRecentLimit = 100
	corsMaxAgeSeconds     = 86400
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Collect runs the ingestion pipeline for one validated event.
	Collect(ctx context.Context, e model.IncomingEvent, rc model.RequestContext) (model.StoredEvent, error)

	// RecentEvents returns the newest stored events for a site.
	RecentEvents(ctx context.Context, siteKey string, limit int) ([]model.StoredEvent, error)

	// ExpireTempSites runs the temp-site expiry sweep.
	ExpireTempSites(ctx context.Context, now time.Time) (int, error)
}

// Server wires HTTP routes for the collection API.
type Server struct {
	collectHandler *CollectHandler
	eventsHandler  *EventsHandler
	sweepHandler   *SweepHandler
	healthHandler  *HealthHandler

	maxBodyBytes   int64
	maxRecentLimit int
	log            logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps the accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMaxRecentLimit caps the limit parameter of the recent-events read.
func WithMaxRecentLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRecentLimit = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxBodyBytes:   defaultMaxBodyBytes,
		maxRecentLimit: defaultMaxRecentLimit,
		log:            logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.collectHandler = NewCollectHandler(deps, s.maxBodyBytes, s.log)
	s.eventsHandler = NewEventsHandler(deps, s.maxRecentLimit)
	s.sweepHandler = NewSweepHandler(deps, s.log)
	s.healthHandler = NewHealthHandler()
	return s
}

// Router builds the route tree. CORS is permissive on purpose: it only
// governs whether a page script may read the response, while access
// control happens server-side in the domain guard and cannot be bypassed
// by the client.
func (s *Server) Router(_ context.Context) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         corsMaxAgeSeconds,
	}))

	r.Post("/api/event", MetricsMiddleware(s.collectHandler.HandleCollect, "collect"))
	r.Get("/api/sites/{siteKey}/events", MetricsMiddleware(s.eventsHandler.HandleRecentEvents, "recent_events"))
	r.Post("/api/maintenance/sweep", MetricsMiddleware(s.sweepHandler.HandleSweep, "sweep"))
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))

	// The CORS middleware only intercepts OPTIONS carrying a preflight
	// method header. Beacon clients sometimes send a bare OPTIONS; those
	// must still get a 200 with the permissive origin, never a 405.
	for _, route := range []string{
		"/api/event",
		"/api/sites/{siteKey}/events",
		"/api/maintenance/sweep",
		"/healthz",
	} {
		r.Options(route, MetricsMiddleware(handleOptions, "options"))
	}

	return r
}

// handleOptions answers non-preflight OPTIONS requests.
func handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
}

type successResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type,omitempty"`
}

type errorResponse struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}

// writeJSON writes v with permissive CORS headers. Beacons may arrive
// without an Origin header, in which case the CORS middleware stays
// silent; setting the header here keeps every response readable by
// browser scripts regardless of transport.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details []model.FieldError) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Details: details})
}
