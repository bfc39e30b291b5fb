// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	app "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/internal/domain/validate"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Response messages on the wire, stable for client SDKs.
const (
	msgMalformedPayload = "Malformed payload"
	msgValidationError  = "Validation error"
	msgSiteNotFound     = "Site not found"
	msgDomainNotAllowed = "Domain not allowed"
	msgInternalError    = "Internal server error"
)

// CollectHandler handles event submission requests.
type CollectHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	log          logger.Logger
}

// NewCollectHandler creates a new collect handler.
func NewCollectHandler(deps Dependencies, maxBodyBytes int64, log logger.Logger) *CollectHandler {
	return &CollectHandler{deps: deps, maxBodyBytes: maxBodyBytes, log: log}
}

// HandleCollect handles POST /api/event requests. Every branch produces a
// structured response; a 200 is only written after the event is durably
// stored.
func (h *CollectHandler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics.RecordEventReceived()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		metrics.RecordEventRejected(types.KindMalformedPayload)
		writeError(w, http.StatusBadRequest, msgMalformedPayload, nil)
		return
	}

	e, fieldErrs, err := validate.Event(body, time.Now().UTC())
	if err != nil {
		metrics.RecordEventRejected(types.KindMalformedPayload)
		writeError(w, http.StatusBadRequest, msgMalformedPayload, nil)
		return
	}
	if len(fieldErrs) > 0 {
		metrics.RecordEventRejected(types.KindValidationError)
		writeError(w, http.StatusBadRequest, msgValidationError, fieldErrs)
		return
	}

	stored, err := h.deps.Collect(ctx, e, requestContext(r))
	switch {
	case errors.Is(err, app.ErrUnknownSite):
		metrics.RecordEventRejected(types.KindUnknownSite)
		writeError(w, http.StatusNotFound, msgSiteNotFound, nil)
		return
	case errors.Is(err, app.ErrDomainNotAllowed):
		metrics.RecordEventRejected(types.KindDomainNotAllowed)
		writeError(w, http.StatusForbidden, msgDomainNotAllowed, nil)
		return
	case err != nil:
		metrics.RecordEventRejected(types.KindStorageFailure)
		h.log.Error(ctx, "event lost: store failed",
			logger.String("site", e.Site),
			logger.String("event", e.Event),
			logger.String("timestamp", e.Timestamp.Format(time.RFC3339)),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError, nil)
		return
	}

	metrics.RecordEventAccepted()
	siteType := "permanent"
	if stored.IsTemp {
		siteType = "temp"
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Type: siteType})
}

// requestContext captures the transport metadata the pipeline needs.
// Header keys are canonical MIME names, as stored by net/http.
func requestContext(r *http.Request) model.RequestContext {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return model.RequestContext{
		Origin:    r.Header.Get("Origin"),
		Referer:   r.Referer(),
		UserAgent: r.UserAgent(),
		Headers:   headers,
	}
}
