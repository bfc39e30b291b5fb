// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/okian/pulse/pkg/logger"
)

// SweepHandler exposes the temp-site expiry sweep for external
// schedulers. Authentication of the trigger is left to the deployment
// (network policy or fronting proxy).
type SweepHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewSweepHandler creates a new sweep handler.
func NewSweepHandler(deps Dependencies, log logger.Logger) *SweepHandler {
	return &SweepHandler{deps: deps, log: log}
}

type sweepResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

// HandleSweep handles POST /api/maintenance/sweep requests.
func (h *SweepHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	removed, err := h.deps.ExpireTempSites(ctx, time.Now().UTC())
	if err != nil {
		h.log.Error(ctx, "expiry sweep failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError, nil)
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Success: true, Removed: removed})
}
