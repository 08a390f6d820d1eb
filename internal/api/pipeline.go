package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httputil"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
	"github.com/threesixtyvue/outreach/internal/scheduler"
)

type enrollRequest struct {
	LeadIDs    []uuid.UUID `json:"leadIds"`
	CampaignID *uuid.UUID  `json:"campaignId"`
}

// Enroll places leads into a campaign and queues the initial step.
func (h *Handlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.LeadIDs) == 0 || req.CampaignID == nil {
		httputil.BadRequest(w, "leadIds and campaignId are required")
		return
	}

	result, err := h.scheduler.Enroll(r.Context(), req.LeadIDs, *req.CampaignID)
	switch {
	case errors.Is(err, scheduler.ErrCampaignNotFound):
		httputil.NotFound(w, "campaign not found")
		return
	case errors.Is(err, scheduler.ErrNoSteps):
		httputil.BadRequest(w, "campaign has no steps")
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	logger.Info("enrollment finished", "enrolled", result.Enrolled, "campaign_id", req.CampaignID.String())
	httputil.OK(w, map[string]any{"ok": true, "enrolled": result.Enrolled, "orphaned": result.Orphaned})
}

// Tick runs one due-step pass immediately. A pass already in flight on
// another process answers 409.
func (h *Handlers) Tick(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.Tick(r.Context())
	if errors.Is(err, scheduler.ErrTickBusy) {
		httputil.Conflict(w, "A tick is already running")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"ok": true, "created": result.Created, "orphaned": result.Orphaned})
}

// ListSends returns recent outbound emails, newest first.
func (h *Handlers) ListSends(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sends, err := h.store.ListOutbound(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sends == nil {
		sends = []*outreach.OutboundEmail{}
	}
	httputil.OK(w, sends)
}

// Health reports database reachability and queue depths.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "ok"
	if err := h.store.DB().PingContext(ctx); err != nil {
		dbStatus = "unreachable"
	}

	resp := map[string]any{
		"status":   "ok",
		"database": dbStatus,
	}
	if h.queue != nil {
		stats, err := h.queue.Stats(ctx)
		if err != nil {
			resp["queue"] = "unreachable"
		} else {
			resp["queue"] = stats
		}
	}
	if dbStatus != "ok" {
		resp["status"] = "degraded"
		httputil.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	httputil.OK(w, resp)
}
