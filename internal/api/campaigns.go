package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/threesixtyvue/outreach/internal/aigen"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/httputil"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
)

// ListCampaigns returns all campaigns with steps and enrollment counts.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []*outreach.Campaign{}
	}
	httputil.OK(w, campaigns)
}

type createCampaignRequest struct {
	Name  string `json:"name"`
	Niche string `json:"niche"`
	City  string `json:"city"`
	State string `json:"state"`
}

// CreateCampaignDefault creates a campaign seeded with the default
// three-step sequence.
func (h *Handlers) CreateCampaignDefault(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.BadRequest(w, "Campaign name is required")
		return
	}

	steps := make([]stepInput, 0, len(outreach.DefaultSteps))
	for _, s := range outreach.DefaultSteps {
		steps = append(steps, stepInput{DayOffset: s.DayOffset, Subject: s.Subject, BodyHTML: s.BodyHTML})
	}
	h.createCampaign(w, r, req, steps)
}

type stepInput struct {
	DayOffset int    `json:"dayOffset"`
	Subject   string `json:"subject"`
	BodyHTML  string `json:"bodyHtml"`
}

type createCampaignExplicitRequest struct {
	createCampaignRequest
	Steps []stepInput `json:"steps"`
}

// CreateCampaignExplicit creates a campaign from caller-provided steps.
func (h *Handlers) CreateCampaignExplicit(w http.ResponseWriter, r *http.Request) {
	var req createCampaignExplicitRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.BadRequest(w, "Campaign name is required")
		return
	}
	if len(req.Steps) == 0 {
		httputil.BadRequest(w, "At least one email step is required")
		return
	}
	for _, step := range req.Steps {
		if strings.TrimSpace(step.Subject) == "" {
			httputil.BadRequest(w, "All email steps must have a subject")
			return
		}
		if strings.TrimSpace(step.BodyHTML) == "" {
			httputil.BadRequest(w, "All email steps must have content")
			return
		}
	}
	h.createCampaign(w, r, req.createCampaignRequest, req.Steps)
}

// createCampaign persists a campaign with its steps. Slug collisions are
// caught both by pre-check and by the unique constraint.
func (h *Handlers) createCampaign(w http.ResponseWriter, r *http.Request, req createCampaignRequest, steps []stepInput) {
	ctx := r.Context()
	slug := outreach.Slugify(req.Name)

	exists, err := h.store.SlugExists(ctx, slug)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if exists {
		httputil.Conflict(w, "A campaign with this name already exists")
		return
	}

	campaign := &outreach.Campaign{
		Name:  strings.TrimSpace(req.Name),
		Slug:  slug,
		Niche: req.Niche,
		City:  req.City,
		State: req.State,
	}
	if err := h.store.CreateCampaign(ctx, campaign); err != nil {
		if errors.Is(err, outreach.ErrDuplicateSlug) {
			httputil.Conflict(w, "A campaign with this name already exists")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	for _, s := range steps {
		step := &outreach.SequenceStep{
			CampaignID: campaign.ID,
			DayOffset:  s.DayOffset,
			Subject:    s.Subject,
			BodyHTML:   s.BodyHTML,
		}
		if err := h.store.CreateStep(ctx, step); err != nil {
			httputil.InternalError(w, err)
			return
		}
		campaign.Steps = append(campaign.Steps, step)
	}

	logger.Info("campaign created", "campaign_id", campaign.ID.String(), "slug", slug, "steps", len(steps))
	httputil.Created(w, campaign)
}

// GenerateCampaign asks the AI generator to draft a campaign. The draft
// is returned for review, not persisted.
func (h *Handlers) GenerateCampaign(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "AI campaign generation is not configured")
		return
	}

	var req aigen.Request
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Goal == "" || req.EmailCount == 0 || req.TargetAudience == "" {
		httputil.BadRequest(w, "Goal, email count, and target audience are required")
		return
	}

	draft, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, aigen.ErrBadModelJSON) {
			httputil.Error(w, http.StatusInternalServerError, "Failed to parse AI response. Please try again.")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, draft)
}
