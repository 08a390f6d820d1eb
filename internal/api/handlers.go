// Package api exposes the campaign, lead, and pipeline HTTP surface.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/threesixtyvue/outreach/internal/aigen"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/queue"
	"github.com/threesixtyvue/outreach/internal/scheduler"
	"github.com/threesixtyvue/outreach/internal/scraper"
	"github.com/threesixtyvue/outreach/internal/verify"
)

// Handlers contains all HTTP handlers and their collaborators.
type Handlers struct {
	store     *outreach.Store
	scheduler *scheduler.Scheduler
	queue     *queue.Queue
	verifier  *verify.Client
	generator *aigen.Generator
	runner    *scraper.Runner
}

// NewHandlers creates a Handlers instance. verifier, generator, and
// runner may be nil when the corresponding integration is disabled; their
// endpoints then answer 503.
func NewHandlers(store *outreach.Store, sched *scheduler.Scheduler, q *queue.Queue,
	verifier *verify.Client, generator *aigen.Generator, runner *scraper.Runner) *Handlers {
	return &Handlers{
		store:     store,
		scheduler: sched,
		queue:     q,
		verifier:  verifier,
		generator: generator,
		runner:    runner,
	}
}

// RegisterRoutes mounts every endpoint on r. Tracking endpoints live in
// their own package and are mounted by the server.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/campaigns", h.ListCampaigns)
	r.Post("/campaigns", h.CreateCampaignDefault)
	r.Post("/campaigns/create", h.CreateCampaignExplicit)
	r.Post("/campaigns/generate", h.GenerateCampaign)

	r.Post("/enroll", h.Enroll)
	r.Post("/send/tick", h.Tick)

	r.Get("/leads", h.ListLeads)
	r.Post("/leads/import", h.ImportLeads)
	r.Delete("/leads/bulk-delete", h.BulkDeleteLeads)
	r.Get("/leads/cleanup", h.CleanupPreview)
	r.Delete("/leads/cleanup", h.CleanupExecute)

	r.Post("/verify-email", h.VerifyEmail)
	r.Get("/verify-email", h.VerificationCredits)
	r.Post("/verify-emails-bulk", h.VerifyEmailsBulk)

	r.Post("/scrape", h.Scrape)
	r.Post("/scrape-stream", h.ScrapeStream)

	r.Get("/sends", h.ListSends)
	r.Get("/health", h.Health)
}
