// Package scheduler materializes due sequence steps into outbound emails
// and hands them to the delivery queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/distlock"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
	"github.com/threesixtyvue/outreach/internal/queue"
)

var (
	// ErrTickBusy means another process holds the tick lock.
	ErrTickBusy = errors.New("tick already running")

	// ErrCampaignNotFound is returned by Enroll for an unknown campaign.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrNoSteps is returned by Enroll when the campaign has no steps.
	ErrNoSteps = errors.New("campaign has no steps")
)

const (
	// tickSendDelay staggers queue delivery slightly behind materialization.
	tickSendDelay = 500 * time.Millisecond

	// enrollSendDelay delays the step-0 send after enrollment.
	enrollSendDelay = time.Second
)

// Scheduler runs the due-step tick and lead enrollment.
type Scheduler struct {
	store         *outreach.Store
	queue         *queue.Queue
	lock          distlock.DistLock
	baseURL       string
	schedulerLink string

	now func() time.Time
}

// New creates a scheduler. lock serializes tick execution across
// processes; baseURL is the public address baked into unsubscribe links.
func New(store *outreach.Store, q *queue.Queue, lock distlock.DistLock, baseURL, schedulerLink string) *Scheduler {
	if schedulerLink == "" {
		schedulerLink = "Calendly"
	}
	return &Scheduler{
		store:         store,
		queue:         q,
		lock:          lock,
		baseURL:       strings.TrimRight(baseURL, "/"),
		schedulerLink: schedulerLink,
		now:           time.Now,
	}
}

// TickResult reports what one tick did.
type TickResult struct {
	Created int `json:"created"`

	// Orphaned lists outbound rows that persisted but could not be
	// queued; they will never send without operator action.
	Orphaned []uuid.UUID `json:"orphaned,omitempty"`
}

// buildVars assembles the template variables for one lead.
func (s *Scheduler) buildVars(contactName, companyName, email string) map[string]string {
	return map[string]string{
		"firstname": outreach.FirstName(contactName),
		"company":   companyName,
		"scheduler": s.schedulerLink,
		"unsub":     fmt.Sprintf("%s/api/track/unsub?e=%s", s.baseURL, url.QueryEscape(email)),
	}
}

// Tick scans every enrollment and materializes each step whose due date
// (start date + day offset, in calendar days) has passed and that has no
// outbound email yet. The (lead_id, step_id) insert is atomic, so a
// concurrent or repeated tick cannot double-materialize.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire tick lock: %w", err)
	}
	if !ok {
		return nil, ErrTickBusy
	}
	defer func() {
		if err := s.lock.Release(context.Background()); err != nil {
			log.Printf("[Scheduler] Failed to release tick lock: %v", err)
		}
	}()

	enrollments, err := s.store.ListEnrollmentsForTick(ctx)
	if err != nil {
		return nil, err
	}
	stepsByCampaign, err := s.store.ListAllSteps(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &TickResult{}
	for _, en := range enrollments {
		vars := s.buildVars(en.ContactName, en.CompanyName, en.LeadEmail)
		for _, step := range stepsByCampaign[en.CampaignID] {
			due := en.StartDate.AddDate(0, 0, step.DayOffset)
			if due.After(now) {
				continue
			}

			oe := &outreach.OutboundEmail{
				LeadID:     en.LeadID,
				CampaignID: en.CampaignID,
				StepID:     step.ID,
				Subject:    outreach.Render(step.Subject, vars),
				BodyHTML:   outreach.Render(step.BodyHTML, vars),
			}
			created, err := s.store.InsertOutboundIfAbsent(ctx, oe)
			if err != nil {
				return result, err
			}
			if !created {
				continue
			}
			result.Created++

			if err := s.queue.Enqueue(ctx, oe.ID.String(), tickSendDelay); err != nil {
				// The row exists but will never send. Surface it.
				logger.Error("outbound email persisted but not queued",
					"outbound_id", oe.ID.String(), "error", err.Error())
				result.Orphaned = append(result.Orphaned, oe.ID)
			}
		}
	}
	return result, nil
}

// EnrollResult reports an enrollment batch.
type EnrollResult struct {
	Enrolled int         `json:"enrolled"`
	Orphaned []uuid.UUID `json:"orphaned,omitempty"`
}

// Enroll places leads into a campaign and materializes the initial step
// (day offset 0, or the first step) inside one transaction per lead.
// Missing leads are skipped. Duplicate enrollment of the same lead is not
// guarded, matching product behavior; the step-0 send still materializes
// at most once per (lead, step).
func (s *Scheduler) Enroll(ctx context.Context, leadIDs []uuid.UUID, campaignID uuid.UUID) (*EnrollResult, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if len(campaign.Steps) == 0 {
		return nil, ErrNoSteps
	}

	step0 := campaign.Steps[0]
	for _, st := range campaign.Steps {
		if st.DayOffset == 0 {
			step0 = st
			break
		}
	}

	result := &EnrollResult{}
	for _, leadID := range leadIDs {
		lead, err := s.store.GetLead(ctx, leadID)
		if err != nil {
			return result, err
		}
		if lead == nil {
			continue
		}

		vars := s.buildVars(lead.ContactName, lead.Company.Name, lead.Email)
		oe := &outreach.OutboundEmail{
			LeadID:     leadID,
			CampaignID: campaignID,
			StepID:     step0.ID,
			Subject:    outreach.Render(step0.Subject, vars),
			BodyHTML:   outreach.Render(step0.BodyHTML, vars),
		}
		enrollment := &outreach.Enrollment{LeadID: leadID, CampaignID: campaignID, StartDate: s.now()}

		created, err := s.store.EnrollLeadTx(ctx, enrollment, oe)
		if err != nil {
			return result, err
		}
		result.Enrolled++
		if !created {
			continue
		}
		if err := s.queue.Enqueue(ctx, oe.ID.String(), enrollSendDelay); err != nil {
			logger.Error("outbound email persisted but not queued",
				"outbound_id", oe.ID.String(), "error", err.Error())
			result.Orphaned = append(result.Orphaned, oe.ID)
		}
	}
	return result, nil
}

// Run ticks on a fixed interval until ctx is cancelled. A busy lock is
// quietly skipped; any other error is logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	log.Printf("[Scheduler] Starting tick loop (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Scheduler] Stopping")
			return
		case <-ticker.C:
			result, err := s.Tick(ctx)
			if errors.Is(err, ErrTickBusy) {
				continue
			}
			if err != nil {
				log.Printf("[Scheduler] Tick error: %v", err)
				continue
			}
			if result.Created > 0 {
				log.Printf("[Scheduler] Tick materialized %d send(s)", result.Created)
			}
		}
	}
}
