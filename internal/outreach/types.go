package outreach

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lifecycle status of a lead.
type LeadStatus string

const (
	LeadNew          LeadStatus = "NEW"
	LeadContacted    LeadStatus = "CONTACTED"
	LeadReplied      LeadStatus = "REPLIED"
	LeadUnsubscribed LeadStatus = "UNSUBSCRIBED"
)

// EmailVerificationStatus mirrors the ZeroBounce result taxonomy.
type EmailVerificationStatus string

const (
	EmailUnverified EmailVerificationStatus = "UNVERIFIED"
	EmailValid      EmailVerificationStatus = "VALID"
	EmailInvalid    EmailVerificationStatus = "INVALID"
	EmailCatchAll   EmailVerificationStatus = "CATCH_ALL"
	EmailUnknown    EmailVerificationStatus = "UNKNOWN"
	EmailSpamtrap   EmailVerificationStatus = "SPAMTRAP"
	EmailAbuse      EmailVerificationStatus = "ABUSE"
	EmailDoNotMail  EmailVerificationStatus = "DO_NOT_MAIL"
)

// OutboundStatus is the delivery status of a materialized send.
type OutboundStatus string

const (
	OutboundPending OutboundStatus = "PENDING"
	OutboundSent    OutboundStatus = "SENT"
	OutboundOpened  OutboundStatus = "OPENED"
	OutboundFailed  OutboundStatus = "FAILED"
)

// Company is an organization a lead belongs to. Companies are upserted by
// name during import/scrape and removed only when no leads remain.
type Company struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Website         string    `json:"website,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	Industry        string    `json:"industry,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	ReviewCount     *int      `json:"review_count,omitempty"`
	YearsInBusiness *int      `json:"years_in_business,omitempty"`
	Hours           string    `json:"hours,omitempty"`
	Services        string    `json:"services,omitempty"`
	Guaranteed      bool      `json:"guaranteed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Lead is a prospect with a contact email, owned by one company.
type Lead struct {
	ID           uuid.UUID               `json:"id"`
	CompanyID    uuid.UUID               `json:"company_id"`
	Email        string                  `json:"email"`
	ContactName  string                  `json:"contact_name,omitempty"`
	Source       string                  `json:"source"`
	Status       LeadStatus              `json:"status"`
	Unsubscribed bool                    `json:"unsubscribed"`
	EmailStatus  EmailVerificationStatus `json:"email_status"`
	EmailScore   *float64                `json:"email_score,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`

	// Populated on list reads for the dashboard.
	Company *Company `json:"company,omitempty"`
}

// Campaign owns an ordered set of sequence steps.
type Campaign struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Niche     string    `json:"niche,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Steps           []*SequenceStep `json:"steps,omitempty"`
	EnrollmentCount int             `json:"enrollment_count"`
}

// SequenceStep is one templated email at a fixed day offset from
// enrollment start. dayOffset 0 is the initial send.
type SequenceStep struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	DayOffset  int       `json:"dayOffset"`
	Subject    string    `json:"subject"`
	BodyHTML   string    `json:"bodyHtml"`
}

// Enrollment binds a lead to a campaign as of a start date. The start date
// anchors the relative step offsets to absolute due dates.
type Enrollment struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"lead_id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	StartDate  time.Time `json:"start_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutboundEmail materializes one (lead, campaign, step) send attempt with
// rendered content and a unique tracking token.
type OutboundEmail struct {
	ID         uuid.UUID      `json:"id"`
	LeadID     uuid.UUID      `json:"lead_id"`
	CampaignID uuid.UUID      `json:"campaign_id"`
	StepID     uuid.UUID      `json:"step_id"`
	Subject    string         `json:"subject"`
	BodyHTML   string         `json:"body_html"`
	TrackID    string         `json:"track_id"`
	Status     OutboundStatus `json:"status"`
	SentAt     *time.Time     `json:"sent_at,omitempty"`
	MessageID  string         `json:"message_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ImportRecord is one row of a bulk lead import or a scraper result line.
type ImportRecord struct {
	Company     string `json:"company"`
	Website     string `json:"website,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Email       string `json:"email"`
	ContactName string `json:"contactName,omitempty"`
	Source      string `json:"source,omitempty"`
}

// SkippedRecord reports why an import row was not created.
type SkippedRecord struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// CleanupLead is one row of the cleanup report: a lead about to be deleted
// for its verification status.
type CleanupLead struct {
	Email   string                  `json:"email"`
	Company string                  `json:"company"`
	Status  EmailVerificationStatus `json:"status"`
}
