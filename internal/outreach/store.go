package outreach

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateSlug is returned when a campaign slug already exists.
var ErrDuplicateSlug = errors.New("campaign slug already exists")

// Store provides database operations for outreach entities.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for components that manage their own
// transactions or advisory locks.
func (s *Store) DB() *sql.DB { return s.db }

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

// UpsertCompany creates or updates a company keyed by name and returns its ID.
// Existing rows keep their values when the incoming record has blanks.
func (s *Store) UpsertCompany(ctx context.Context, rec ImportRecord, industry string) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO companies (id, name, website, phone, address, industry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			website = COALESCE(NULLIF(EXCLUDED.website, ''), companies.website),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), companies.phone),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), companies.address),
			updated_at = NOW()
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, id, rec.Company, rec.Website, rec.Phone, rec.Address, industry).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert company %q: %w", rec.Company, err)
	}
	return id, nil
}

// DeleteOrphanCompanies removes companies left with zero leads.
func (s *Store) DeleteOrphanCompanies(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies c
		WHERE NOT EXISTS (SELECT 1 FROM leads l WHERE l.company_id = c.id)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan companies: %w", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Leads
// ---------------------------------------------------------------------------

// LeadExistsByEmail checks for an existing lead with the given address,
// case-insensitively.
func (s *Store) LeadExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leads WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lead exists: %w", err)
	}
	return exists, nil
}

// CreateLead inserts a new lead. Defaults: status NEW, email UNVERIFIED.
func (s *Store) CreateLead(ctx context.Context, lead *Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	lead.Email = NormalizeEmail(lead.Email)
	if lead.Status == "" {
		lead.Status = LeadNew
	}
	if lead.EmailStatus == "" {
		lead.EmailStatus = EmailUnverified
	}
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt

	_, err := s.db.ExecContext(ctx, `INSERT INTO leads
		(id, company_id, email, contact_name, source, status, unsubscribed, email_status, email_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lead.ID, lead.CompanyID, lead.Email, lead.ContactName, lead.Source,
		lead.Status, lead.Unsubscribed, lead.EmailStatus, lead.EmailScore,
		lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead with its company.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (*Lead, error) {
	lead := &Lead{Company: &Company{}}
	err := s.db.QueryRowContext(ctx, `SELECT l.id, l.company_id, l.email, l.contact_name, l.source,
		l.status, l.unsubscribed, l.email_status, l.email_score, l.created_at, l.updated_at,
		c.id, c.name, c.website, c.phone, c.address
		FROM leads l JOIN companies c ON c.id = l.company_id
		WHERE l.id = $1`, id).Scan(
		&lead.ID, &lead.CompanyID, &lead.Email, &lead.ContactName, &lead.Source,
		&lead.Status, &lead.Unsubscribed, &lead.EmailStatus, &lead.EmailScore,
		&lead.CreatedAt, &lead.UpdatedAt,
		&lead.Company.ID, &lead.Company.Name, &lead.Company.Website,
		&lead.Company.Phone, &lead.Company.Address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads with company info, newest first.
func (s *Store) ListLeads(ctx context.Context, limit, offset int) ([]*Lead, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `SELECT l.id, l.company_id, l.email, l.contact_name, l.source,
		l.status, l.unsubscribed, l.email_status, l.email_score, l.created_at,
		c.name, c.website
		FROM leads l JOIN companies c ON c.id = l.company_id
		ORDER BY l.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead := &Lead{Company: &Company{}}
		err := rows.Scan(&lead.ID, &lead.CompanyID, &lead.Email, &lead.ContactName, &lead.Source,
			&lead.Status, &lead.Unsubscribed, &lead.EmailStatus, &lead.EmailScore, &lead.CreatedAt,
			&lead.Company.Name, &lead.Company.Website)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ListUnverifiedLeads returns leads from the given set that still have
// email_status UNVERIFIED.
func (s *Store) ListUnverifiedLeads(ctx context.Context, ids []uuid.UUID) ([]*Lead, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, company_id, email, contact_name, email_status
		FROM leads WHERE id = ANY($1) AND email_status = 'UNVERIFIED'
		ORDER BY created_at ASC`, pq.Array(strIDs))
	if err != nil {
		return nil, fmt.Errorf("list unverified leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead := &Lead{}
		if err := rows.Scan(&lead.ID, &lead.CompanyID, &lead.Email, &lead.ContactName, &lead.EmailStatus); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateLeadVerification records the result of an email verification.
func (s *Store) UpdateLeadVerification(ctx context.Context, leadID uuid.UUID, status EmailVerificationStatus, score *float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE leads
		SET email_status = $2, email_score = $3, updated_at = NOW() WHERE id = $1`,
		leadID, status, score)
	if err != nil {
		return fmt.Errorf("update lead verification: %w", err)
	}
	return nil
}

// DeleteLeads removes leads by ID and returns the number deleted.
func (s *Store) DeleteLeads(ctx context.Context, ids []uuid.UUID) (int64, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ANY($1)`, pq.Array(strIDs))
	if err != nil {
		return 0, fmt.Errorf("delete leads: %w", err)
	}
	return res.RowsAffected()
}

// CountLeadsByEmailStatus counts leads with the given verification status.
func (s *Store) CountLeadsByEmailStatus(ctx context.Context, status EmailVerificationStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE email_status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count leads by status: %w", err)
	}
	return n, nil
}

// ListLeadsByEmailStatus returns (email, company name, status) rows for the
// cleanup report.
func (s *Store) ListLeadsByEmailStatus(ctx context.Context, statuses []EmailVerificationStatus) ([]CleanupLead, error) {
	strStatuses := make([]string, len(statuses))
	for i, st := range statuses {
		strStatuses[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT l.email, c.name, l.email_status
		FROM leads l JOIN companies c ON c.id = l.company_id
		WHERE l.email_status = ANY($1)`, pq.Array(strStatuses))
	if err != nil {
		return nil, fmt.Errorf("list leads by status: %w", err)
	}
	defer rows.Close()

	var out []CleanupLead
	for rows.Next() {
		var row CleanupLead
		if err := rows.Scan(&row.Email, &row.Company, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteLeadsByEmailStatus removes all leads whose verification status is in
// the given set.
func (s *Store) DeleteLeadsByEmailStatus(ctx context.Context, statuses []EmailVerificationStatus) (int64, error) {
	strStatuses := make([]string, len(statuses))
	for i, st := range statuses {
		strStatuses[i] = string(st)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM leads WHERE email_status = ANY($1)`, pq.Array(strStatuses))
	if err != nil {
		return 0, fmt.Errorf("delete leads by status: %w", err)
	}
	return res.RowsAffected()
}

// UnsubscribeByEmail marks every lead sharing the address as unsubscribed.
// Repeated calls are harmless.
func (s *Store) UnsubscribeByEmail(ctx context.Context, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE leads
		SET unsubscribed = TRUE, status = 'UNSUBSCRIBED', updated_at = NOW()
		WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return 0, fmt.Errorf("unsubscribe by email: %w", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Campaigns and steps
// ---------------------------------------------------------------------------

// SlugExists checks whether a campaign slug is already taken.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

// CreateCampaign inserts a campaign; ErrDuplicateSlug on slug collision.
func (s *Store) CreateCampaign(ctx context.Context, c *Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO campaigns (id, name, slug, niche, city, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Slug, c.Niche, c.City, c.State, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// CreateStep inserts a sequence step.
func (s *Store) CreateStep(ctx context.Context, step *SequenceStep) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sequence_steps (id, campaign_id, day_offset, subject, body_html)
		VALUES ($1, $2, $3, $4, $5)`,
		step.ID, step.CampaignID, step.DayOffset, step.Subject, step.BodyHTML)
	if err != nil {
		return fmt.Errorf("create step: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign with its steps ordered by day offset.
func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	c := &Campaign{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name, slug, niche, city, state, created_at
		FROM campaigns WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Niche, &c.City, &c.State, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, campaign_id, day_offset, subject, body_html
		FROM sequence_steps WHERE campaign_id = $1 ORDER BY day_offset ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		step := &SequenceStep{}
		if err := rows.Scan(&step.ID, &step.CampaignID, &step.DayOffset, &step.Subject, &step.BodyHTML); err != nil {
			return nil, err
		}
		c.Steps = append(c.Steps, step)
	}
	return c, rows.Err()
}

// ListCampaigns returns all campaigns with steps and enrollment counts,
// newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.name, c.slug, c.niche, c.city, c.state, c.created_at,
		(SELECT COUNT(*) FROM enrollments e WHERE e.campaign_id = c.id)
		FROM campaigns c ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*Campaign
	byID := make(map[uuid.UUID]*Campaign)
	for rows.Next() {
		c := &Campaign{}
		err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Niche, &c.City, &c.State, &c.CreatedAt, &c.EnrollmentCount)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stepRows, err := s.db.QueryContext(ctx, `SELECT id, campaign_id, day_offset, subject, body_html
		FROM sequence_steps ORDER BY day_offset ASC`)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer stepRows.Close()
	for stepRows.Next() {
		step := &SequenceStep{}
		if err := stepRows.Scan(&step.ID, &step.CampaignID, &step.DayOffset, &step.Subject, &step.BodyHTML); err != nil {
			return nil, err
		}
		if c, ok := byID[step.CampaignID]; ok {
			c.Steps = append(c.Steps, step)
		}
	}
	return campaigns, stepRows.Err()
}

// ---------------------------------------------------------------------------
// Enrollments
// ---------------------------------------------------------------------------

// TickEnrollment is the scheduler's view of one enrollment: the anchor date
// plus the lead/company fields needed to render templates.
type TickEnrollment struct {
	EnrollmentID uuid.UUID
	LeadID       uuid.UUID
	CampaignID   uuid.UUID
	StartDate    time.Time
	LeadEmail    string
	ContactName  string
	CompanyName  string
}

// ListEnrollmentsForTick returns all enrollments joined with lead and
// company data.
func (s *Store) ListEnrollmentsForTick(ctx context.Context) ([]TickEnrollment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.id, e.lead_id, e.campaign_id, e.start_date,
		l.email, l.contact_name, c.name
		FROM enrollments e
		JOIN leads l ON l.id = e.lead_id
		JOIN companies c ON c.id = l.company_id
		ORDER BY e.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for tick: %w", err)
	}
	defer rows.Close()

	var out []TickEnrollment
	for rows.Next() {
		var te TickEnrollment
		err := rows.Scan(&te.EnrollmentID, &te.LeadID, &te.CampaignID, &te.StartDate,
			&te.LeadEmail, &te.ContactName, &te.CompanyName)
		if err != nil {
			return nil, err
		}
		out = append(out, te)
	}
	return out, rows.Err()
}

// ListAllSteps returns every sequence step grouped by campaign, ordered by
// day offset within each campaign.
func (s *Store) ListAllSteps(ctx context.Context) (map[uuid.UUID][]*SequenceStep, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, campaign_id, day_offset, subject, body_html
		FROM sequence_steps ORDER BY campaign_id, day_offset ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all steps: %w", err)
	}
	defer rows.Close()

	steps := make(map[uuid.UUID][]*SequenceStep)
	for rows.Next() {
		step := &SequenceStep{}
		if err := rows.Scan(&step.ID, &step.CampaignID, &step.DayOffset, &step.Subject, &step.BodyHTML); err != nil {
			return nil, err
		}
		steps[step.CampaignID] = append(steps[step.CampaignID], step)
	}
	return steps, rows.Err()
}

// EnrollLeadTx creates an enrollment and materializes the step-0 outbound
// email in one transaction. It returns whether the outbound row was created
// (false when the (lead, step) pair was already materialized).
func (s *Store) EnrollLeadTx(ctx context.Context, enrollment *Enrollment, oe *OutboundEmail) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin enroll tx: %w", err)
	}
	defer tx.Rollback()

	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = time.Now()
	}
	enrollment.CreatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `INSERT INTO enrollments (id, lead_id, campaign_id, start_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		enrollment.ID, enrollment.LeadID, enrollment.CampaignID, enrollment.StartDate, enrollment.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}

	created, err := insertOutboundIfAbsent(ctx, tx, oe)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit enroll tx: %w", err)
	}
	return created, nil
}

// ---------------------------------------------------------------------------
// Outbound emails
// ---------------------------------------------------------------------------

type execQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertOutboundIfAbsent performs the atomic insert-or-skip keyed on
// (lead_id, step_id). Concurrent ticks cannot double-materialize a step.
func insertOutboundIfAbsent(ctx context.Context, q execQueryer, oe *OutboundEmail) (bool, error) {
	if oe.ID == uuid.Nil {
		oe.ID = uuid.New()
	}
	if oe.TrackID == "" {
		oe.TrackID = uuid.New().String()
	}
	if oe.Status == "" {
		oe.Status = OutboundPending
	}
	oe.CreatedAt = time.Now()

	err := q.QueryRowContext(ctx, `INSERT INTO outbound_emails
		(id, lead_id, campaign_id, step_id, subject, body_html, track_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (lead_id, step_id) DO NOTHING
		RETURNING id`,
		oe.ID, oe.LeadID, oe.CampaignID, oe.StepID, oe.Subject, oe.BodyHTML,
		oe.TrackID, oe.Status, oe.CreatedAt).Scan(&oe.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert outbound: %w", err)
	}
	return true, nil
}

// InsertOutboundIfAbsent materializes a send outside a transaction.
func (s *Store) InsertOutboundIfAbsent(ctx context.Context, oe *OutboundEmail) (bool, error) {
	return insertOutboundIfAbsent(ctx, s.db, oe)
}

// DeliveryItem is the worker's view of a queued send: the rendered content
// plus the recipient state checked at execution time.
type DeliveryItem struct {
	OutboundID   uuid.UUID
	LeadID       uuid.UUID
	Email        string
	Subject      string
	BodyHTML     string
	Status       OutboundStatus
	Unsubscribed bool
}

// GetOutboundForDelivery fetches an outbound email joined with its lead for
// send-time execution. Returns (nil, nil) when the record or lead is gone.
func (s *Store) GetOutboundForDelivery(ctx context.Context, id uuid.UUID) (*DeliveryItem, error) {
	item := &DeliveryItem{}
	err := s.db.QueryRowContext(ctx, `SELECT o.id, o.lead_id, l.email, o.subject, o.body_html, o.status, l.unsubscribed
		FROM outbound_emails o
		JOIN leads l ON l.id = o.lead_id
		WHERE o.id = $1`, id).Scan(
		&item.OutboundID, &item.LeadID, &item.Email, &item.Subject, &item.BodyHTML,
		&item.Status, &item.Unsubscribed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outbound for delivery: %w", err)
	}
	return item, nil
}

// MarkOutboundSent records a successful transport send.
func (s *Store) MarkOutboundSent(ctx context.Context, id uuid.UUID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbound_emails
		SET status = 'SENT', sent_at = NOW(), message_id = $2 WHERE id = $1`, id, messageID)
	if err != nil {
		return fmt.Errorf("mark outbound sent: %w", err)
	}
	return nil
}

// MarkOutboundFailed records a permanently failed send (retries exhausted).
func (s *Store) MarkOutboundFailed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbound_emails SET status = 'FAILED' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbound failed: %w", err)
	}
	return nil
}

// MarkOpenedByTrackID flips an outbound email to OPENED by tracking token.
// Repeated opens reassert the same status. Returns whether a row matched.
func (s *Store) MarkOpenedByTrackID(ctx context.Context, trackID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outbound_emails SET status = 'OPENED' WHERE track_id = $1`, trackID)
	if err != nil {
		return false, fmt.Errorf("mark opened: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListOutbound returns recent sends for the dashboard, newest first.
func (s *Store) ListOutbound(ctx context.Context, limit int) ([]*OutboundEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, lead_id, campaign_id, step_id, subject,
		track_id, status, sent_at, message_id, created_at
		FROM outbound_emails ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbound: %w", err)
	}
	defer rows.Close()

	var out []*OutboundEmail
	for rows.Next() {
		oe := &OutboundEmail{}
		var sentAt sql.NullTime
		var messageID sql.NullString
		err := rows.Scan(&oe.ID, &oe.LeadID, &oe.CampaignID, &oe.StepID, &oe.Subject,
			&oe.TrackID, &oe.Status, &sentAt, &messageID, &oe.CreatedAt)
		if err != nil {
			return nil, err
		}
		if sentAt.Valid {
			oe.SentAt = &sentAt.Time
		}
		oe.MessageID = messageID.String
		out = append(out, oe)
	}
	return out, rows.Err()
}
