package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/queue"
)

type stubLock struct {
	acquired bool
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }
func (l *stubLock) Release(ctx context.Context) error         { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, sqlmock.Sqlmock, *queue.Queue, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(client, "test")

	s := New(outreach.NewStore(db), q, &stubLock{acquired: true}, "http://app.local", "")
	return s, mock, q, func() {
		db.Close()
		client.Close()
	}
}

func tickEnrollmentRows(startDate time.Time, leadID, campaignID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "lead_id", "campaign_id", "start_date", "email", "contact_name", "name"}).
		AddRow(uuid.New().String(), leadID.String(), campaignID.String(), startDate,
			"dana@acme.com", "Dana Reyes", "Acme Dental")
}

func TestTickMaterializesDueStepsOnly(t *testing.T) {
	s, mock, q, done := newTestScheduler(t)
	defer done()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	leadID := uuid.New()
	campaignID := uuid.New()
	started := now.AddDate(0, 0, -2)

	mock.ExpectQuery(`SELECT e.id, e.lead_id, e.campaign_id, e.start_date`).
		WillReturnRows(tickEnrollmentRows(started, leadID, campaignID))

	// Day 0 and day 2 are due; day 5 is not.
	stepRows := sqlmock.NewRows([]string{"id", "campaign_id", "day_offset", "subject", "body_html"}).
		AddRow(uuid.New().String(), campaignID.String(), 0, "Hi {{firstname}}", "<p>{{company}}</p>").
		AddRow(uuid.New().String(), campaignID.String(), 2, "Following up", "<p>again</p>").
		AddRow(uuid.New().String(), campaignID.String(), 5, "Last try", "<p>bye</p>")
	mock.ExpectQuery(`SELECT id, campaign_id, day_offset`).WillReturnRows(stepRows)

	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WithArgs(sqlmock.AnyArg(), leadID.String(), campaignID.String(), sqlmock.AnyArg(),
			"Hi Dana", "<p>Acme Dental</p>", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	result, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("created = %d, want 2", result.Created)
	}
	if len(result.Orphaned) != 0 {
		t.Errorf("orphaned = %v, want none", result.Orphaned)
	}

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if stats.Delayed != 2 {
		t.Errorf("delayed jobs = %d, want 2", stats.Delayed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTickSkipsAlreadyMaterializedSteps(t *testing.T) {
	s, mock, q, done := newTestScheduler(t)
	defer done()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	leadID := uuid.New()
	campaignID := uuid.New()

	mock.ExpectQuery(`SELECT e.id, e.lead_id, e.campaign_id, e.start_date`).
		WillReturnRows(tickEnrollmentRows(now, leadID, campaignID))
	mock.ExpectQuery(`SELECT id, campaign_id, day_offset`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "day_offset", "subject", "body_html"}).
			AddRow(uuid.New().String(), campaignID.String(), 0, "Hi", "<p>hi</p>"))

	// Conflict on (lead_id, step_id): RETURNING yields no rows.
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("created = %d, want 0", result.Created)
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 0 || stats.Ready != 0 {
		t.Errorf("queue not empty: %+v", stats)
	}
}

func TestTickBusyLock(t *testing.T) {
	s, _, _, done := newTestScheduler(t)
	defer done()
	s.lock = &stubLock{acquired: false}

	if _, err := s.Tick(context.Background()); err != ErrTickBusy {
		t.Errorf("err = %v, want ErrTickBusy", err)
	}
}

func TestEnrollUnknownCampaign(t *testing.T) {
	s, mock, _, done := newTestScheduler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, slug`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Enroll(context.Background(), []uuid.UUID{uuid.New()}, uuid.New())
	if err != ErrCampaignNotFound {
		t.Errorf("err = %v, want ErrCampaignNotFound", err)
	}
}

func TestEnrollCreatesEnrollmentAndQueuesStepZero(t *testing.T) {
	s, mock, q, done := newTestScheduler(t)
	defer done()

	campaignID := uuid.New()
	leadID := uuid.New()
	stepID := uuid.New()

	mock.ExpectQuery(`SELECT id, name, slug`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "niche", "city", "state", "created_at"}).
			AddRow(campaignID.String(), "Dental", "dental", "", "", "", time.Now()))
	mock.ExpectQuery(`SELECT id, campaign_id, day_offset`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "day_offset", "subject", "body_html"}).
			AddRow(stepID.String(), campaignID.String(), 0, "Hi {{firstname}}", "<p>{{unsub}}</p>"))

	mock.ExpectQuery(`SELECT l.id, l.company_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "email", "contact_name", "source", "status", "unsubscribed",
			"email_status", "email_score", "created_at", "updated_at",
			"c_id", "c_name", "c_website", "c_phone", "c_address"}).
			AddRow(leadID.String(), uuid.New().String(), "dana@acme.com", "Dana Reyes", "import",
				"NEW", false, "UNVERIFIED", nil, time.Now(), time.Now(),
				uuid.New().String(), "Acme Dental", "", "", ""))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO enrollments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WithArgs(sqlmock.AnyArg(), leadID.String(), campaignID.String(), stepID.String(),
			"Hi Dana", "<p>http://app.local/api/track/unsub?e=dana%40acme.com</p>",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	result, err := s.Enroll(context.Background(), []uuid.UUID{leadID}, campaignID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.Enrolled != 1 {
		t.Errorf("enrolled = %d, want 1", result.Enrolled)
	}

	stats, _ := q.Stats(context.Background())
	if stats.Delayed != 1 {
		t.Errorf("delayed jobs = %d, want 1", stats.Delayed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEnrollSkipsMissingLeads(t *testing.T) {
	s, mock, _, done := newTestScheduler(t)
	defer done()

	campaignID := uuid.New()
	mock.ExpectQuery(`SELECT id, name, slug`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "niche", "city", "state", "created_at"}).
			AddRow(campaignID.String(), "Dental", "dental", "", "", "", time.Now()))
	mock.ExpectQuery(`SELECT id, campaign_id, day_offset`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "campaign_id", "day_offset", "subject", "body_html"}).
			AddRow(uuid.New().String(), campaignID.String(), 0, "Hi", "<p>hi</p>"))

	mock.ExpectQuery(`SELECT l.id, l.company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := s.Enroll(context.Background(), []uuid.UUID{uuid.New()}, campaignID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.Enrolled != 0 {
		t.Errorf("enrolled = %d, want 0", result.Enrolled)
	}
}
