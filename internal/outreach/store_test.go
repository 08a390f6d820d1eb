package outreach

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewStore(db), mock, func() { db.Close() }
}

func TestInsertOutboundIfAbsentCreates(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	oe := &OutboundEmail{
		LeadID:     uuid.New(),
		CampaignID: uuid.New(),
		StepID:     uuid.New(),
		Subject:    "Hello",
		BodyHTML:   "<p>hi</p>",
	}
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	created, err := store.InsertOutboundIfAbsent(context.Background(), oe)
	if err != nil {
		t.Fatalf("InsertOutboundIfAbsent: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if oe.TrackID == "" {
		t.Error("track ID was not assigned")
	}
	if oe.Status != OutboundPending {
		t.Errorf("status = %q, want PENDING", oe.Status)
	}
}

func TestInsertOutboundIfAbsentSkipsExisting(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	// ON CONFLICT DO NOTHING yields zero rows from RETURNING.
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	created, err := store.InsertOutboundIfAbsent(context.Background(), &OutboundEmail{
		LeadID: uuid.New(), CampaignID: uuid.New(), StepID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("InsertOutboundIfAbsent: %v", err)
	}
	if created {
		t.Error("created = true, want false for existing (lead, step) pair")
	}
}

func TestEnrollLeadTxCommitsEnrollmentAndStepZero(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO outbound_emails`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	enrollment := &Enrollment{LeadID: uuid.New(), CampaignID: uuid.New()}
	created, err := store.EnrollLeadTx(context.Background(), enrollment, &OutboundEmail{
		LeadID: enrollment.LeadID, CampaignID: enrollment.CampaignID, StepID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("EnrollLeadTx: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if enrollment.StartDate.IsZero() {
		t.Error("start date was not defaulted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEnrollLeadTxRollsBackOnEnrollmentFailure(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := store.EnrollLeadTx(context.Background(), &Enrollment{
		LeadID: uuid.New(), CampaignID: uuid.New(),
	}, &OutboundEmail{LeadID: uuid.New(), StepID: uuid.New()})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGetOutboundForDeliveryMissingIsNil(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectQuery(`SELECT o.id, o.lead_id, l.email`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item, err := store.GetOutboundForDelivery(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetOutboundForDelivery: %v", err)
	}
	if item != nil {
		t.Errorf("item = %+v, want nil", item)
	}
}

func TestGetLeadMissingIsNil(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectQuery(`SELECT l.id, l.company_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	lead, err := store.GetLead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if lead != nil {
		t.Errorf("lead = %+v, want nil", lead)
	}
}

func TestCreateCampaignDuplicateSlug(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectExec(`INSERT INTO campaigns`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateCampaign(context.Background(), &Campaign{Name: "X", Slug: "x"})
	if err != ErrDuplicateSlug {
		t.Errorf("err = %v, want ErrDuplicateSlug", err)
	}
}

func TestMarkOpenedByTrackID(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectExec(`UPDATE outbound_emails SET status = 'OPENED' WHERE track_id = \$1`).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outbound_emails SET status = 'OPENED' WHERE track_id = \$1`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := store.MarkOpenedByTrackID(context.Background(), "tok-1")
	if err != nil || !matched {
		t.Errorf("matched = %v, err = %v, want true, nil", matched, err)
	}
	matched, err = store.MarkOpenedByTrackID(context.Background(), "nope")
	if err != nil || matched {
		t.Errorf("matched = %v, err = %v, want false, nil", matched, err)
	}
}

func TestCreateLeadDefaults(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectExec(`INSERT INTO leads`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lead := &Lead{CompanyID: uuid.New(), Email: "  Dana@Acme.com "}
	if err := store.CreateLead(context.Background(), lead); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.Email != "dana@acme.com" {
		t.Errorf("email = %q, want normalized", lead.Email)
	}
	if lead.Status != LeadNew || lead.EmailStatus != EmailUnverified {
		t.Errorf("defaults = %q/%q, want NEW/UNVERIFIED", lead.Status, lead.EmailStatus)
	}
	if lead.ID == uuid.Nil {
		t.Error("ID was not assigned")
	}
}

func TestListLeadsByEmailStatusReportsCompanyAndStatus(t *testing.T) {
	store, mock, done := newTestStore(t)
	defer done()

	mock.ExpectQuery(`SELECT l\.email, c\.name, l\.email_status`).
		WithArgs(pq.Array([]string{"INVALID", "DO_NOT_MAIL"})).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name", "email_status"}).
			AddRow("bounce@acme.com", "Acme Dental", "INVALID").
			AddRow("spamtrap@hill.com", "Hill Dental", "DO_NOT_MAIL"))

	rows, err := store.ListLeadsByEmailStatus(context.Background(),
		[]EmailVerificationStatus{EmailInvalid, EmailDoNotMail})
	if err != nil {
		t.Fatalf("ListLeadsByEmailStatus: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := CleanupLead{Email: "bounce@acme.com", Company: "Acme Dental", Status: EmailInvalid}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}
	if rows[1].Company != "Hill Dental" || rows[1].Status != EmailDoNotMail {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}
