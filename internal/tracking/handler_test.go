package tracking

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/threesixtyvue/outreach/internal/outreach"
)

func setupHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHandler(outreach.NewStore(db)), mock
}

func TestOpenKnownTokenMarksOpened(t *testing.T) {
	h, mock := setupHandler(t)
	mock.ExpectExec("UPDATE outbound_emails SET status = 'OPENED'").
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open?tid=tok-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/gif" {
		t.Errorf("expected image/gif, got %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), pixelGIF) {
		t.Error("expected pixel body")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestOpenUnknownTokenStillServesPixel(t *testing.T) {
	h, mock := setupHandler(t)
	mock.ExpectExec("UPDATE outbound_emails SET status = 'OPENED'").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open?tid=nope", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unknown token must still get 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), pixelGIF) {
		t.Error("expected pixel body")
	}
}

func TestOpenMissingTokenServesPixelWithoutQuery(t *testing.T) {
	h, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), pixelGIF) {
		t.Fatalf("expected bare pixel, got %d", rec.Code)
	}
}

func TestUnsubscribeFlipsAllLeadsForEmail(t *testing.T) {
	h, mock := setupHandler(t)
	mock.ExpectExec("UPDATE leads").
		WithArgs("jane@acme.com").
		WillReturnResult(sqlmock.NewResult(0, 2))

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unsub?e=jane%40acme.com", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !bytes.Contains([]byte(body), []byte("You are unsubscribed.")) {
		t.Errorf("unexpected body %q", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("db expectations: %v", err)
	}
}

func TestUnsubscribeWithoutEmailIsNoOp(t *testing.T) {
	h, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unsub", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
