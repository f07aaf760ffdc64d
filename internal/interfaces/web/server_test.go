package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/court-booker/internal/domain/booking"
)

func newTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	sessions := NewSessionManager([]byte("0123456789abcdef0123456789abcdef"), nil)
	srv, err := New(":0", sessions, string(hash), runner, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {"letmein"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func bookingForm() url.Values {
	return url.Values{
		"email":      {"a@b.c"},
		"password":   {"pw"},
		"court":      {"McFetridge Tennis Ct03"},
		"date":       {"2026-09-06"},
		"start":      {"7"},
		"hours":      {"1"},
		"event_name": {"Tennis Practice"},
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	form := url.Values{"password": {"nope"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong access password")
}

func TestLoginThenFormRenders(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	cookie := login(t, h)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "McFetridge Tennis Ct01")
	assert.Contains(t, rec.Body.String(), "7:00 AM")
}

func TestRunStreamsProgressAndOutcome(t *testing.T) {
	var got booking.BookingRequest
	runner := func(ctx context.Context, req booking.BookingRequest, rep booking.Reporter) booking.SessionOutcome {
		got = req
		rep.Report(booking.ProgressEvent{At: time.Now(), Stage: booking.StageEstablish, Severity: booking.SeverityInfo, Message: "signing in"})
		rep.Report(booking.ProgressEvent{At: time.Now(), Stage: booking.StageAcquire, Severity: booking.SeveritySuccess, Message: "claimed"})
		return booking.SessionOutcome{
			Status: booking.StatusCompleted,
			Stage:  booking.StageConfirm,
			Claims: []booking.SlotClaim{{State: booking.ClaimClaimed}},
		}
	}
	h := newTestServer(t, runner).Handler()
	cookie := login(t, h)

	req := httptest.NewRequest("POST", "/run", strings.NewReader(bookingForm().Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "signing in"), strings.Index(body, "claimed"), "events rendered in arrival order")
	assert.Contains(t, body, "outcome: completed (1 slot(s) claimed)")

	assert.Equal(t, "McFetridge Tennis Ct03", got.Court)
	require.Len(t, got.Windows, 1)
	assert.Equal(t, 7, got.Windows[0].StartHour)
}

func TestRunRejectsInvalidForm(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	cookie := login(t, h)

	form := bookingForm()
	form.Set("court", "Court 3")
	req := httptest.NewRequest("POST", "/run", strings.NewReader(form.Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown court")
}

func TestRunIncludesBackupWindow(t *testing.T) {
	var got booking.BookingRequest
	runner := func(ctx context.Context, req booking.BookingRequest, rep booking.Reporter) booking.SessionOutcome {
		got = req
		return booking.SessionOutcome{Status: booking.StatusNoSlotsClaimed}
	}
	h := newTestServer(t, runner).Handler()
	cookie := login(t, h)

	form := bookingForm()
	form.Set("backup", "9")
	req := httptest.NewRequest("POST", "/run", strings.NewReader(form.Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, got.Windows, 2)
	assert.Equal(t, 9, got.Windows[1].StartHour)
}
