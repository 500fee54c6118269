package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/auth"
	"github.com/pesio-ai/be-hr-timesheets/internal/handler"
	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
)

type stubDirectory struct {
	emp *repository.Employee
	err error
}

func (d *stubDirectory) GetByUsername(ctx context.Context, username string) (*repository.Employee, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.emp, nil
}

func postLogin(t *testing.T, h *handler.HTTPHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Login(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestLoginSucceeds(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	dir := &stubDirectory{emp: &repository.Employee{
		ID: "emp-1", Username: "jdoe", PasswordHash: hash,
		Role: repository.RoleHourly, CompClass: repository.CompHourly, Active: true,
	}}
	h := handler.NewHTTPHandler(nil, dir, "secret", time.Hour, zerolog.Nop())

	rec := postLogin(t, h, `{"username":"jdoe","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"token"`) {
		t.Error("response is missing the access token")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	dir := &stubDirectory{emp: &repository.Employee{
		ID: "emp-1", Username: "jdoe", PasswordHash: hash, Active: true,
	}}
	h := handler.NewHTTPHandler(nil, dir, "secret", time.Hour, zerolog.Nop())

	if rec := postLogin(t, h, `{"username":"jdoe","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}

	dir.err = apperrors.NotFound("employee", "ghost")
	if rec := postLogin(t, h, `{"username":"ghost","password":"pw"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", rec.Code)
	}
}

func TestLoginStorageOutageIsRetryable(t *testing.T) {
	// An unavailable employee store must surface as 503, not as bad
	// credentials.
	dir := &stubDirectory{err: apperrors.Unavailable(errors.New("connection refused"), "failed to get employee")}
	h := handler.NewHTTPHandler(nil, dir, "secret", time.Hour, zerolog.Nop())

	rec := postLogin(t, h, `{"username":"jdoe","password":"pw"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
