package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type stubAuth struct {
	users map[string]*models.User
}

func (s stubAuth) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func newTestMiddleware() (*Middleware, *models.User, *models.User) {
	driver := &models.User{ID: uuid.MustNew(), Role: types.DriverRole}
	admin := &models.User{ID: uuid.MustNew(), Role: types.AdminRole}
	m := NewMiddleware(stubAuth{users: map[string]*models.User{"driver": driver, "admin": admin}},
		logger.New(io.Discard, "middleware-test", logger.LevelError))
	return m, driver, admin
}

func TestAuthAndRoles(t *testing.T) {
	m, _, _ := newTestMiddleware()

	adminOnly := m.Auth(m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, types.AdminRole))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "malformed header", header: "Token admin", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer driver", want: http.StatusForbidden},
		{name: "admin", header: "Bearer admin", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/withdrawals/x/approve", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			adminOnly.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAuthWebsocketQueryToken(t *testing.T) {
	m, driver, _ := newTestMiddleware()

	var got *models.User
	h := m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = models.UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/drivers/x/ws?access_token=driver", nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.ID != driver.ID {
		t.Fatalf("expected driver from query token, got %+v", got)
	}

	// Plain requests never read the query token.
	req = httptest.NewRequest(http.MethodGet, "/drivers/x?access_token=driver", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || !got.IsAnonymous() {
		t.Fatalf("expected anonymous user, got %+v", got)
	}
}

func TestRequestID(t *testing.T) {
	m, _, _ := newTestMiddleware()

	var seen string
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = wrap.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
	if rec.Header().Get(requestIDHeader) != seen {
		t.Fatalf("request id must be echoed")
	}

	incoming := uuid.MustNew().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Fatalf("expected caller id %s, got %s", incoming, seen)
	}
}

func TestRecover(t *testing.T) {
	m, _, _ := newTestMiddleware()

	h := m.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestUnauthorizedBodyShape(t *testing.T) {
	m, _, _ := newTestMiddleware()
	h := m.Auth(m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {}, types.DriverRole))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

// assertErrorBody checks the {"error": ...} shape shared with the handlers.
func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["error"]; !ok || len(body) != 1 {
		t.Fatalf("unexpected body %v", body)
	}
}
