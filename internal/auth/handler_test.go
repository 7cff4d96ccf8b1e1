package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	handler := NewHandler(nil, f.svc)
	mw := Middleware{Service: f.svc}
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		handler.MountRoutes(r, mw)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	router := newTestRouter(t, f)

	res := postJSON(t, router, "/auth/login", "", map[string]string{
		"username": "drsmith",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, res.Code)

	var out loginResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	require.True(t, f.svc.Validate(context.Background(), out.Token))
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	router := newTestRouter(t, f)

	res := postJSON(t, router, "/auth/login", "", map[string]string{
		"username": "drsmith",
		"password": "WrongPass!",
	})
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// Short passwords fail validation without reaching the service.
	res = postJSON(t, router, "/auth/login", "", map[string]string{
		"username": "drsmith",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	router := newTestRouter(t, f)

	tok := f.svc.Authenticate(context.Background(), "drsmith", "Secret123!", "", "")
	require.NotEmpty(t, tok)

	res := postJSON(t, router, "/auth/logout", tok, struct{}{})
	require.Equal(t, http.StatusNoContent, res.Code)
	require.False(t, f.svc.Validate(context.Background(), tok))

	// The revoked token no longer passes the middleware.
	res = postJSON(t, router, "/auth/logout", tok, struct{}{})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	router := newTestRouter(t, f)

	tok := f.svc.Authenticate(context.Background(), "drsmith", "Secret123!", "", "")
	require.NotEmpty(t, tok)

	res := postJSON(t, router, "/auth/password", tok, map[string]string{
		"current_password": "Secret123!",
		"new_password":     "NewSecret456!",
	})
	require.Equal(t, http.StatusNoContent, res.Code)
	require.NotEmpty(t, f.svc.Authenticate(context.Background(), "drsmith", "NewSecret456!", "", ""))
}

func TestMeEndpoint(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	router := newTestRouter(t, f)

	tok := f.svc.Authenticate(context.Background(), "drsmith", "Secret123!", "", "")
	require.NotEmpty(t, tok)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var out accountResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.Equal(t, "drsmith", out.Username)
	require.Equal(t, string(RoleClinician), out.Role)
	require.Contains(t, out.Permissions, PermViewPatients)
}

func TestRequirePermissionMiddleware(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.addAccount(t, "drsmith", "Secret123!", RoleClinician, true)
	f.addAccount(t, "root", "Secret123!", RoleAdministrator, true)

	mw := Middleware{Service: f.svc}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.With(mw.RequirePermission("Manage", "Users")).Get("/users", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	clinicianTok := f.svc.Authenticate(context.Background(), "drsmith", "Secret123!", "", "")
	adminTok := f.svc.Authenticate(context.Background(), "root", "Secret123!", "", "")

	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"clinician denied", clinicianTok, http.StatusForbidden},
		{"admin allowed", adminTok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			res := httptest.NewRecorder()
			r.ServeHTTP(res, req)
			require.Equal(t, tc.want, res.Code)
		})
	}
}
