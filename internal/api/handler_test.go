package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/api"
	"phishdeck/internal/app"
	"phishdeck/internal/config"
	"phishdeck/internal/db"
	"phishdeck/internal/middleware"
)

const (
	adminEmail    = "root@platform.example"
	adminPassword = "root-password"
)

// newServer boots the full stack against a fresh database, seeds the
// platform admin, and serves the same route tree main() mounts.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	writeDB, readDB := db.OpenTestSQLite(t)
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-0123456789abcdef0123",
			TokenTTL:  time.Hour,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.New(context.Background(), app.Deps{
		Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger,
	})
	require.NoError(t, err)
	require.NoError(t, app.SeedAdmin(context.Background(), a.Guard, adminEmail, adminPassword))

	r := chi.NewRouter()
	r.Get("/healthz", api.Health)
	a.Handler.PublicRoutes(r)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(a.Validator, a.Services.Auth))
		a.Handler.Routes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// call issues one JSON request and decodes the response body into out when
// it is non-nil.
func call(t *testing.T, srv *httptest.Server, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	status := call(t, srv, http.MethodPost, "/v1/auth/login", "",
		map[string]string{"email": email, "password": password}, &out)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// provisionTenant creates a tenant plus one staff user through the API and
// returns the tenant id and the staff token.
func provisionTenant(t *testing.T, srv *httptest.Server, adminToken, slug string) (int64, string) {
	t.Helper()

	var tenant struct {
		ID int64 `json:"id"`
	}
	status := call(t, srv, http.MethodPost, "/v1/tenants", adminToken,
		map[string]string{"name": slug + " Inc", "slug": slug}, &tenant)
	require.Equal(t, http.StatusCreated, status)

	email := "staff@" + slug + ".example"
	status = call(t, srv, http.MethodPost, "/v1/users", adminToken, map[string]interface{}{
		"tenant_id":    tenant.ID,
		"email":        email,
		"display_name": "Staff",
		"password":     "staff-password",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	return tenant.ID, login(t, srv, email, "staff-password")
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	var out map[string]string
	status := call(t, srv, http.MethodGet, "/healthz", "", nil, &out)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newServer(t)

	assert.Equal(t, http.StatusUnauthorized,
		call(t, srv, http.MethodGet, "/v1/courses", "", nil, nil))

	var out struct {
		Message string `json:"message"`
	}
	status := call(t, srv, http.MethodPost, "/v1/auth/login", "",
		map[string]string{"email": adminEmail, "password": "wrong"}, &out)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "invalid credentials", out.Message)
}

func TestCourseCRUDOverHTTP(t *testing.T) {
	srv := newServer(t)
	adminToken := login(t, srv, adminEmail, adminPassword)
	_, staffToken := provisionTenant(t, srv, adminToken, "acme")

	var course struct {
		ID       int64 `json:"id"`
		TenantID int64 `json:"tenant_id"`
	}
	status := call(t, srv, http.MethodPost, "/v1/courses", staffToken, map[string]string{
		"title":       "Spotting Phishing Emails",
		"description": "The basics",
	}, &course)
	require.Equal(t, http.StatusCreated, status)
	assert.NotZero(t, course.TenantID)

	var list struct {
		Items     []json.RawMessage `json:"items"`
		TotalSize int64             `json:"total_size"`
	}
	status = call(t, srv, http.MethodGet, "/v1/courses", staffToken, nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), list.TotalSize)

	status = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/courses/%d/lessons", course.ID), staffToken,
		map[string]interface{}{"title": "Lesson One", "body": "Look at the sender.", "position": 1}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, srv, http.MethodDelete, fmt.Sprintf("/v1/courses/%d", course.ID), staffToken, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = call(t, srv, http.MethodGet, fmt.Sprintf("/v1/courses/%d", course.ID), staffToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCrossTenantReadsAre404OverHTTP(t *testing.T) {
	srv := newServer(t)
	adminToken := login(t, srv, adminEmail, adminPassword)
	_, acmeToken := provisionTenant(t, srv, adminToken, "acme")
	_, globexToken := provisionTenant(t, srv, adminToken, "globex")

	var course struct {
		ID int64 `json:"id"`
	}
	status := call(t, srv, http.MethodPost, "/v1/courses", acmeToken,
		map[string]string{"title": "Acme Internal"}, &course)
	require.Equal(t, http.StatusCreated, status)

	// Same shape as a genuinely missing id: no existence oracle.
	assert.Equal(t, http.StatusNotFound,
		call(t, srv, http.MethodGet, fmt.Sprintf("/v1/courses/%d", course.ID), globexToken, nil, nil))
	assert.Equal(t, http.StatusNotFound,
		call(t, srv, http.MethodGet, "/v1/courses/999999", globexToken, nil, nil))

	// And the foreign tenant's listing stays empty.
	var list struct {
		TotalSize int64 `json:"total_size"`
	}
	status = call(t, srv, http.MethodGet, "/v1/courses", globexToken, nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, list.TotalSize)
}

func TestCampaignAndTrackingOverHTTP(t *testing.T) {
	srv := newServer(t)
	adminToken := login(t, srv, adminEmail, adminPassword)
	_, staffToken := provisionTenant(t, srv, adminToken, "acme")

	var campaign struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status := call(t, srv, http.MethodPost, "/v1/campaigns", staffToken, map[string]string{
		"name":     "Q3 Payroll Lure",
		"subject":  "Action required",
		"lure_url": "https://training.example/landing",
	}, &campaign)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "draft", campaign.Status)

	var targets struct {
		Items []struct {
			Token string `json:"token"`
		} `json:"items"`
	}
	status = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/campaigns/%d/targets", campaign.ID), staffToken,
		map[string]interface{}{"emails": []string{"alice@acme.example"}}, &targets)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, targets.Items, 1)
	token := targets.Items[0].Token

	status = call(t, srv, http.MethodPost, fmt.Sprintf("/v1/campaigns/%d/launch", campaign.ID), staffToken, nil, &campaign)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "running", campaign.Status)

	// The pixel always comes back a 200 GIF, live token or not.
	for _, tok := range []string{token, "no-such-token"} {
		resp, err := srv.Client().Get(srv.URL + "/t/o/" + tok)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, body)
	}

	// Click redirects to the landing page.
	client := srv.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Get(srv.URL + "/t/c/" + token)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://training.example/landing", resp.Header.Get("Location"))

	// Unknown click token 404s.
	resp, err = client.Get(srv.URL + "/t/c/no-such-token")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, http.StatusNoContent,
		call(t, srv, http.MethodPost, "/t/r/"+token, "", nil, nil))

	var stats struct {
		Sent     int64 `json:"sent"`
		Opened   int64 `json:"opened"`
		Clicked  int64 `json:"clicked"`
		Reported int64 `json:"reported"`
	}
	status = call(t, srv, http.MethodGet, fmt.Sprintf("/v1/campaigns/%d/stats", campaign.ID), staffToken, nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(1), stats.Opened)
	assert.Equal(t, int64(1), stats.Clicked)
	assert.Equal(t, int64(1), stats.Reported)
}

func TestAnalyticsAndAuditOverHTTP(t *testing.T) {
	srv := newServer(t)
	adminToken := login(t, srv, adminEmail, adminPassword)
	tenantID, staffToken := provisionTenant(t, srv, adminToken, "acme")

	status := call(t, srv, http.MethodPost, "/v1/courses", staffToken,
		map[string]string{"title": "Course"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var overview struct {
		Users   int64 `json:"users"`
		Courses int64 `json:"courses"`
	}
	status = call(t, srv, http.MethodGet, "/v1/analytics/overview", staffToken, nil, &overview)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), overview.Users)
	assert.Equal(t, int64(1), overview.Courses)

	var audit struct {
		Items []struct {
			TenantID *int64 `json:"tenant_id"`
			Status   string `json:"status"`
		} `json:"items"`
	}
	status = call(t, srv, http.MethodGet, "/v1/audit", staffToken, nil, &audit)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, audit.Items)
	for _, entry := range audit.Items {
		require.NotNil(t, entry.TenantID)
		assert.Equal(t, tenantID, *entry.TenantID)
	}

	// A tenant-scoped caller cannot suspend anyone.
	assert.Equal(t, http.StatusForbidden,
		call(t, srv, http.MethodPost, fmt.Sprintf("/v1/tenants/%d/suspend", tenantID), staffToken, nil, nil))
}
