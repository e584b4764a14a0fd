package app_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/app"
	"phishdeck/internal/authz"
	"phishdeck/internal/db"
	"phishdeck/internal/domain"
	"phishdeck/internal/service"
	"phishdeck/internal/session"
)

func newGuard(t *testing.T) *session.Guard {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return session.NewGuard(writeDB, readDB, authz.PlatformRegistry(), logger)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	guard := newGuard(t)
	ctx := context.Background()

	require.NoError(t, app.SeedAdmin(ctx, guard, "root@platform.example", "first-password"))
	require.NoError(t, app.SeedAdmin(ctx, guard, "root@platform.example", "second-password"))

	// The original credentials survive the second run.
	auth := service.NewAuthService(guard, []byte("seed-test-secret"), time.Hour)
	_, user, err := auth.Login(ctx, "root@platform.example", "first-password")
	require.NoError(t, err)
	assert.True(t, user.IsPlatformAdmin)
	assert.Nil(t, user.TenantID)

	_, _, err = auth.Login(ctx, "root@platform.example", "second-password")
	require.True(t, domain.IsAccessDenied(err))
}

func TestSeedAdminRequiresCredentials(t *testing.T) {
	guard := newGuard(t)
	err := app.SeedAdmin(context.Background(), guard, "", "pw")
	require.True(t, domain.IsValidation(err))
}

const demoYAML = `
tenants:
  - name: Acme Corp
    slug: acme
    users:
      - email: alice@acme.example
        display_name: Alice
        password: alice-password
      - email: bob@acme.example
        display_name: Bob
        password: bob-password
    courses:
      - title: Spotting Phishing Emails
        lessons:
          - title: The sender line
            body: Check the domain.
            position: 1
      - title: Password Hygiene
    campaigns:
      - name: Q3 Payroll Lure
        subject: Action required
        lure_url: https://training.example/landing
        targets:
          - alice@acme.example
          - bob@acme.example
`

func TestSeedDemoFromFixture(t *testing.T) {
	guard := newGuard(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(demoYAML), 0o600))

	fx, err := app.LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, fx.Tenants, 1)

	require.NoError(t, app.SeedDemo(ctx, guard, fx))
	// Second run skips the existing slug entirely.
	require.NoError(t, app.SeedDemo(ctx, guard, fx))

	admin := domain.WithPrincipal(ctx, domain.Principal{IsPlatformAdmin: true, Name: "root"})
	overview, err := service.NewAnalyticsService(guard).Overview(admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.Users)
	assert.Equal(t, int64(2), overview.Courses)
	assert.Equal(t, int64(1), overview.Campaigns)
	// Every seeded user starts the first course.
	assert.Equal(t, int64(2), overview.Enrollments)

	campaigns, _, err := service.NewCampaignService(guard).List(admin, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, domain.CampaignDraft, campaigns[0].Status)
}

func TestLoadFixtureErrors(t *testing.T) {
	_, err := app.LoadFixture(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tenants: {not: [valid"), 0o600))
	_, err = app.LoadFixture(path)
	require.Error(t, err)
}
