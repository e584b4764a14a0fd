package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/domain"
)

// launchCampaign creates a draft with two targets and launches it,
// returning the campaign and its targets.
func launchCampaign(t *testing.T, e *env, ctx context.Context) (*domain.Campaign, []domain.CampaignTarget) {
	t.Helper()

	campaign, err := e.campaigns.Create(ctx, domain.CreateCampaignRequest{
		Name:    "Q3 Payroll Lure",
		Subject: "Action required: payroll update",
		LureURL: "https://training.example/landing",
	})
	require.NoError(t, err)

	targets, err := e.campaigns.AddTargets(ctx, domain.AddTargetsRequest{
		CampaignID: campaign.ID,
		Emails:     []string{"alice@acme.example", "bob@acme.example"},
	})
	require.NoError(t, err)
	require.Len(t, targets, 2)

	campaign, err = e.campaigns.Launch(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CampaignRunning, campaign.Status)
	return campaign, targets
}

func TestCampaignLifecycle(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	campaign, err := e.campaigns.Create(ctx, domain.CreateCampaignRequest{
		Name:    "Onboarding Drill",
		LureURL: "https://training.example/landing",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, campaign.Status)

	when := time.Now().Add(24 * time.Hour).UTC()
	campaign, err = e.campaigns.Schedule(ctx, domain.ScheduleCampaignRequest{
		CampaignID: campaign.ID, ScheduledAt: when,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignScheduled, campaign.Status)
	require.NotNil(t, campaign.ScheduledAt)

	// Scheduling twice needs a draft.
	_, err = e.campaigns.Schedule(ctx, domain.ScheduleCampaignRequest{
		CampaignID: campaign.ID, ScheduledAt: when,
	})
	require.True(t, domain.IsValidation(err))

	// Launch accepts a scheduled campaign.
	campaign, err = e.campaigns.Launch(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignRunning, campaign.Status)
	require.NotNil(t, campaign.LaunchedAt)

	campaign, err = e.campaigns.Complete(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignCompleted, campaign.Status)

	// Completed campaigns never relaunch.
	_, err = e.campaigns.Launch(ctx, campaign.ID)
	require.True(t, domain.IsValidation(err))
}

func TestCampaignTargetsAreDraftOnly(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	campaign, targets := launchCampaign(t, e, ctx)
	for _, target := range targets {
		assert.NotEmpty(t, target.Token)
	}

	_, err := e.campaigns.AddTargets(ctx, domain.AddTargetsRequest{
		CampaignID: campaign.ID,
		Emails:     []string{"late@acme.example"},
	})
	require.True(t, domain.IsValidation(err))

	listed, err := e.campaigns.ListTargets(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestCampaignLaunchStampsSentEvents(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	campaign, _ := launchCampaign(t, e, ctx)

	stats, err := e.campaigns.Stats(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Targets)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(0), stats.Opened)
}

func TestCampaignInvisibleAcrossTenants(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)

	campaign, _ := launchCampaign(t, e, tenantCtx(f.acme.ID, "staff@acme.example"))

	other := tenantCtx(f.globex.ID, "staff@globex.example")
	_, err := e.campaigns.Get(other, campaign.ID)
	require.True(t, domain.IsNotFound(err))
	_, err = e.campaigns.Stats(other, campaign.ID)
	require.True(t, domain.IsNotFound(err))
	err = e.campaigns.Delete(other, campaign.ID)
	require.True(t, domain.IsNotFound(err))

	campaigns, total, err := e.campaigns.List(other, domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, campaigns)
}

func TestTrackingFunnel(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	campaign, targets := launchCampaign(t, e, ctx)
	token := targets[0].Token
	background := context.Background()

	require.NoError(t, e.tracking.RecordOpen(background, token, "test-agent"))
	require.NoError(t, e.tracking.RecordOpen(background, token, "test-agent"))

	landing, err := e.tracking.RecordClick(background, token, "test-agent")
	require.NoError(t, err)
	assert.Equal(t, "https://training.example/landing", landing)

	require.NoError(t, e.tracking.RecordReport(background, token, "test-agent"))

	// The funnel counts distinct targets, not raw events.
	stats, err := e.campaigns.Stats(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Opened)
	assert.Equal(t, int64(1), stats.Clicked)
	assert.Equal(t, int64(1), stats.Reported)
}

func TestTrackingTokenQuietOutsideCampaignWindow(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")
	background := context.Background()

	campaign, targets := launchCampaign(t, e, ctx)
	_, err := e.campaigns.Complete(ctx, campaign.ID)
	require.NoError(t, err)

	err = e.tracking.RecordOpen(background, targets[0].Token, "test-agent")
	require.True(t, domain.IsNotFound(err))

	// A made-up token reads the same as a completed one.
	err = e.tracking.RecordOpen(background, "no-such-token", "test-agent")
	require.True(t, domain.IsNotFound(err))
}
