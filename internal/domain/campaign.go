package domain

import "time"

// Campaign lifecycle states.
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
)

// Campaign event types, in funnel order.
const (
	EventSent     = "sent"
	EventOpened   = "opened"
	EventClicked  = "clicked"
	EventReported = "reported"
)

// Campaign is a simulated-phishing campaign owned by one tenant.
type Campaign struct {
	ID          int64
	TenantID    int64
	Name        string
	Subject     string // email subject line of the lure
	LureURL     string // landing page the lure points at
	Status      string
	ScheduledAt *time.Time
	LaunchedAt  *time.Time
	CreatedAt   time.Time
}

// CampaignTarget is one recipient of a campaign. The Token is the opaque
// identifier embedded in tracking links; it is the only thing a recipient's
// mail client ever sees.
type CampaignTarget struct {
	ID         int64
	TenantID   int64
	CampaignID int64
	Email      string
	Token      string // uuid, unique across all tenants
	CreatedAt  time.Time
}

// CampaignEvent records one tracked interaction with a campaign lure.
type CampaignEvent struct {
	ID         int64
	TenantID   int64
	CampaignID int64
	TargetID   int64
	Type       string // EventSent, EventOpened, EventClicked, EventReported
	UserAgent  string
	CreatedAt  time.Time
}

// CreateCampaignRequest holds parameters for creating a campaign.
type CreateCampaignRequest struct {
	TenantID *int64 // optional; stamped from scope when absent
	Name     string
	Subject  string
	LureURL  string
}

// Validate checks that the request is well-formed.
func (r *CreateCampaignRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("campaign name is required")
	}
	if r.LureURL == "" {
		return ErrValidation("lure_url is required")
	}
	return nil
}

// AddTargetsRequest adds recipients to a draft campaign.
type AddTargetsRequest struct {
	CampaignID int64
	Emails     []string
}

// Validate checks that the request is well-formed.
func (r *AddTargetsRequest) Validate() error {
	if r.CampaignID <= 0 {
		return ErrValidation("campaign_id is required")
	}
	if len(r.Emails) == 0 {
		return ErrValidation("at least one target email is required")
	}
	return nil
}

// ScheduleCampaignRequest moves a draft campaign to the scheduled state.
type ScheduleCampaignRequest struct {
	CampaignID  int64
	ScheduledAt time.Time
}

// Validate checks that the request is well-formed.
func (r *ScheduleCampaignRequest) Validate() error {
	if r.CampaignID <= 0 {
		return ErrValidation("campaign_id is required")
	}
	if r.ScheduledAt.IsZero() {
		return ErrValidation("scheduled_at is required")
	}
	return nil
}

// CampaignStats is the per-campaign tracking funnel.
type CampaignStats struct {
	CampaignID int64
	Targets    int64
	Sent       int64
	Opened     int64
	Clicked    int64
	Reported   int64
}
