package service

import (
	"context"

	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// TrackingService ingests lure interactions. Tracking endpoints carry no
// principal; the unguessable per-target token is the access control, and
// ingestion runs under the named system scope so the event lands in the
// target's tenant regardless of who clicked.
type TrackingService struct {
	guard *session.Guard
}

// NewTrackingService creates a TrackingService.
func NewTrackingService(guard *session.Guard) *TrackingService {
	return &TrackingService{guard: guard}
}

// RecordOpen records a lure-email open for the token's target.
func (s *TrackingService) RecordOpen(ctx context.Context, token, userAgent string) error {
	_, err := s.ingest(ctx, token, domain.EventOpened, userAgent)
	return err
}

// RecordClick records a lure-link click and returns the campaign's landing
// URL for the redirect.
func (s *TrackingService) RecordClick(ctx context.Context, token, userAgent string) (string, error) {
	campaign, err := s.ingest(ctx, token, domain.EventClicked, userAgent)
	if err != nil {
		return "", err
	}
	return campaign.LureURL, nil
}

// RecordReport records that the recipient reported the lure as phishing.
func (s *TrackingService) RecordReport(ctx context.Context, token, userAgent string) error {
	_, err := s.ingest(ctx, token, domain.EventReported, userAgent)
	return err
}

func (s *TrackingService) ingest(ctx context.Context, token, eventType, userAgent string) (*domain.Campaign, error) {
	var campaign *domain.Campaign
	err := s.guard.System(ctx, "tracking", func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		target, err := repo.GetTargetByToken(ctx, token)
		if err != nil {
			return err
		}
		c, err := repo.GetByID(ctx, target.CampaignID, domain.MatchAll())
		if err != nil {
			return err
		}
		if c.Status != domain.CampaignRunning {
			// Tokens go quiet outside the campaign window.
			return domain.ErrNotFound("unknown tracking token")
		}

		if _, err := repo.InsertEvent(ctx, &domain.CampaignEvent{
			TenantID:   target.TenantID,
			CampaignID: target.CampaignID,
			TargetID:   target.ID,
			Type:       eventType,
			UserAgent:  userAgent,
		}); err != nil {
			return err
		}
		campaign = c
		return nil
	})
	return campaign, err
}
