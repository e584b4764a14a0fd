package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// CampaignService provides simulated-phishing campaign management. The
// lifecycle is draft -> scheduled -> running -> completed; targets can only
// be added to drafts.
type CampaignService struct {
	guard *session.Guard
	audit *auditor
}

// NewCampaignService creates a CampaignService.
func NewCampaignService(guard *session.Guard) *CampaignService {
	return &CampaignService{guard: guard, audit: newAuditor(guard)}
}

// Create adds a draft campaign to the caller's tenant.
func (s *CampaignService) Create(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_CAMPAIGN(name=%s)", req.Name)

	tenantID, err := resolveTenant(p, req.TenantID)
	if err != nil {
		return nil, err
	}

	var out *domain.Campaign
	err = s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		ok, err := u.Policy.CanCreate(authz.TableCampaigns, authz.Ref{TenantID: &tenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot create campaign in tenant %d", tenantID)
		}

		created, err := repository.NewCampaignRepo(u.Tx).Create(ctx, tenantID, req)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableCampaigns, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableCampaigns, &out.ID, nil)
	return out, nil
}

// Get returns one campaign visible to the caller.
func (s *CampaignService) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	var out *domain.Campaign
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		c, err := repository.NewCampaignRepo(u.Tx).GetByID(ctx, id, pred)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// List returns the campaigns visible to the caller, newest first.
func (s *CampaignService) List(ctx context.Context, page domain.PageRequest) ([]domain.Campaign, int64, error) {
	var (
		out   []domain.Campaign
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		out, total, err = repository.NewCampaignRepo(u.Tx).List(ctx, pred, page)
		return err
	})
	return out, total, err
}

// AddTargets adds recipients to a draft campaign, minting one tracking
// token per address.
func (s *CampaignService) AddTargets(ctx context.Context, req domain.AddTargetsRequest) ([]domain.CampaignTarget, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("ADD_CAMPAIGN_TARGETS(campaign_id=%d, n=%d)", req.CampaignID, len(req.Emails))

	var out []domain.CampaignTarget
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		campaign, err := repo.GetByID(ctx, req.CampaignID, pred)
		if err != nil {
			return err
		}
		if campaign.Status != domain.CampaignDraft {
			return domain.ErrValidation("targets can only be added to a draft campaign")
		}

		ok, err := u.Policy.CanCreate(authz.TableCampaignTargets, authz.Ref{TenantID: &campaign.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot add targets to campaign %d", req.CampaignID)
		}

		for _, email := range req.Emails {
			if email == "" {
				return domain.ErrValidation("target email must not be empty")
			}
			target, err := repo.AddTarget(ctx, &domain.CampaignTarget{
				TenantID:   campaign.TenantID,
				CampaignID: campaign.ID,
				Email:      email,
				Token:      uuid.NewString(),
			})
			if err != nil {
				return err
			}
			out = append(out, *target)
		}
		return nil
	})
	s.audit.outcome(ctx, p, action, authz.TableCampaignTargets, &req.CampaignID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTargets returns a campaign's recipients.
func (s *CampaignService) ListTargets(ctx context.Context, campaignID int64) ([]domain.CampaignTarget, error) {
	var out []domain.CampaignTarget
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableCampaignTargets)
		if err != nil {
			return err
		}
		out, err = repository.NewCampaignRepo(u.Tx).ListTargets(ctx, campaignID, pred)
		return err
	})
	return out, err
}

// Schedule moves a draft campaign to the scheduled state.
func (s *CampaignService) Schedule(ctx context.Context, req domain.ScheduleCampaignRequest) (*domain.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scheduledAt := req.ScheduledAt.UTC()
	return s.transition(ctx, req.CampaignID, domain.CampaignDraft, domain.CampaignScheduled, &scheduledAt, nil)
}

// Launch moves a draft or scheduled campaign to running immediately.
func (s *CampaignService) Launch(ctx context.Context, id int64) (*domain.Campaign, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, "", domain.CampaignRunning, nil, &now)
}

// Complete moves a running campaign to completed.
func (s *CampaignService) Complete(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.transition(ctx, id, domain.CampaignRunning, domain.CampaignCompleted, nil, nil)
}

// transition applies one lifecycle step. An empty fromStatus accepts either
// pre-launch state.
func (s *CampaignService) transition(ctx context.Context, id int64, fromStatus, toStatus string, scheduledAt, launchedAt *time.Time) (*domain.Campaign, error) {
	p := caller(ctx)
	action := fmt.Sprintf("TRANSITION_CAMPAIGN(id=%d, to=%s)", id, toStatus)

	var out *domain.Campaign
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		campaign, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		switch {
		case fromStatus != "" && campaign.Status != fromStatus:
			return domain.ErrValidation("campaign %d is %s, expected %s", id, campaign.Status, fromStatus)
		case fromStatus == "" && campaign.Status != domain.CampaignDraft && campaign.Status != domain.CampaignScheduled:
			return domain.ErrValidation("campaign %d is %s and cannot launch", id, campaign.Status)
		}

		ok, err := u.Policy.CanUpdate(authz.TableCampaigns,
			authz.Ref{TenantID: &campaign.TenantID}, authz.Ref{})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot transition campaign %d", id)
		}

		if err := repo.SetStatus(ctx, id, toStatus, scheduledAt, launchedAt); err != nil {
			return err
		}

		// Going live stamps one sent event per target.
		if toStatus == domain.CampaignRunning {
			targetPred, err := u.Policy.Filter(authz.TableCampaignTargets)
			if err != nil {
				return err
			}
			targets, err := repo.ListTargets(ctx, id, targetPred)
			if err != nil {
				return err
			}
			for _, target := range targets {
				if _, err := repo.InsertEvent(ctx, &domain.CampaignEvent{
					TenantID:   target.TenantID,
					CampaignID: id,
					TargetID:   target.ID,
					Type:       domain.EventSent,
				}); err != nil {
					return err
				}
			}
		}

		out, err = repo.GetByID(ctx, id, pred)
		return err
	})
	s.audit.outcome(ctx, p, action, authz.TableCampaigns, &id, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a campaign with its targets and events.
func (s *CampaignService) Delete(ctx context.Context, id int64) error {
	p := caller(ctx)
	action := fmt.Sprintf("DELETE_CAMPAIGN(id=%d)", id)

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanDelete(authz.TableCampaigns, authz.Ref{TenantID: &current.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot delete campaign %d", id)
		}
		return repo.Delete(ctx, id)
	})
	s.audit.outcome(ctx, p, action, authz.TableCampaigns, &id, err)
	return err
}

// Stats returns the tracking funnel for one campaign.
func (s *CampaignService) Stats(ctx context.Context, id int64) (*domain.CampaignStats, error) {
	var out *domain.CampaignStats
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		campaignPred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		if _, err := repo.GetByID(ctx, id, campaignPred); err != nil {
			return err
		}

		eventPred, err := u.Policy.Filter(authz.TableCampaignEvents)
		if err != nil {
			return err
		}
		out, err = repo.Stats(ctx, id, eventPred)
		return err
	})
	return out, err
}
