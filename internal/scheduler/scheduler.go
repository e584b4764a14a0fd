// Package scheduler runs the campaign launcher: a cron job that promotes
// due scheduled campaigns to running and stamps the initial sent events.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// Scheduler drives time-based campaign launches.
type Scheduler struct {
	cron   *cron.Cron
	guard  *session.Guard
	logger *slog.Logger
}

// New creates a Scheduler.
func New(guard *session.Guard, logger *slog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), guard: guard, logger: logger}
}

// Start registers the launch job on the given cron spec and starts the
// scheduler.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.LaunchDue(context.Background()); err != nil {
			s.logger.Warn("campaign launch sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("campaign scheduler started", "spec", spec)
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("campaign scheduler stopped")
}

// LaunchDue promotes every scheduled campaign whose launch time has passed
// to running, recording one sent event per target. It runs under the named
// system scope: launches cross tenant boundaries by design and each event
// still lands in its campaign's tenant.
func (s *Scheduler) LaunchDue(ctx context.Context) error {
	return s.guard.System(ctx, "campaign-launcher", func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCampaignRepo(u.Tx)

		due, err := repo.ListDue(ctx, time.Now())
		if err != nil {
			return err
		}

		for _, campaign := range due {
			now := time.Now().UTC()
			if err := repo.SetStatus(ctx, campaign.ID, domain.CampaignRunning, nil, &now); err != nil {
				return err
			}

			targets, err := repo.ListTargets(ctx, campaign.ID, domain.MatchAll())
			if err != nil {
				return err
			}
			for _, target := range targets {
				if _, err := repo.InsertEvent(ctx, &domain.CampaignEvent{
					TenantID:   target.TenantID,
					CampaignID: campaign.ID,
					TargetID:   target.ID,
					Type:       domain.EventSent,
				}); err != nil {
					return err
				}
			}

			s.logger.Info("campaign launched",
				"campaign_id", campaign.ID,
				"tenant_id", campaign.TenantID,
				"targets", len(targets),
			)
		}
		return nil
	})
}
