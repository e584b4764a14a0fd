package service

import (
	"context"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// AnalyticsService aggregates training and campaign figures. Everything
// runs through the same guarded read path as the entity listings, so the
// numbers a caller sees are computed over exactly the rows it could list.
type AnalyticsService struct {
	guard *session.Guard
}

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(guard *session.Guard) *AnalyticsService {
	return &AnalyticsService{guard: guard}
}

// Overview returns the caller's visible counts across the platform's core
// entities.
func (s *AnalyticsService) Overview(ctx context.Context) (*domain.TenantOverview, error) {
	one := domain.PageRequest{MaxResults: 1}
	out := &domain.TenantOverview{}

	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		userPred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		if _, out.Users, err = repository.NewUserRepo(u.Tx).List(ctx, userPred, one); err != nil {
			return err
		}

		coursePred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		if _, out.Courses, err = repository.NewCourseRepo(u.Tx).List(ctx, coursePred, one); err != nil {
			return err
		}

		enrollmentPred, err := u.Policy.Filter(authz.TableEnrollments)
		if err != nil {
			return err
		}
		enrollments := repository.NewEnrollmentRepo(u.Tx)
		if _, out.Enrollments, err = enrollments.List(ctx, enrollmentPred, one); err != nil {
			return err
		}
		if out.CompletedEnrollments, err = enrollments.CountCompleted(ctx, enrollmentPred); err != nil {
			return err
		}

		campaignPred, err := u.Policy.Filter(authz.TableCampaigns)
		if err != nil {
			return err
		}
		_, out.Campaigns, err = repository.NewCampaignRepo(u.Tx).List(ctx, campaignPred, one)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
