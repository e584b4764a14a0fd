package service

import (
	"context"
	"fmt"
	"time"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// PassingScore is the minimum quiz score that counts as a pass.
const PassingScore = 80

// EnrollmentService provides enrollment and progress tracking.
type EnrollmentService struct {
	guard *session.Guard
	audit *auditor
}

// NewEnrollmentService creates an EnrollmentService.
func NewEnrollmentService(guard *session.Guard) *EnrollmentService {
	return &EnrollmentService{guard: guard, audit: newAuditor(guard)}
}

// Enroll enrolls a user in a course. The course and the user must both be
// visible to the caller, which pins the enrollment to the caller's tenant.
func (s *EnrollmentService) Enroll(ctx context.Context, req domain.CreateEnrollmentRequest) (*domain.Enrollment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_ENROLLMENT(user_id=%d, course_id=%d)", req.UserID, req.CourseID)

	var out *domain.Enrollment
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		coursePred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		course, err := repository.NewCourseRepo(u.Tx).GetByID(ctx, req.CourseID, coursePred)
		if err != nil {
			return err
		}

		userPred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		if _, err := repository.NewUserRepo(u.Tx).GetByID(ctx, req.UserID, userPred); err != nil {
			return err
		}

		ok, err := u.Policy.CanCreate(authz.TableEnrollments,
			authz.Ref{TenantID: &course.TenantID, OwnerID: &req.UserID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot enroll user %d in course %d", req.UserID, req.CourseID)
		}

		created, err := repository.NewEnrollmentRepo(u.Tx).Create(ctx, course.TenantID, req)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableEnrollments, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableEnrollments, &out.ID, nil)
	return out, nil
}

// Get returns one enrollment visible to the caller.
func (s *EnrollmentService) Get(ctx context.Context, id int64) (*domain.Enrollment, error) {
	var out *domain.Enrollment
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableEnrollments)
		if err != nil {
			return err
		}
		e, err := repository.NewEnrollmentRepo(u.Tx).GetByID(ctx, id, pred)
		if err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// List returns the enrollments visible to the caller. Learners see their
// own, tenant staff see the whole tenant's.
func (s *EnrollmentService) List(ctx context.Context, page domain.PageRequest) ([]domain.Enrollment, int64, error) {
	var (
		out   []domain.Enrollment
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableEnrollments)
		if err != nil {
			return err
		}
		out, total, err = repository.NewEnrollmentRepo(u.Tx).List(ctx, pred, page)
		return err
	})
	return out, total, err
}

// RecordProgress advances an enrollment's progress, stamping completion at
// 100 percent.
func (s *EnrollmentService) RecordProgress(ctx context.Context, req domain.RecordProgressRequest) (*domain.Enrollment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("RECORD_PROGRESS(enrollment_id=%d, progress=%d)", req.EnrollmentID, req.Progress)

	var out *domain.Enrollment
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewEnrollmentRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableEnrollments)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, req.EnrollmentID, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanUpdate(authz.TableEnrollments,
			authz.Ref{TenantID: &current.TenantID, OwnerID: &current.UserID},
			authz.Ref{})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot record progress on enrollment %d", req.EnrollmentID)
		}

		// Progress never moves backwards.
		if req.Progress < current.Progress {
			req.Progress = current.Progress
		}
		completedAt := current.CompletedAt
		if req.Progress == 100 && completedAt == nil {
			now := time.Now().UTC()
			completedAt = &now
		}
		if err := repo.SetProgress(ctx, req.EnrollmentID, req.Progress, completedAt); err != nil {
			return err
		}
		current.Progress = req.Progress
		current.CompletedAt = completedAt
		out = current
		return nil
	})
	s.audit.outcome(ctx, p, action, authz.TableEnrollments, &req.EnrollmentID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordQuizAttempt records a quiz submission. A passing score completes
// the enrollment.
func (s *EnrollmentService) RecordQuizAttempt(ctx context.Context, req domain.RecordQuizAttemptRequest) (*domain.QuizAttempt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("RECORD_QUIZ_ATTEMPT(enrollment_id=%d)", req.EnrollmentID)

	var out *domain.QuizAttempt
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewEnrollmentRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableEnrollments)
		if err != nil {
			return err
		}
		enrollment, err := repo.GetByID(ctx, req.EnrollmentID, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanCreate(authz.TableQuizAttempts,
			authz.Ref{TenantID: &enrollment.TenantID, OwnerID: &enrollment.UserID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot record quiz attempt on enrollment %d", req.EnrollmentID)
		}

		passed := req.Score >= PassingScore
		created, err := repo.CreateQuizAttempt(ctx, &domain.QuizAttempt{
			TenantID:     enrollment.TenantID,
			UserID:       enrollment.UserID,
			EnrollmentID: enrollment.ID,
			Score:        req.Score,
			Passed:       passed,
		})
		if err != nil {
			return err
		}

		if passed && enrollment.CompletedAt == nil {
			now := time.Now().UTC()
			if err := repo.SetProgress(ctx, enrollment.ID, 100, &now); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableQuizAttempts, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableQuizAttempts, &out.ID, nil)
	return out, nil
}

// ListQuizAttempts returns an enrollment's quiz attempts, newest first.
func (s *EnrollmentService) ListQuizAttempts(ctx context.Context, enrollmentID int64) ([]domain.QuizAttempt, error) {
	var out []domain.QuizAttempt
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableQuizAttempts)
		if err != nil {
			return err
		}
		out, err = repository.NewEnrollmentRepo(u.Tx).ListQuizAttempts(ctx, enrollmentID, pred)
		return err
	})
	return out, err
}
