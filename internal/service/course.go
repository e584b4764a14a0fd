package service

import (
	"context"
	"fmt"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// CourseService provides training course and lesson management.
type CourseService struct {
	guard *session.Guard
	audit *auditor
}

// NewCourseService creates a CourseService.
func NewCourseService(guard *session.Guard) *CourseService {
	return &CourseService{guard: guard, audit: newAuditor(guard)}
}

// Create adds a course to the caller's tenant.
func (s *CourseService) Create(ctx context.Context, req domain.CreateCourseRequest) (*domain.Course, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_COURSE(title=%s)", req.Title)

	tenantID, err := resolveTenant(p, req.TenantID)
	if err != nil {
		return nil, err
	}

	var out *domain.Course
	err = s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		ok, err := u.Policy.CanCreate(authz.TableCourses, authz.Ref{TenantID: &tenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot create course in tenant %d", tenantID)
		}

		created, err := repository.NewCourseRepo(u.Tx).Create(ctx, tenantID, req)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableCourses, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableCourses, &out.ID, nil)
	return out, nil
}

// Get returns one course visible to the caller.
func (s *CourseService) Get(ctx context.Context, id int64) (*domain.Course, error) {
	var out *domain.Course
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		c, err := repository.NewCourseRepo(u.Tx).GetByID(ctx, id, pred)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// List returns the courses visible to the caller.
func (s *CourseService) List(ctx context.Context, page domain.PageRequest) ([]domain.Course, int64, error) {
	var (
		out   []domain.Course
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		out, total, err = repository.NewCourseRepo(u.Tx).List(ctx, pred, page)
		return err
	})
	return out, total, err
}

// Update applies a partial course update.
func (s *CourseService) Update(ctx context.Context, id int64, req domain.UpdateCourseRequest) (*domain.Course, error) {
	p := caller(ctx)
	action := fmt.Sprintf("UPDATE_COURSE(id=%d)", id)

	var out *domain.Course
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCourseRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanUpdate(authz.TableCourses,
			authz.Ref{TenantID: &current.TenantID},
			authz.Ref{TenantID: req.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot update course %d", id)
		}

		if err := repo.Update(ctx, id, req); err != nil {
			return err
		}
		out, err = repo.GetByID(ctx, id, pred)
		return err
	})
	s.audit.outcome(ctx, p, action, authz.TableCourses, &id, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a course and its lessons.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	p := caller(ctx)
	action := fmt.Sprintf("DELETE_COURSE(id=%d)", id)

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCourseRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanDelete(authz.TableCourses, authz.Ref{TenantID: &current.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot delete course %d", id)
		}
		return repo.Delete(ctx, id)
	})
	s.audit.outcome(ctx, p, action, authz.TableCourses, &id, err)
	return err
}

// AddLesson appends a lesson to a course the caller can see.
func (s *CourseService) AddLesson(ctx context.Context, req domain.CreateLessonRequest) (*domain.Lesson, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_LESSON(course_id=%d)", req.CourseID)

	var out *domain.Lesson
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewCourseRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableCourses)
		if err != nil {
			return err
		}
		course, err := repo.GetByID(ctx, req.CourseID, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanCreate(authz.TableLessons, authz.Ref{TenantID: &course.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot add lesson to course %d", req.CourseID)
		}

		created, err := repo.CreateLesson(ctx, course.TenantID, req)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableLessons, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableLessons, &out.ID, nil)
	return out, nil
}

// ListLessons returns a course's lessons in position order.
func (s *CourseService) ListLessons(ctx context.Context, courseID int64) ([]domain.Lesson, error) {
	var out []domain.Lesson
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableLessons)
		if err != nil {
			return err
		}
		out, err = repository.NewCourseRepo(u.Tx).ListLessons(ctx, courseID, pred)
		return err
	})
	return out, err
}
