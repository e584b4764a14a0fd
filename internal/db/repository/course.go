package repository

import (
	"context"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// CourseRepo persists courses and their lessons.
type CourseRepo struct {
	q db.Querier
}

// NewCourseRepo creates a CourseRepo over one unit of work.
func NewCourseRepo(q db.Querier) *CourseRepo {
	return &CourseRepo{q: q}
}

const courseColumns = `id, tenant_id, title, description, published, created_at`

// Create inserts a new course.
func (r *CourseRepo) Create(ctx context.Context, tenantID int64, req domain.CreateCourseRequest) (*domain.Course, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO courses (tenant_id, title, description, published, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		tenantID, req.Title, req.Description, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Course{
		ID:          id,
		TenantID:    tenantID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
	}, nil
}

// GetByID returns one course visible under the predicate.
func (r *CourseRepo) GetByID(ctx context.Context, id int64, pred domain.Predicate) (*domain.Course, error) {
	query, args := withPredicate(
		`SELECT `+courseColumns+` FROM courses WHERE id = ?`,
		[]interface{}{id}, pred)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("course %d not found", id)
	}
	return scanCourse(rows)
}

// List returns courses visible under the predicate, paginated.
func (r *CourseRepo) List(ctx context.Context, pred domain.Predicate, page domain.PageRequest) ([]domain.Course, int64, error) {
	countQuery, countArgs := withPredicate(
		`SELECT COUNT(*) FROM courses WHERE 1 = 1`, nil, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, args := withPredicate(
		`SELECT `+courseColumns+` FROM courses WHERE 1 = 1`, nil, pred)
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *c)
	}
	return courses, total, rows.Err()
}

// Update applies a partial course update.
func (r *CourseRepo) Update(ctx context.Context, id int64, req domain.UpdateCourseRequest) error {
	query := `UPDATE courses SET id = id`
	var args []interface{}
	if req.Title != nil {
		query += `, title = ?`
		args = append(args, *req.Title)
	}
	if req.Description != nil {
		query += `, description = ?`
		args = append(args, *req.Description)
	}
	if req.Published != nil {
		query += `, published = ?`
		args = append(args, *req.Published)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("course %d not found", id)
	}
	return nil
}

// Delete removes a course and its lessons.
func (r *CourseRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM lessons WHERE course_id = ?`, id); err != nil {
		return mapDBError(err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("course %d not found", id)
	}
	return nil
}

// CreateLesson appends a lesson to a course.
func (r *CourseRepo) CreateLesson(ctx context.Context, tenantID int64, req domain.CreateLessonRequest) (*domain.Lesson, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO lessons (tenant_id, course_id, title, body, position)
		 VALUES (?, ?, ?, ?, ?)`,
		tenantID, req.CourseID, req.Title, req.Body, req.Position)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Lesson{
		ID:       id,
		TenantID: tenantID,
		CourseID: req.CourseID,
		Title:    req.Title,
		Body:     req.Body,
		Position: req.Position,
	}, nil
}

// ListLessons returns a course's lessons in position order, filtered by the
// predicate.
func (r *CourseRepo) ListLessons(ctx context.Context, courseID int64, pred domain.Predicate) ([]domain.Lesson, error) {
	query, args := withPredicate(
		`SELECT id, tenant_id, course_id, title, body, position FROM lessons WHERE course_id = ?`,
		[]interface{}{courseID}, pred)
	query += ` ORDER BY position, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []domain.Lesson
	for rows.Next() {
		var l domain.Lesson
		if err := rows.Scan(&l.ID, &l.TenantID, &l.CourseID, &l.Title, &l.Body, &l.Position); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// DeleteLesson removes one lesson.
func (r *CourseRepo) DeleteLesson(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("lesson %d not found", id)
	}
	return nil
}

func scanCourse(row rowScanner) (*domain.Course, error) {
	var c domain.Course
	if err := row.Scan(&c.ID, &c.TenantID, &c.Title, &c.Description, &c.Published, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
