package repository

import (
	"context"
	"database/sql"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// EnrollmentRepo persists enrollments and quiz attempts.
type EnrollmentRepo struct {
	q db.Querier
}

// NewEnrollmentRepo creates an EnrollmentRepo over one unit of work.
func NewEnrollmentRepo(q db.Querier) *EnrollmentRepo {
	return &EnrollmentRepo{q: q}
}

const enrollmentColumns = `id, tenant_id, user_id, course_id, progress, completed_at, created_at`

// Create enrolls a user in a course.
func (r *EnrollmentRepo) Create(ctx context.Context, tenantID int64, req domain.CreateEnrollmentRequest) (*domain.Enrollment, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO enrollments (tenant_id, user_id, course_id, progress, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		tenantID, req.UserID, req.CourseID, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Enrollment{
		ID:        id,
		TenantID:  tenantID,
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		CreatedAt: now,
	}, nil
}

// GetByID returns one enrollment visible under the predicate.
func (r *EnrollmentRepo) GetByID(ctx context.Context, id int64, pred domain.Predicate) (*domain.Enrollment, error) {
	query, args := withPredicate(
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`,
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
		return nil, domain.ErrNotFound("enrollment %d not found", id)
	}
	return scanEnrollment(rows)
}

// List returns enrollments visible under the predicate, paginated.
func (r *EnrollmentRepo) List(ctx context.Context, pred domain.Predicate, page domain.PageRequest) ([]domain.Enrollment, int64, error) {
	countQuery, countArgs := withPredicate(
		`SELECT COUNT(*) FROM enrollments WHERE 1 = 1`, nil, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, args := withPredicate(
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE 1 = 1`, nil, pred)
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var enrollments []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, err
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, total, rows.Err()
}

// SetProgress updates an enrollment's progress percentage, stamping the
// completion time when it reaches 100.
func (r *EnrollmentRepo) SetProgress(ctx context.Context, id int64, progress int, completedAt *time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE enrollments SET progress = ?, completed_at = ? WHERE id = ?`,
		progress, nullTime(completedAt), id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("enrollment %d not found", id)
	}
	return nil
}

// CreateQuizAttempt records a quiz submission for an enrollment.
func (r *EnrollmentRepo) CreateQuizAttempt(ctx context.Context, a *domain.QuizAttempt) (*domain.QuizAttempt, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO quiz_attempts (tenant_id, user_id, enrollment_id, score, passed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.TenantID, a.UserID, a.EnrollmentID, a.Score, a.Passed, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *a
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// ListQuizAttempts returns an enrollment's quiz attempts, newest first,
// filtered by the predicate.
func (r *EnrollmentRepo) ListQuizAttempts(ctx context.Context, enrollmentID int64, pred domain.Predicate) ([]domain.QuizAttempt, error) {
	query, args := withPredicate(
		`SELECT id, tenant_id, user_id, enrollment_id, score, passed, created_at
		 FROM quiz_attempts WHERE enrollment_id = ?`,
		[]interface{}{enrollmentID}, pred)
	query += ` ORDER BY id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		if err := rows.Scan(&a.ID, &a.TenantID, &a.UserID, &a.EnrollmentID, &a.Score, &a.Passed, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountCompleted returns the number of completed enrollments visible under
// the predicate.
func (r *EnrollmentRepo) CountCompleted(ctx context.Context, pred domain.Predicate) (int64, error) {
	query, args := withPredicate(
		`SELECT COUNT(*) FROM enrollments WHERE completed_at IS NOT NULL`, nil, pred)
	return countRows(ctx, r.q, query, args)
}

func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var (
		e           domain.Enrollment
		completedAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.UserID, &e.CourseID, &e.Progress, &completedAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.CompletedAt = timePtr(completedAt)
	return &e, nil
}
