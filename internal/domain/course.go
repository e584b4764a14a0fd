package domain

import "time"

// Course is a tenant-scoped training course.
type Course struct {
	ID          int64
	TenantID    int64
	Title       string
	Description string
	Published   bool
	CreatedAt   time.Time
}

// Lesson is one unit of course content, ordered by Position.
type Lesson struct {
	ID       int64
	TenantID int64
	CourseID int64
	Title    string
	Body     string
	Position int
}

// CreateCourseRequest holds parameters for creating a course.
type CreateCourseRequest struct {
	TenantID    *int64 // optional; stamped from scope when absent
	Title       string
	Description string
}

// Validate checks that the request is well-formed.
func (r *CreateCourseRequest) Validate() error {
	if r.Title == "" {
		return ErrValidation("course title is required")
	}
	return nil
}

// CreateLessonRequest holds parameters for appending a lesson to a course.
type CreateLessonRequest struct {
	CourseID int64
	Title    string
	Body     string
	Position int
}

// Validate checks that the request is well-formed.
func (r *CreateLessonRequest) Validate() error {
	if r.CourseID <= 0 {
		return ErrValidation("course_id is required")
	}
	if r.Title == "" {
		return ErrValidation("lesson title is required")
	}
	return nil
}

// UpdateCourseRequest carries a partial course update. TenantID is present
// so the policy evaluator can reject cross-tenant moves.
type UpdateCourseRequest struct {
	Title       *string
	Description *string
	Published   *bool
	TenantID    *int64
}
