package domain

import "time"

// Enrollment links a user to a course and tracks completion. It is
// owner-scoped: learners see their own enrollments, tenant staff see the
// whole tenant's.
type Enrollment struct {
	ID          int64
	TenantID    int64
	UserID      int64
	CourseID    int64
	Progress    int // percent complete, 0..100
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// QuizAttempt records one quiz submission for an enrollment.
type QuizAttempt struct {
	ID           int64
	TenantID     int64
	UserID       int64
	EnrollmentID int64
	Score        int // percent correct, 0..100
	Passed       bool
	CreatedAt    time.Time
}

// CreateEnrollmentRequest holds parameters for enrolling a user in a course.
type CreateEnrollmentRequest struct {
	UserID   int64
	CourseID int64
}

// Validate checks that the request is well-formed.
func (r *CreateEnrollmentRequest) Validate() error {
	if r.UserID <= 0 {
		return ErrValidation("user_id is required")
	}
	if r.CourseID <= 0 {
		return ErrValidation("course_id is required")
	}
	return nil
}

// RecordProgressRequest advances an enrollment's progress percentage.
type RecordProgressRequest struct {
	EnrollmentID int64
	Progress     int
}

// Validate checks that the request is well-formed.
func (r *RecordProgressRequest) Validate() error {
	if r.EnrollmentID <= 0 {
		return ErrValidation("enrollment_id is required")
	}
	if r.Progress < 0 || r.Progress > 100 {
		return ErrValidation("progress must be between 0 and 100")
	}
	return nil
}

// RecordQuizAttemptRequest records a quiz submission.
type RecordQuizAttemptRequest struct {
	EnrollmentID int64
	Score        int
}

// Validate checks that the request is well-formed.
func (r *RecordQuizAttemptRequest) Validate() error {
	if r.EnrollmentID <= 0 {
		return ErrValidation("enrollment_id is required")
	}
	if r.Score < 0 || r.Score > 100 {
		return ErrValidation("score must be between 0 and 100")
	}
	return nil
}
