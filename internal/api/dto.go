package api

import (
	"time"

	"phishdeck/internal/domain"
)

// Wire representations. Password hashes and raw tokens never appear here
// except where a field is documented as shown-once.

type tenantDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Suspended bool      `json:"suspended"`
	CreatedAt time.Time `json:"created_at"`
}

func tenantToAPI(t domain.Tenant) tenantDTO {
	return tenantDTO{ID: t.ID, Name: t.Name, Slug: t.Slug, Suspended: t.Suspended, CreatedAt: t.CreatedAt}
}

type userDTO struct {
	ID              int64     `json:"id"`
	TenantID        *int64    `json:"tenant_id,omitempty"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	IsPlatformAdmin bool      `json:"is_platform_admin"`
	CreatedAt       time.Time `json:"created_at"`
}

func userToAPI(u domain.User) userDTO {
	return userDTO{
		ID:              u.ID,
		TenantID:        u.TenantID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		IsPlatformAdmin: u.IsPlatformAdmin,
		CreatedAt:       u.CreatedAt,
	}
}

type courseDTO struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
}

func courseToAPI(c domain.Course) courseDTO {
	return courseDTO{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Title:       c.Title,
		Description: c.Description,
		Published:   c.Published,
		CreatedAt:   c.CreatedAt,
	}
}

type lessonDTO struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Position int    `json:"position"`
}

func lessonToAPI(l domain.Lesson) lessonDTO {
	return lessonDTO{ID: l.ID, CourseID: l.CourseID, Title: l.Title, Body: l.Body, Position: l.Position}
}

type enrollmentDTO struct {
	ID          int64      `json:"id"`
	TenantID    int64      `json:"tenant_id"`
	UserID      int64      `json:"user_id"`
	CourseID    int64      `json:"course_id"`
	Progress    int        `json:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func enrollmentToAPI(e domain.Enrollment) enrollmentDTO {
	return enrollmentDTO{
		ID:          e.ID,
		TenantID:    e.TenantID,
		UserID:      e.UserID,
		CourseID:    e.CourseID,
		Progress:    e.Progress,
		CompletedAt: e.CompletedAt,
		CreatedAt:   e.CreatedAt,
	}
}

type quizAttemptDTO struct {
	ID           int64     `json:"id"`
	EnrollmentID int64     `json:"enrollment_id"`
	Score        int       `json:"score"`
	Passed       bool      `json:"passed"`
	CreatedAt    time.Time `json:"created_at"`
}

func quizAttemptToAPI(a domain.QuizAttempt) quizAttemptDTO {
	return quizAttemptDTO{
		ID:           a.ID,
		EnrollmentID: a.EnrollmentID,
		Score:        a.Score,
		Passed:       a.Passed,
		CreatedAt:    a.CreatedAt,
	}
}

type campaignDTO struct {
	ID          int64      `json:"id"`
	TenantID    int64      `json:"tenant_id"`
	Name        string     `json:"name"`
	Subject     string     `json:"subject"`
	LureURL     string     `json:"lure_url"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	LaunchedAt  *time.Time `json:"launched_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func campaignToAPI(c domain.Campaign) campaignDTO {
	return campaignDTO{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Subject:     c.Subject,
		LureURL:     c.LureURL,
		Status:      c.Status,
		ScheduledAt: c.ScheduledAt,
		LaunchedAt:  c.LaunchedAt,
		CreatedAt:   c.CreatedAt,
	}
}

type campaignTargetDTO struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	Email      string    `json:"email"`
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"created_at"`
}

func campaignTargetToAPI(t domain.CampaignTarget) campaignTargetDTO {
	return campaignTargetDTO{
		ID:         t.ID,
		CampaignID: t.CampaignID,
		Email:      t.Email,
		Token:      t.Token,
		CreatedAt:  t.CreatedAt,
	}
}

type campaignStatsDTO struct {
	CampaignID int64 `json:"campaign_id"`
	Targets    int64 `json:"targets"`
	Sent       int64 `json:"sent"`
	Opened     int64 `json:"opened"`
	Clicked    int64 `json:"clicked"`
	Reported   int64 `json:"reported"`
}

func campaignStatsToAPI(s domain.CampaignStats) campaignStatsDTO {
	return campaignStatsDTO{
		CampaignID: s.CampaignID,
		Targets:    s.Targets,
		Sent:       s.Sent,
		Opened:     s.Opened,
		Clicked:    s.Clicked,
		Reported:   s.Reported,
	}
}

type apiKeyDTO struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func apiKeyToAPI(k domain.APIKey) apiKeyDTO {
	return apiKeyDTO{
		ID:        k.ID,
		UserID:    k.UserID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		ExpiresAt: k.ExpiresAt,
		CreatedAt: k.CreatedAt,
	}
}

type auditEntryDTO struct {
	ID            int64     `json:"id"`
	TenantID      *int64    `json:"tenant_id,omitempty"`
	PrincipalName string    `json:"principal_name"`
	Action        string    `json:"action"`
	Entity        string    `json:"entity,omitempty"`
	EntityID      *int64    `json:"entity_id,omitempty"`
	Status        string    `json:"status"`
	Detail        *string   `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func auditEntryToAPI(e domain.AuditEntry) auditEntryDTO {
	return auditEntryDTO{
		ID:            e.ID,
		TenantID:      e.TenantID,
		PrincipalName: e.PrincipalName,
		Action:        e.Action,
		Entity:        e.Entity,
		EntityID:      e.EntityID,
		Status:        e.Status,
		Detail:        e.Detail,
		CreatedAt:     e.CreatedAt,
	}
}

type overviewDTO struct {
	Users                int64 `json:"users"`
	Courses              int64 `json:"courses"`
	Enrollments          int64 `json:"enrollments"`
	CompletedEnrollments int64 `json:"completed_enrollments"`
	Campaigns            int64 `json:"campaigns"`
}
