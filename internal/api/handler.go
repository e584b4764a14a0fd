// Package api provides the HTTP handlers for the awareness-training
// platform REST API. Handlers translate between JSON and domain types;
// every access decision lives in the service layer and below.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"phishdeck/internal/service"
)

// Handler carries the service dependencies for all routes.
type Handler struct {
	auth        *service.AuthService
	tenants     *service.TenantService
	users       *service.UserService
	courses     *service.CourseService
	enrollments *service.EnrollmentService
	campaigns   *service.CampaignService
	tracking    *service.TrackingService
	analytics   *service.AnalyticsService
	audit       *service.AuditService
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(
	auth *service.AuthService,
	tenants *service.TenantService,
	users *service.UserService,
	courses *service.CourseService,
	enrollments *service.EnrollmentService,
	campaigns *service.CampaignService,
	tracking *service.TrackingService,
	analytics *service.AnalyticsService,
	audit *service.AuditService,
) *Handler {
	return &Handler{
		auth:        auth,
		tenants:     tenants,
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		campaigns:   campaigns,
		tracking:    tracking,
		analytics:   analytics,
		audit:       audit,
	}
}

// Routes mounts the authenticated v1 API onto the router. The caller wires
// the auth middleware around this subtree; the public tracking routes are
// mounted separately via PublicRoutes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", h.createTenant)
		r.Get("/", h.listTenants)
		r.Get("/{tenantID}", h.getTenant)
		r.Post("/{tenantID}/suspend", h.suspendTenant)
		r.Post("/{tenantID}/reinstate", h.reinstateTenant)
		r.Delete("/{tenantID}", h.deleteTenant)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.createUser)
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
		r.Patch("/{userID}", h.updateUser)
		r.Delete("/{userID}", h.deleteUser)
	})

	r.Route("/courses", func(r chi.Router) {
		r.Post("/", h.createCourse)
		r.Get("/", h.listCourses)
		r.Get("/{courseID}", h.getCourse)
		r.Patch("/{courseID}", h.updateCourse)
		r.Delete("/{courseID}", h.deleteCourse)
		r.Post("/{courseID}/lessons", h.addLesson)
		r.Get("/{courseID}/lessons", h.listLessons)
	})

	r.Route("/enrollments", func(r chi.Router) {
		r.Post("/", h.createEnrollment)
		r.Get("/", h.listEnrollments)
		r.Get("/{enrollmentID}", h.getEnrollment)
		r.Post("/{enrollmentID}/progress", h.recordProgress)
		r.Post("/{enrollmentID}/quiz-attempts", h.recordQuizAttempt)
		r.Get("/{enrollmentID}/quiz-attempts", h.listQuizAttempts)
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", h.createCampaign)
		r.Get("/", h.listCampaigns)
		r.Get("/{campaignID}", h.getCampaign)
		r.Delete("/{campaignID}", h.deleteCampaign)
		r.Post("/{campaignID}/targets", h.addCampaignTargets)
		r.Get("/{campaignID}/targets", h.listCampaignTargets)
		r.Post("/{campaignID}/schedule", h.scheduleCampaign)
		r.Post("/{campaignID}/launch", h.launchCampaign)
		r.Post("/{campaignID}/complete", h.completeCampaign)
		r.Get("/{campaignID}/stats", h.campaignStats)
	})

	r.Route("/api-keys", func(r chi.Router) {
		r.Post("/", h.createAPIKey)
		r.Get("/", h.listAPIKeys)
		r.Delete("/{keyID}", h.revokeAPIKey)
	})

	r.Get("/analytics/overview", h.analyticsOverview)
	r.Get("/audit", h.listAudit)
}

// PublicRoutes mounts the unauthenticated routes: login and the tracking
// endpoints lure recipients hit.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/v1/auth/login", h.login)
	r.Get("/t/o/{token}", h.trackOpen)
	r.Get("/t/c/{token}", h.trackClick)
	r.Post("/t/r/{token}", h.trackReport)
}

// Health responds to liveness probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
