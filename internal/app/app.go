// Package app provides application-level wiring: it assembles the entity
// registry, session guard, services, and HTTP handler from the external
// dependencies main() provides.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"phishdeck/internal/api"
	"phishdeck/internal/authz"
	"phishdeck/internal/config"
	"phishdeck/internal/middleware"
	"phishdeck/internal/rls"
	"phishdeck/internal/scheduler"
	"phishdeck/internal/service"
	"phishdeck/internal/session"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups all service pointers the API handler and CLI need.
type Services struct {
	Auth        *service.AuthService
	Tenants     *service.TenantService
	Users       *service.UserService
	Courses     *service.CourseService
	Enrollments *service.EnrollmentService
	Campaigns   *service.CampaignService
	Tracking    *service.TrackingService
	Analytics   *service.AnalyticsService
	Audit       *service.AuditService
}

// App holds the fully-wired application.
type App struct {
	Services  Services
	Guard     *session.Guard
	Registry  *authz.Registry
	Handler   *api.Handler
	Validator middleware.TokenValidator
	Scheduler *scheduler.Scheduler
}

// New wires the registry, guard, services, and handler from the provided
// deps. It verifies at startup that every table in the database is governed
// by the registry; an unregistered table fails the boot.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	reg := authz.PlatformRegistry()
	if err := rls.Verify(ctx, deps.ReadDB, reg); err != nil {
		return nil, fmt.Errorf("registry verification: %w", err)
	}

	guard := session.NewGuard(deps.WriteDB, deps.ReadDB, reg, deps.Logger.With("component", "session"))

	svcs := Services{
		Auth:        service.NewAuthService(guard, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		Tenants:     service.NewTenantService(guard),
		Users:       service.NewUserService(guard),
		Courses:     service.NewCourseService(guard),
		Enrollments: service.NewEnrollmentService(guard),
		Campaigns:   service.NewCampaignService(guard),
		Tracking:    service.NewTrackingService(guard),
		Analytics:   service.NewAnalyticsService(guard),
		Audit:       service.NewAuditService(guard),
	}

	handler := api.NewHandler(
		svcs.Auth, svcs.Tenants, svcs.Users, svcs.Courses,
		svcs.Enrollments, svcs.Campaigns, svcs.Tracking,
		svcs.Analytics, svcs.Audit,
	)

	validator, err := buildValidator(ctx, cfg, deps.Logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Services:  svcs,
		Guard:     guard,
		Registry:  reg,
		Handler:   handler,
		Validator: validator,
		Scheduler: scheduler.New(guard, deps.Logger.With("component", "scheduler")),
	}, nil
}

// buildValidator assembles the token validator: platform-issued HS256
// tokens always work, and an external OIDC issuer is chained in when
// configured.
func buildValidator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (middleware.TokenValidator, error) {
	hs, err := middleware.NewHS256Validator([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("jwt validator: %w", err)
	}
	if !cfg.Auth.OIDCEnabled() {
		return hs, nil
	}

	oidcValidator, err := middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience, cfg.Auth.AllowedIssuers)
	if err != nil {
		return nil, fmt.Errorf("oidc validator: %w", err)
	}
	logger.Info("external OIDC issuer enabled", "issuer", cfg.Auth.IssuerURL)
	return middleware.ChainValidator{hs, oidcValidator}, nil
}
