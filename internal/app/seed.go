package app

import (
	"context"
	"fmt"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// SeedAdmin creates the initial platform admin account. Idempotent: an
// existing account with the same email is left alone.
func SeedAdmin(ctx context.Context, guard *session.Guard, email, password string) error {
	if email == "" || password == "" {
		return domain.ErrValidation("admin email and password are required")
	}
	return guard.System(ctx, "seed-admin", func(ctx context.Context, u *session.Unit) error {
		users := repository.NewUserRepo(u.Tx)
		if _, err := users.GetByEmail(ctx, email); err == nil {
			return nil // already seeded
		}

		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		_, err = users.Create(ctx, &domain.User{
			Email:           email,
			DisplayName:     "Platform Admin",
			PasswordHash:    hash,
			IsPlatformAdmin: true,
		})
		return err
	})
}

// DemoFixture is the YAML shape for seed-demo data.
type DemoFixture struct {
	Tenants []struct {
		Name  string `yaml:"name"`
		Slug  string `yaml:"slug"`
		Users []struct {
			Email       string `yaml:"email"`
			DisplayName string `yaml:"display_name"`
			Password    string `yaml:"password"`
		} `yaml:"users"`
		Courses []struct {
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
			Lessons     []struct {
				Title    string `yaml:"title"`
				Body     string `yaml:"body"`
				Position int    `yaml:"position"`
			} `yaml:"lessons"`
		} `yaml:"courses"`
		Campaigns []struct {
			Name    string   `yaml:"name"`
			Subject string   `yaml:"subject"`
			LureURL string   `yaml:"lure_url"`
			Targets []string `yaml:"targets"`
		} `yaml:"campaigns"`
	} `yaml:"tenants"`
}

// LoadFixture reads and parses a YAML demo fixture.
func LoadFixture(path string) (*DemoFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx DemoFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// SeedDemo populates tenants, users, courses, and draft campaigns from a
// fixture. Idempotent per tenant: a slug that already exists is skipped
// entirely.
func SeedDemo(ctx context.Context, guard *session.Guard, fx *DemoFixture) error {
	return guard.System(ctx, "seed-demo", func(ctx context.Context, u *session.Unit) error {
		tenants := repository.NewTenantRepo(u.Tx)
		users := repository.NewUserRepo(u.Tx)
		courses := repository.NewCourseRepo(u.Tx)
		enrollments := repository.NewEnrollmentRepo(u.Tx)
		campaigns := repository.NewCampaignRepo(u.Tx)

		for _, t := range fx.Tenants {
			if _, err := tenants.GetBySlug(ctx, t.Slug); err == nil {
				continue // already seeded
			}

			tenant, err := tenants.Create(ctx, domain.CreateTenantRequest{Name: t.Name, Slug: t.Slug})
			if err != nil {
				return fmt.Errorf("create tenant %s: %w", t.Slug, err)
			}

			var userIDs []int64
			for _, tu := range t.Users {
				hash, err := argon2id.CreateHash(tu.Password, argon2id.DefaultParams)
				if err != nil {
					return fmt.Errorf("hash password for %s: %w", tu.Email, err)
				}
				created, err := users.Create(ctx, &domain.User{
					TenantID:     &tenant.ID,
					Email:        tu.Email,
					DisplayName:  tu.DisplayName,
					PasswordHash: hash,
				})
				if err != nil {
					return fmt.Errorf("create user %s: %w", tu.Email, err)
				}
				userIDs = append(userIDs, created.ID)
			}

			for i, tc := range t.Courses {
				course, err := courses.Create(ctx, tenant.ID, domain.CreateCourseRequest{
					Title:       tc.Title,
					Description: tc.Description,
				})
				if err != nil {
					return fmt.Errorf("create course %s: %w", tc.Title, err)
				}
				for _, l := range tc.Lessons {
					if _, err := courses.CreateLesson(ctx, tenant.ID, domain.CreateLessonRequest{
						CourseID: course.ID,
						Title:    l.Title,
						Body:     l.Body,
						Position: l.Position,
					}); err != nil {
						return fmt.Errorf("create lesson %s: %w", l.Title, err)
					}
				}
				// Every seeded user starts the tenant's first course.
				if i == 0 {
					for _, userID := range userIDs {
						if _, err := enrollments.Create(ctx, tenant.ID, domain.CreateEnrollmentRequest{
							UserID:   userID,
							CourseID: course.ID,
						}); err != nil {
							return fmt.Errorf("enroll user %d in %s: %w", userID, tc.Title, err)
						}
					}
				}
			}

			for _, cp := range t.Campaigns {
				campaign, err := campaigns.Create(ctx, tenant.ID, domain.CreateCampaignRequest{
					Name:    cp.Name,
					Subject: cp.Subject,
					LureURL: cp.LureURL,
				})
				if err != nil {
					return fmt.Errorf("create campaign %s: %w", cp.Name, err)
				}
				for _, email := range cp.Targets {
					if _, err := campaigns.AddTarget(ctx, &domain.CampaignTarget{
						TenantID:   tenant.ID,
						CampaignID: campaign.ID,
						Email:      email,
						Token:      uuid.NewString(),
					}); err != nil {
						return fmt.Errorf("add target %s: %w", email, err)
					}
				}
			}
		}
		return nil
	})
}
