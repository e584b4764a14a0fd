package domain

import "time"

// User is a platform account. Regular users belong to exactly one tenant;
// platform admins have no tenant and see everything.
type User struct {
	ID              int64
	TenantID        *int64 // nil for platform admins
	Email           string
	DisplayName     string
	PasswordHash    string // argon2id; never serialized to clients
	IsPlatformAdmin bool
	CreatedAt       time.Time
}

// CreateUserRequest holds parameters for creating a user inside a tenant.
type CreateUserRequest struct {
	TenantID    *int64
	Email       string
	DisplayName string
	Password    string
}

// Validate checks that the request is well-formed.
func (r *CreateUserRequest) Validate() error {
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if r.Password == "" {
		return ErrValidation("password is required")
	}
	return nil
}

// UpdateUserRequest carries a partial user update. Nil fields are left
// unchanged. TenantID is included so the policy evaluator can reject
// attempts to move a user across tenants.
type UpdateUserRequest struct {
	DisplayName *string
	TenantID    *int64
}
