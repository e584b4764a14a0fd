package domain

import "time"

// Tenant is an isolated customer organization. Its data must never be
// visible to another tenant.
type Tenant struct {
	ID        int64
	Name      string
	Slug      string
	Suspended bool
	CreatedAt time.Time
}

// CreateTenantRequest holds parameters for provisioning a new tenant.
type CreateTenantRequest struct {
	Name string
	Slug string
}

// Validate checks that the request is well-formed.
func (r *CreateTenantRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("tenant name is required")
	}
	if r.Slug == "" {
		return ErrValidation("tenant slug is required")
	}
	return nil
}
