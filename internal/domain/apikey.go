package domain

import "time"

// APIKey grants programmatic access on behalf of a user. The raw key is
// returned exactly once at creation; only its SHA-256 hash is stored.
type APIKey struct {
	ID        int64
	TenantID  *int64
	UserID    int64
	Name      string
	KeyPrefix string // first 8 chars for identification
	KeyHash   string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// CreateAPIKeyRequest holds parameters for minting a new API key.
type CreateAPIKeyRequest struct {
	UserID    int64
	Name      string
	ExpiresAt *time.Time
}

// Validate checks that the request is well-formed.
func (r *CreateAPIKeyRequest) Validate() error {
	if r.UserID <= 0 {
		return ErrValidation("user_id is required")
	}
	if r.Name == "" {
		return ErrValidation("api key name is required")
	}
	return nil
}
