package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// AuthService authenticates credentials and mints access tokens. Credential
// resolution runs under the system scope: no principal exists yet, and the
// uniform invalid-credentials error never reveals whether the account
// exists.
type AuthService struct {
	guard  *session.Guard
	audit  *auditor
	secret []byte
	ttl    time.Duration
}

// NewAuthService creates an AuthService signing tokens with the given
// secret.
func NewAuthService(guard *session.Guard, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{guard: guard, audit: newAuditor(guard), secret: secret, ttl: ttl}
}

// Login verifies an email/password pair and returns a signed token plus the
// authenticated user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrValidation("email and password are required")
	}

	var user *domain.User
	err := s.guard.System(ctx, "login", func(ctx context.Context, u *session.Unit) error {
		found, err := repository.NewUserRepo(u.Tx).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		match, err := argon2id.ComparePasswordAndHash(password, found.PasswordHash)
		if err != nil {
			return err
		}
		if !match {
			return domain.ErrAccessDenied("invalid credentials")
		}

		if found.TenantID != nil {
			tenant, err := repository.NewTenantRepo(u.Tx).GetByID(ctx, *found.TenantID, domain.MatchAll())
			if err != nil {
				return err
			}
			if tenant.Suspended {
				return domain.ErrAccessDenied("tenant is suspended")
			}
		}
		user = found
		return nil
	})
	if err != nil {
		s.audit.record(ctx, domain.AuditEntry{
			PrincipalName: email,
			Action:        "LOGIN",
			Status:        domain.AuditDenied,
		})
		// Missing account and wrong password read identically.
		return "", nil, domain.ErrAccessDenied("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	s.audit.record(ctx, domain.AuditEntry{
		TenantID:      user.TenantID,
		PrincipalName: user.Email,
		Action:        "LOGIN",
		Status:        domain.AuditAllowed,
	})
	return token, user, nil
}

func (s *AuthService) issueToken(u *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"name": u.Email,
		"adm":  u.IsPlatformAdmin,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	if u.TenantID != nil {
		claims["tid"] = *u.TenantID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// CreateAPIKey mints a programmatic key for a user the caller can see. The
// raw key is returned exactly once.
func (s *AuthService) CreateAPIKey(ctx context.Context, req domain.CreateAPIKeyRequest) (string, *domain.APIKey, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_API_KEY(name=%s)", req.Name)

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	rawKey := hex.EncodeToString(rawBytes)
	hash := sha256.Sum256([]byte(rawKey))

	var out *domain.APIKey
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		userPred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		owner, err := repository.NewUserRepo(u.Tx).GetByID(ctx, req.UserID, userPred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanCreate(authz.TableAPIKeys, authz.Ref{TenantID: owner.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot create api key for user %d", req.UserID)
		}

		created, err := repository.NewAPIKeyRepo(u.Tx).Create(ctx, &domain.APIKey{
			TenantID:  owner.TenantID,
			UserID:    owner.ID,
			Name:      req.Name,
			KeyPrefix: rawKey[:8],
			KeyHash:   hex.EncodeToString(hash[:]),
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableAPIKeys, nil, err)
		return "", nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableAPIKeys, &out.ID, nil)
	return rawKey, out, nil
}

// ListAPIKeys returns the keys visible to the caller, hashes included but
// never raw key material.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	var out []domain.APIKey
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableAPIKeys)
		if err != nil {
			return err
		}
		out, err = repository.NewAPIKeyRepo(u.Tx).List(ctx, pred)
		return err
	})
	return out, err
}

// RevokeAPIKey deletes a key visible to the caller.
func (s *AuthService) RevokeAPIKey(ctx context.Context, id int64) error {
	p := caller(ctx)
	action := fmt.Sprintf("REVOKE_API_KEY(id=%d)", id)

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewAPIKeyRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableAPIKeys)
		if err != nil {
			return err
		}
		keys, err := repo.List(ctx, pred)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.ID == id {
				return repo.Delete(ctx, id)
			}
		}
		return domain.ErrNotFound("api key %d not found", id)
	})
	if err != nil {
		return err
	}
	s.audit.outcome(ctx, p, action, authz.TableAPIKeys, &id, nil)
	return nil
}

// ResolveAPIKey authenticates a presented raw key and returns the principal
// it acts as. Expired and unknown keys read identically.
func (s *AuthService) ResolveAPIKey(ctx context.Context, rawKey string) (domain.Principal, error) {
	hash := sha256.Sum256([]byte(rawKey))
	hashStr := hex.EncodeToString(hash[:])

	var principal domain.Principal
	err := s.guard.System(ctx, "apikey-auth", func(ctx context.Context, u *session.Unit) error {
		key, err := repository.NewAPIKeyRepo(u.Tx).GetByHash(ctx, hashStr)
		if err != nil {
			return err
		}
		if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
			return domain.ErrAccessDenied("api key expired")
		}

		user, err := repository.NewUserRepo(u.Tx).GetByID(ctx, key.UserID, domain.MatchAll())
		if err != nil {
			return err
		}
		principal = domain.Principal{
			UserID:          &user.ID,
			TenantID:        user.TenantID,
			IsPlatformAdmin: user.IsPlatformAdmin,
			Name:            user.Email,
		}
		return nil
	})
	if err != nil {
		return domain.Principal{}, domain.ErrAccessDenied("invalid api key")
	}
	return principal, nil
}
