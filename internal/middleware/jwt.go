// Package middleware provides the HTTP middleware stack: authentication,
// request IDs, and rate limiting. Authentication is the session context
// binder's upstream: it turns verified credentials into the request
// principal, and nothing downstream re-reads raw credentials.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the parsed claims from a validated token.
type TokenClaims struct {
	Subject  string
	Issuer   string
	Name     string
	TenantID *int64
	Admin    bool
	Raw      map[string]interface{}
}

// TokenValidator validates a bearer token and returns the parsed claims.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// HS256Validator validates tokens signed with a shared HS256 secret. This
// is the validator for tokens the platform issues itself.
type HS256Validator struct {
	secret []byte
}

// NewHS256Validator creates a validator for HS256 tokens.
func NewHS256Validator(secret []byte) (*HS256Validator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: secret}, nil
}

// Validate verifies a token signed with HS256 and extracts claims.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*TokenClaims, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	return claimsFromRaw(map[string]interface{}(raw)), nil
}

// OIDCValidator validates tokens issued by an external identity provider
// using OIDC discovery and JWKS. Tenant membership rides in the tid claim
// the provider is configured to emit.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// NewOIDCValidator creates a validator from an OIDC issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})

	issuers := make(map[string]bool, len(allowedIssuers))
	for _, iss := range allowedIssuers {
		issuers[iss] = true
	}
	if len(issuers) == 0 {
		issuers[issuerURL] = true
	}
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuers}, nil
}

// Validate verifies the token using the provider's JWKS.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	claims := claimsFromRaw(raw)
	claims.Subject = idToken.Subject
	claims.Issuer = idToken.Issuer
	return claims, nil
}

// ChainValidator tries each validator in order and accepts the first that
// succeeds. Used when both platform-issued and external OIDC tokens are in
// circulation.
type ChainValidator []TokenValidator

// Validate runs the chain. The last validator's error is returned when none
// accept the token.
func (c ChainValidator) Validate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	var lastErr error
	for _, v := range c {
		claims, err := v.Validate(ctx, tokenString)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no token validators configured")
	}
	return nil, lastErr
}

func claimsFromRaw(raw map[string]interface{}) *TokenClaims {
	claims := &TokenClaims{Raw: raw}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if iss, ok := raw["iss"].(string); ok {
		claims.Issuer = iss
	}
	if name, ok := raw["name"].(string); ok {
		claims.Name = name
	}
	if adm, ok := raw["adm"].(bool); ok {
		claims.Admin = adm
	}
	// JSON numbers decode as float64.
	if tid, ok := raw["tid"].(float64); ok {
		v := int64(tid)
		claims.TenantID = &v
	}
	return claims
}
