package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"phishdeck/internal/domain"
)

// APIKeyResolver authenticates a presented raw API key.
type APIKeyResolver interface {
	ResolveAPIKey(ctx context.Context, rawKey string) (domain.Principal, error)
}

// Auth tries a JWT bearer token first, then an API key. On success the
// request principal lands in the context; everything downstream derives
// scope from it. Both methods failing is a 401 — no request reaches a
// handler without a principal.
func Auth(validator TokenValidator, keys APIKeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				tokenStr := strings.TrimPrefix(auth, "Bearer ")
				if claims, err := validator.Validate(r.Context(), tokenStr); err == nil {
					if p, ok := principalFromClaims(claims); ok {
						ctx := domain.WithPrincipal(r.Context(), p)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && keys != nil {
				if p, err := keys.ResolveAPIKey(r.Context(), apiKey); err == nil {
					ctx := domain.WithPrincipal(r.Context(), p)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    401,
				"message": "unauthorized: provide a valid JWT bearer token or API key",
			})
		})
	}
}

func principalFromClaims(claims *TokenClaims) (domain.Principal, bool) {
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Principal{}, false
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return domain.Principal{
		UserID:          &userID,
		TenantID:        claims.TenantID,
		IsPlatformAdmin: claims.Admin,
		Name:            name,
	}, true
}
