package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/domain"
)

func TestLoginIssuesScopedToken(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)

	token, user, err := e.auth.Login(context.Background(), "alice@acme.example", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, user.ID)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "alice@acme.example", claims["name"])
	assert.Equal(t, float64(f.acme.ID), claims["tid"])
	assert.Equal(t, false, claims["adm"])
}

func TestLoginFailuresReadIdentically(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)

	_, _, wrongPassword := e.auth.Login(context.Background(), "alice@acme.example", "nope")
	require.True(t, domain.IsAccessDenied(wrongPassword))

	_, _, unknownAccount := e.auth.Login(context.Background(), "nobody@acme.example", "nope")
	require.True(t, domain.IsAccessDenied(unknownAccount))

	// Identical messages: no account-existence oracle.
	assert.Equal(t, wrongPassword.Error(), unknownAccount.Error())

	require.NoError(t, e.tenants.SetSuspended(adminCtx(), f.acme.ID, true))
	_, _, suspended := e.auth.Login(context.Background(), "alice@acme.example", "correct horse battery")
	require.True(t, domain.IsAccessDenied(suspended))
}

func TestLoginOutcomesAreAudited(t *testing.T) {
	e := newEnv(t)
	seed(t, e)

	_, _, err := e.auth.Login(context.Background(), "alice@acme.example", "correct horse battery")
	require.NoError(t, err)
	_, _, err = e.auth.Login(context.Background(), "alice@acme.example", "nope")
	require.True(t, domain.IsAccessDenied(err))

	action := "LOGIN"
	entries, _, err := e.audit.List(adminCtx(), domain.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	statuses := []string{entries[0].Status, entries[1].Status}
	assert.ElementsMatch(t, []string{domain.AuditAllowed, domain.AuditDenied}, statuses)
}

func TestAPIKeyRoundTrip(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	raw, key, err := e.auth.CreateAPIKey(ctx, domain.CreateAPIKeyRequest{
		UserID: f.alice.ID,
		Name:   "ci",
	})
	require.NoError(t, err)
	require.Len(t, raw, 64)
	assert.Equal(t, raw[:8], key.KeyPrefix)

	principal, err := e.auth.ResolveAPIKey(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, principal.UserID)
	assert.Equal(t, f.alice.ID, *principal.UserID)
	require.NotNil(t, principal.TenantID)
	assert.Equal(t, f.acme.ID, *principal.TenantID)
	assert.False(t, principal.IsPlatformAdmin)

	// Listings expose metadata, never key material.
	keys, err := e.auth.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotEqual(t, raw, keys[0].KeyHash)

	require.NoError(t, e.auth.RevokeAPIKey(ctx, key.ID))
	_, err = e.auth.ResolveAPIKey(context.Background(), raw)
	require.True(t, domain.IsAccessDenied(err))
}

func TestAPIKeyExpiredOrForeign(t *testing.T) {
	e := newEnv(t)
	f := seed(t, e)
	ctx := tenantCtx(f.acme.ID, "staff@acme.example")

	past := time.Now().Add(-time.Hour)
	raw, _, err := e.auth.CreateAPIKey(ctx, domain.CreateAPIKeyRequest{
		UserID:    f.alice.ID,
		Name:      "stale",
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	_, err = e.auth.ResolveAPIKey(context.Background(), raw)
	require.True(t, domain.IsAccessDenied(err))

	// A tenant cannot mint keys for another tenant's users.
	_, _, err = e.auth.CreateAPIKey(ctx, domain.CreateAPIKeyRequest{
		UserID: f.carol.ID,
		Name:   "mole",
	})
	require.True(t, domain.IsNotFound(err))

	// Nor revoke their keys.
	_, carolKey, err := e.auth.CreateAPIKey(tenantCtx(f.globex.ID, "staff@globex.example"), domain.CreateAPIKeyRequest{
		UserID: f.carol.ID,
		Name:   "carol-ci",
	})
	require.NoError(t, err)

	err = e.auth.RevokeAPIKey(ctx, carolKey.ID)
	require.True(t, domain.IsNotFound(err))
}
