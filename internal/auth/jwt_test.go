// jwt_test.go — Unit tests for bridge token generation and validation.
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return Identity{
		UserID: "user-abc-123",
		Email:  "viewer@example.com",
		Name:   "Test Viewer",
		Image:  "https://example.com/avatar.png",
	}
}

func TestGenerateBridgeToken_RoundTrip(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret-0123456789abcdef")

	token, err := GenerateBridgeToken(testIdentity(), BootstrapTokenTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateBridgeToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-abc-123", claims.UserID)
	assert.Equal(t, "viewer@example.com", claims.Email)
	assert.Equal(t, "Test Viewer", claims.Name)
	assert.Equal(t, "https://example.com/avatar.png", claims.Image)
	assert.Equal(t, "user-abc-123", claims.Subject)
	assert.Equal(t, "movie-rated", claims.Issuer)
	assert.InDelta(t, time.Now().UnixMilli(), claims.IssuedAtMs, 5000)
}

func TestGenerateBridgeToken_NoSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := GenerateBridgeToken(testIdentity(), BootstrapTokenTTL)
	assert.Error(t, err)
}

func TestValidateBridgeToken_Expired(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret-0123456789abcdef")

	// A token whose expiry is already in the past must be rejected.
	token, err := GenerateBridgeToken(testIdentity(), -time.Minute)
	require.NoError(t, err)

	_, err = ValidateBridgeToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateBridgeToken_WrongSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret-one")
	token, err := GenerateBridgeToken(testIdentity(), BootstrapTokenTTL)
	require.NoError(t, err)

	t.Setenv("AUTH_JWT_SECRET", "secret-two")
	_, err = ValidateBridgeToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateBridgeToken_Garbage(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret-0123456789abcdef")

	for _, tok := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := ValidateBridgeToken(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q should be rejected", tok)
	}
}

func TestBridgeTokenTTLs(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret-0123456789abcdef")

	cases := []struct {
		name string
		ttl  time.Duration
	}{
		{"bootstrap", BootstrapTokenTTL},
		{"provider", ProviderTokenTTL},
	}
	for _, tc := range cases {
		token, err := GenerateBridgeToken(testIdentity(), tc.ttl)
		require.NoError(t, err)
		claims, err := ValidateBridgeToken(token)
		require.NoError(t, err)

		lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
		assert.Equal(t, tc.ttl, lifetime, "%s token lifetime", tc.name)
	}
}

func TestGenerateSessionToken_UniqueAndHashed(t *testing.T) {
	raw1, hash1, err := GenerateSessionToken()
	require.NoError(t, err)
	raw2, hash2, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.NotEqual(t, raw1, raw2)
	assert.Len(t, raw1, 64) // 32 bytes hex
	assert.Equal(t, HashToken(raw1), hash1)
	assert.Equal(t, HashToken(raw2), hash2)
	assert.NotEqual(t, raw1, hash1)
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
