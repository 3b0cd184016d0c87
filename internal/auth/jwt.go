// Package auth provides bridge-token generation and validation, DB-backed
// web sessions, and the dual cookie-or-bearer identity resolution used by
// every protected movie-rated endpoint.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Bridge token lifetimes. The bootstrap token is minted off an active web
// session and is only meant to survive the mobile callback handshake. The
// provider-verified token is minted off a Google ID token and lives long
// enough for the mobile app to hold it as its API credential.
const (
	BootstrapTokenTTL = 5 * time.Minute
	ProviderTokenTTL  = 7 * 24 * time.Hour
)

// ErrTokenInvalid is returned when a bridge token fails signature or expiry
// checks. Callers surface it as 401 "Invalid or expired token".
var ErrTokenInvalid = errors.New("invalid or expired token")

// BridgeClaims are the JWT claims embedded in a bridge token. The JSON keys
// match what the mobile client already parses.
type BridgeClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	// IssuedAtMs is a millisecond wall-clock stamp, redundant with iat but
	// part of the existing token format.
	IssuedAtMs int64 `json:"timestamp"`
}

// GenerateBridgeToken creates a signed bridge token for the given identity
// with the given lifetime. The signing secret comes from AUTH_JWT_SECRET.
func GenerateBridgeToken(id Identity, ttl time.Duration) (string, error) {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return "", errors.New("AUTH_JWT_SECRET not set")
	}

	now := time.Now()
	claims := BridgeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "movie-rated",
		},
		UserID:     id.UserID,
		Email:      id.Email,
		Name:       id.Name,
		Image:      id.Image,
		IssuedAtMs: now.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateBridgeToken parses and validates a bridge token string.
// Returns ErrTokenInvalid on any signature or expiry failure — callers
// must not distinguish the two on the wire.
func ValidateBridgeToken(tokenStr string) (*BridgeClaims, error) {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET not set")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &BridgeClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*BridgeClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateSessionToken creates a cryptographically random web session token
// (32 bytes, hex-encoded). The raw token goes into the cookie; only the
// SHA-256 hash is stored.
func GenerateSessionToken() (raw string, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate session token: %w", err)
	}
	raw = hex.EncodeToString(b)
	hash = HashToken(raw)
	return raw, hash, nil
}

// HashToken computes the SHA-256 hex digest of a token string.
// Used to convert raw session tokens into storage-safe hashes.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
