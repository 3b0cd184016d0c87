// oidc.go — Google ID token verification for the mobile sign-in path.
// The verifier is constructed once at process start and passed by reference
// into the server; there is no lazily-initialized provider singleton.
package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer is the OIDC issuer for Google federated sign-in.
const GoogleIssuer = "https://accounts.google.com"

// ProviderUser holds the identity claims extracted from a verified Google
// ID token. The email is the account key: the server upserts the user row
// on it before minting a bridge token.
type ProviderUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// ProviderVerifier verifies Google ID tokens against the provider's
// published keys.
type ProviderVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers the Google OIDC provider and returns a
// verifier bound to the given OAuth client ID. Discovery needs the network;
// call this once in main, not per request.
func NewGoogleVerifier(ctx context.Context, clientID string) (*ProviderVerifier, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &ProviderVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the raw ID token's signature, issuer, audience, and expiry,
// and returns the embedded identity claims.
func (v *ProviderVerifier) Verify(ctx context.Context, rawIDToken string) (*ProviderUser, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var user ProviderUser
	if err := idToken.Claims(&user); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	if user.Sub == "" {
		return nil, fmt.Errorf("id token missing sub claim")
	}
	return &user, nil
}
