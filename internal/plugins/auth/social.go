package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/keyxmakerx/elearning/internal/config"
)

// IdentityProvider turns provider credentials into a verified identity.
// Social login trusts only what the provider signed.
type IdentityProvider interface {
	// VerifyIDToken checks a raw OIDC ID token and returns its identity.
	VerifyIDToken(ctx context.Context, rawIDToken string) (SocialInput, error)

	// AuthCodeURL is where the SSO redirect flow sends the browser.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (SocialInput, error)
}

// OIDCProvider implements IdentityProvider with go-oidc and oauth2.
type OIDCProvider struct {
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
}

// NewOIDCProvider discovers the issuer's endpoints and keys.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider %s: %w", cfg.Issuer, err)
	}

	return &OIDCProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

// idClaims are the standard claims read from an ID token.
type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// VerifyIDToken checks signature, issuer, audience and expiry, then reads
// the email. Tokens whose email is explicitly unverified are refused.
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (SocialInput, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return SocialInput{}, fmt.Errorf("verifying id token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return SocialInput{}, fmt.Errorf("parsing id token claims: %w", err)
	}
	if claims.Email == "" {
		return SocialInput{}, errors.New("id token has no email claim")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return SocialInput{}, errors.New("id token email is not verified")
	}

	return SocialInput{Email: claims.Email, Name: claims.Name, AvatarURL: claims.Picture}, nil
}

// AuthCodeURL returns the provider login URL carrying state.
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange redeems code and verifies the returned ID token.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (SocialInput, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return SocialInput{}, fmt.Errorf("exchanging code: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		return SocialInput{}, errors.New("token response has no id_token")
	}
	return p.VerifyIDToken(ctx, rawIDToken)
}

// generateState returns a random value for the oauth state cookie.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
