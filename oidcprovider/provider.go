// Package oidcprovider wraps the identity provider for the authorization-code
// flow: building the authorization URL, exchanging the one-time code for
// tokens, and decoding the ID-token claims. The provider is used as a black
// box through go-oidc and golang.org/x/oauth2.
package oidcprovider

import (
	"context"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// Identity is the decoded outcome of a successful code exchange.
type Identity struct {
	// Claims are the verified ID-token claims, stored on the session as the
	// authenticated user.
	Claims map[string]any
}

// Provider is an OIDC relying-party client bound to one issuer and client
// registration. Construct it once per process with New.
type Provider struct {
	provider      *oidc.Provider
	verifier      *oidc.IDTokenVerifier
	clientID      string
	clientSecret  string
	scopes        []string
	endSessionURL string
}

// New discovers the issuer's endpoints and prepares the ID-token verifier.
// Extra scopes are requested on top of openid/profile/offline_access.
func New(ctx context.Context, authority, clientID, clientSecret string, scopes []string) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, authority)
	if err != nil {
		return nil, apperrors.Wrapf(err, "discover provider %q", authority)
	}

	// The end-session endpoint is not part of the core go-oidc surface;
	// read it from the discovery document with an AAD-shaped fallback.
	var discovery struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	endSession := ""
	if err := provider.Claims(&discovery); err == nil {
		endSession = discovery.EndSessionEndpoint
	}
	if endSession == "" {
		endSession = strings.TrimRight(authority, "/") + "/oauth2/v2.0/logout"
	}

	return &Provider{
		provider:      provider,
		verifier:      provider.Verifier(&oidc.Config{ClientID: clientID}),
		clientID:      clientID,
		clientSecret:  clientSecret,
		scopes:        scopes,
		endSessionURL: endSession,
	}, nil
}

func (p *Provider) oauthConfig(redirectURI string) *oauth2.Config {
	scopes := append([]string{oidc.ScopeOpenID, "profile", "offline_access"}, p.scopes...)
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     p.provider.Endpoint(),
		RedirectURL:  redirectURI,
		Scopes:       scopes,
	}
}

// AuthCodeURL returns the identity provider's authorization URL carrying the
// anti-forgery state and the callback redirect URI.
func (p *Provider) AuthCodeURL(state, redirectURI string) string {
	return p.oauthConfig(redirectURI).AuthCodeURL(state)
}

// EndSessionURL returns the provider's logout URL with the post-logout
// redirect attached.
func (p *Provider) EndSessionURL(postLogoutRedirectURI string) string {
	return p.endSessionURL + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirectURI)
}

// Exchange trades the authorization code for tokens, verifies the ID token,
// and records the token set in cache. Provider rejections come back as
// KindAuthProvider errors so the gateway can render an auth-error page
// instead of failing the invocation.
func (p *Provider) Exchange(ctx context.Context, code, redirectURI string, cache *TokenCache) (*Identity, error) {
	token, err := p.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthProvider, apperrors.Wrapf(err, "code exchange"))
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperrors.New(apperrors.KindAuthProvider, "no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthProvider, apperrors.Wrapf(err, "verify id token"))
	}

	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthProvider, apperrors.Wrapf(err, "decode id token claims"))
	}

	cache.Put(token, rawIDToken)
	return &Identity{Claims: claims}, nil
}
