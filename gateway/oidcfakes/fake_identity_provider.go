package oidcfakes

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/authgate/lambda-oidc-gateway/oidcprovider"
)

// FakeIdentityProvider is an in-memory IdentityProvider for gateway tests.
type FakeIdentityProvider struct {
	// Claims are returned from Exchange unless ExchangeErr is set.
	Claims map[string]any
	// ExchangeErr, when set, is returned from Exchange.
	ExchangeErr error

	ExchangeCalls    int
	LastCode         string
	LastRedirectURI  string
	LastAuthState    string
	LastPostLogoutTo string
}

func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Claims: map[string]any{
			"sub":  "fake-subject",
			"name": "Fake User",
		},
	}
}

func (f *FakeIdentityProvider) AuthCodeURL(state, redirectURI string) string {
	f.LastAuthState = state
	return "https://idp.example.com/authorize?client_id=fake&state=" + url.QueryEscape(state) +
		"&redirect_uri=" + url.QueryEscape(redirectURI)
}

func (f *FakeIdentityProvider) EndSessionURL(postLogoutRedirectURI string) string {
	f.LastPostLogoutTo = postLogoutRedirectURI
	return "https://idp.example.com/logout?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirectURI)
}

func (f *FakeIdentityProvider) Exchange(_ context.Context, code, redirectURI string, cache *oidcprovider.TokenCache) (*oidcprovider.Identity, error) {
	f.ExchangeCalls++
	f.LastCode = code
	f.LastRedirectURI = redirectURI

	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	cache.Put(&oauth2.Token{AccessToken: "fake-access-token"}, "fake-id-token")
	return &oidcprovider.Identity{Claims: f.Claims}, nil
}
