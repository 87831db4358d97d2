package oidcprovider

import (
	"encoding/json"

	"golang.org/x/oauth2"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// TokenCache holds the token set acquired for a session. It is persisted on
// the session record as an opaque serialized blob; the gateway only saves it
// back when an exchange actually changed it.
type TokenCache struct {
	Token      *oauth2.Token `json:"token,omitempty"`
	RawIDToken string        `json:"id_token,omitempty"`

	changed bool
}

// LoadCache deserializes a cache blob from a prior session save. An empty
// blob yields an empty cache.
func LoadCache(serialized string) (*TokenCache, error) {
	cache := &TokenCache{}
	if serialized == "" {
		return cache, nil
	}
	if err := json.Unmarshal([]byte(serialized), cache); err != nil {
		return nil, apperrors.Wrapf(err, "deserialize token cache")
	}
	return cache, nil
}

// Serialize returns the cache as a blob for session storage.
func (c *TokenCache) Serialize() (string, error) {
	blob, err := json.Marshal(c)
	if err != nil {
		return "", apperrors.Wrapf(err, "serialize token cache")
	}
	return string(blob), nil
}

// Changed reports whether the cache was written to since it was loaded.
func (c *TokenCache) Changed() bool {
	return c.changed
}

// Put records a freshly acquired token set and marks the cache changed.
func (c *TokenCache) Put(token *oauth2.Token, rawIDToken string) {
	c.Token = token
	c.RawIDToken = rawIDToken
	c.changed = true
}
