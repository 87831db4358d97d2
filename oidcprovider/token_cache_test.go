package oidcprovider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/authgate/lambda-oidc-gateway/oidcprovider"
)

func TestLoadCacheEmptyBlob(t *testing.T) {
	cache, err := oidcprovider.LoadCache("")
	require.NoError(t, err)
	assert.False(t, cache.Changed())
	assert.Nil(t, cache.Token)
}

func TestLoadCacheRejectsGarbage(t *testing.T) {
	_, err := oidcprovider.LoadCache("{not json")
	require.Error(t, err)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := oidcprovider.LoadCache("")
	require.NoError(t, err)

	cache.Put(&oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1"}, "raw-id-token")
	assert.True(t, cache.Changed())

	blob, err := cache.Serialize()
	require.NoError(t, err)

	reloaded, err := oidcprovider.LoadCache(blob)
	require.NoError(t, err)
	assert.False(t, reloaded.Changed(), "a freshly loaded cache is unchanged")
	require.NotNil(t, reloaded.Token)
	assert.Equal(t, "access-1", reloaded.Token.AccessToken)
	assert.Equal(t, "refresh-1", reloaded.Token.RefreshToken)
	assert.Equal(t, "raw-id-token", reloaded.RawIDToken)
}
