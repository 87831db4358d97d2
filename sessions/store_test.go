package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/lambda-oidc-gateway/sessions"
	"github.com/authgate/lambda-oidc-gateway/sessions/repofakes"
)

func TestCreateGeneratesFreshAnonymousSession(t *testing.T) {
	store := sessions.NewStore(repofakes.NewFakeSessionRepo())

	session := store.Create(sessions.Data{Referer: "/dashboard"})

	assert.Len(t, session.ID, 128, "64 random bytes, hex encoded")
	assert.Equal(t, sessions.NoProviderRef, session.ProviderRef)
	assert.Equal(t, "/dashboard", session.Data.Referer)
	assert.False(t, session.Authenticated())

	other := store.Create(sessions.Data{})
	assert.NotEqual(t, session.ID, other.ID)
}

func TestSaveThenOpenRoundTrips(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	store := sessions.NewStore(repo)
	ctx := context.Background()

	session := store.Create(sessions.Data{
		Referer:  "/reports?year=2024",
		SourceIP: "203.0.113.7",
	})
	session.Data.User = map[string]any{"sub": "user-1"}
	require.NoError(t, store.Save(ctx, session))

	reopened, err := store.Open(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, reopened.ID)
	assert.Equal(t, session.Data, reopened.Data)
	assert.True(t, reopened.Authenticated())
	assert.NotZero(t, reopened.Modified)
	assert.Greater(t, reopened.TTL, reopened.Modified)
}

func TestOpenMissingOrEmptyIDNeverFails(t *testing.T) {
	store := sessions.NewStore(repofakes.NewFakeSessionRepo())
	ctx := context.Background()

	for _, id := range []string{"", "not-a-stored-id"} {
		session, err := store.Open(ctx, id)
		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.NotEqual(t, id, session.ID)
		assert.Equal(t, sessions.NoProviderRef, session.ProviderRef)
		assert.False(t, session.Authenticated())
	}
}

func TestOpenExpiredRecordIsAnonymous(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	now := time.Now()
	store := sessions.NewStore(repo,
		sessions.WithTTL(time.Hour),
		sessions.WithNowTime(func() time.Time { return now }),
	)
	ctx := context.Background()

	session := store.Create(sessions.Data{User: map[string]any{"sub": "user-1"}})
	require.NoError(t, store.Save(ctx, session))

	now = now.Add(2 * time.Hour)
	reopened, err := store.Open(ctx, session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, reopened.ID)
	assert.False(t, reopened.Authenticated())
}

func TestDeleteIsIdempotentAndResetsSession(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	store := sessions.NewStore(repo)
	ctx := context.Background()

	session := store.Create(sessions.Data{User: map[string]any{"sub": "user-1"}})
	require.NoError(t, store.Save(ctx, session))
	originalID := session.ID

	require.NoError(t, store.Delete(ctx, session))
	assert.Nil(t, repo.Stored(originalID))
	assert.NotEqual(t, originalID, session.ID, "reset to a fresh anonymous session")
	assert.False(t, session.Authenticated())

	require.NoError(t, store.DeleteID(ctx, originalID), "second delete does not error")
}

func TestDeleteByProviderRefClearsDuplicates(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	store := sessions.NewStore(repo)
	ctx := context.Background()

	for range 2 {
		session := store.Create(sessions.Data{})
		session.ProviderRef = "idp-ref-1"
		require.NoError(t, store.Save(ctx, session))
	}
	bystander := store.Create(sessions.Data{})
	bystander.ProviderRef = "idp-ref-2"
	require.NoError(t, store.Save(ctx, bystander))

	require.NoError(t, store.DeleteByProviderRef(ctx, "idp-ref-1"))
	assert.Equal(t, 1, repo.Len())
	assert.NotNil(t, repo.Stored(bystander.ID))
}

func TestDeleteByProviderRefIgnoresSentinel(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	store := sessions.NewStore(repo)
	ctx := context.Background()

	session := store.Create(sessions.Data{})
	require.NoError(t, store.Save(ctx, session))

	// Anonymous sessions all share the sentinel ref; it must never match.
	require.NoError(t, store.DeleteByProviderRef(ctx, sessions.NoProviderRef))
	assert.Equal(t, 1, repo.Len())
}

func TestBackendFailuresSurface(t *testing.T) {
	repo := repofakes.NewFakeSessionRepo()
	store := sessions.NewStore(repo)
	ctx := context.Background()

	repo.FailWith = errors.New("table unavailable")

	_, err := store.Open(ctx, "some-id")
	require.Error(t, err, "open propagates backend failures, only not-found is anonymous")

	session := store.Create(sessions.Data{})
	require.Error(t, store.Save(ctx, session))
	require.Error(t, store.DeleteID(ctx, "some-id"))
}
