package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(stderrors.New("plain error")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := apperrors.New(apperrors.KindClient, "bad body")
	wrapped := apperrors.Wrapf(err, "handling request %s", "req-1")

	assert.Equal(t, apperrors.KindClient, apperrors.KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "handling request req-1")
	assert.Contains(t, wrapped.Error(), "bad body")
}

func TestWrapPreservesSentinels(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindInternal,
		apperrors.Wrapf(apperrors.ErrSessionNotFound, "open session"))

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, apperrors.Wrap(apperrors.KindClient, nil))
	assert.NoError(t, apperrors.Wrapf(nil, "context"))
}
