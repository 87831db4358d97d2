package response

import (
	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

const genericErrorBody = "An error occurred. Check the logs."

// Error converts a classified error into a response. Client errors echo
// their message at 400; provider errors report 401; anything else is an
// internal failure whose detail stays in the logs, with a generic 500 body
// for the client.
func (b *Builder) Error(err error) Response {
	kind := apperrors.KindOf(err)

	b.logger.Error().
		Str("request_id", b.requestID).
		Str("kind", kind.String()).
		Err(err).
		Msg("request failed")

	switch kind {
	case apperrors.KindClient:
		return b.Format(err.Error(), nil, 400)
	case apperrors.KindAuthProvider:
		return b.Format(err.Error(), nil, 401)
	default:
		return b.Format(genericErrorBody, nil, 500)
	}
}
