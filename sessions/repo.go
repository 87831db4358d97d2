package sessions

import "context"

// Repo defines the storage operations the session store needs. The DynamoDB
// implementation lives in sessions/dynamorepo; tests use the in-memory fake
// from sessions/repofakes.
type Repo interface {
	// Get retrieves a session by id. A missing record is reported as
	// errors.ErrSessionNotFound; any other error is a backend failure.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Put upserts the full record unconditionally (last-write-wins).
	Put(ctx context.Context, session *Session) error

	// Delete removes a record by id. Deleting an absent record is not an
	// error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteByProviderRef removes every record whose ProviderRef matches ref,
	// via the secondary index. A ref is expected to map to at most one live
	// session, but duplicates are cleared too.
	DeleteByProviderRef(ctx context.Context, ref string) error
}
