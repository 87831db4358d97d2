package sessions

import (
	"context"
	"time"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

// DefaultTTL is how long a saved session stays readable.
const DefaultTTL = time.Hour

// Store layers the gateway's session semantics over a Repo: Open never fails
// the caller for a missing or expired record, Save stamps Modified/TTL, and
// Delete resets the in-memory object to a fresh anonymous state.
type Store struct {
	repo    Repo
	ttl     time.Duration
	nowTime func() time.Time // injectable for testing
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithTTL overrides the save TTL.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewStore creates a session store on top of repo.
func NewStore(repo Repo, options ...StoreOption) *Store {
	store := &Store{
		repo:    repo,
		ttl:     DefaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(store)
	}
	return store
}

// Create returns a new anonymous session with a fresh id. Nothing is
// persisted until Save.
func (st *Store) Create(data Data) *Session {
	return &Session{
		ID:          newSessionID(),
		ProviderRef: NoProviderRef,
		Data:        data,
	}
}

// Open loads the session for sessionID. A missing, empty, or expired id
// yields a fresh anonymous session so that every request has a usable session
// object; only a backend failure is returned as an error.
func (st *Store) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return st.Create(Data{}), nil
	}
	session, err := st.repo.Get(ctx, sessionID)
	if apperrors.Is(err, apperrors.ErrSessionNotFound) {
		return st.Create(Data{}), nil
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "open session")
	}
	// The backend expires records lazily, so the read side has to filter too.
	if session.TTL != 0 && session.TTL <= st.nowTime().Unix() {
		return st.Create(Data{}), nil
	}
	return session, nil
}

// Save upserts the session with refreshed Modified and TTL stamps.
// Overwrites unconditionally: concurrent saves race under last-write-wins.
func (st *Store) Save(ctx context.Context, session *Session) error {
	now := st.nowTime().Unix()
	session.Modified = now
	session.TTL = now + int64(st.ttl.Seconds())
	if err := st.repo.Put(ctx, session); err != nil {
		return apperrors.Wrapf(err, "save session")
	}
	return nil
}

// Delete removes the open session's record and resets session to a fresh
// anonymous state. Deleting twice is not an error.
func (st *Store) Delete(ctx context.Context, session *Session) error {
	if session.ID != "" {
		if err := st.repo.Delete(ctx, session.ID); err != nil {
			return apperrors.Wrapf(err, "delete session")
		}
	}
	*session = *st.Create(Data{})
	return nil
}

// DeleteID removes a session record by explicit id.
func (st *Store) DeleteID(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := st.repo.Delete(ctx, sessionID); err != nil {
		return apperrors.Wrapf(err, "delete session")
	}
	return nil
}

// DeleteByProviderRef removes every session the identity provider's session
// reference maps to. Driven by provider-initiated single-sign-out, decoupled
// from any request by the affected user.
func (st *Store) DeleteByProviderRef(ctx context.Context, ref string) error {
	if ref == "" || ref == NoProviderRef {
		return nil
	}
	if err := st.repo.DeleteByProviderRef(ctx, ref); err != nil {
		return apperrors.Wrapf(err, "delete sessions by provider ref")
	}
	return nil
}
