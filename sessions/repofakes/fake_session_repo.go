package repofakes

import (
	"context"
	"sync"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests.
type FakeSessionRepo struct {
	lock     sync.RWMutex
	records  map[string]sessions.Session
	GetCount int // number of Get calls, for fast-path assertions

	// FailWith, when set, is returned by every storage operation to simulate
	// a backend outage.
	FailWith error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		records: make(map[string]sessions.Session),
	}
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.GetCount++
	if sr.FailWith != nil {
		return nil, sr.FailWith
	}
	record, ok := sr.records[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := record
	return &copied, nil
}

func (sr *FakeSessionRepo) Put(_ context.Context, session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.FailWith != nil {
		return sr.FailWith
	}
	sr.records[session.ID] = *session
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.FailWith != nil {
		return sr.FailWith
	}
	delete(sr.records, sessionID)
	return nil
}

func (sr *FakeSessionRepo) DeleteByProviderRef(_ context.Context, ref string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.FailWith != nil {
		return sr.FailWith
	}
	for id, record := range sr.records {
		if record.ProviderRef == ref {
			delete(sr.records, id)
		}
	}
	return nil
}

// Stored returns a copy of the stored record, or nil when absent.
func (sr *FakeSessionRepo) Stored(sessionID string) *sessions.Session {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	record, ok := sr.records[sessionID]
	if !ok {
		return nil
	}
	copied := record
	return &copied
}

// Len returns the number of stored records.
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.records)
}
