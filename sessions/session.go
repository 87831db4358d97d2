// Package sessions implements the server-side session model backing the auth
// gateway. Each browser gets one opaque high-entropy session id, stored in a
// cookie; everything else lives in the store.
package sessions

import (
	"crypto/rand"
	"encoding/hex"
)

// NoProviderRef is the value of ProviderRef before the identity provider has
// assigned one. The secondary index cannot key on an empty string, so a
// sentinel is stored instead.
const NoProviderRef = "null"

// Session is one stored session record.
//
// The ID doubles as the anti-forgery `state` value round-tripped through the
// identity provider and as the session cookie value. It is generated once, on
// creation, and never changes.
type Session struct {
	ID          string // 64 random bytes, hex encoded
	ProviderRef string // IdP-assigned session reference ("sid"), for single-sign-out lookups
	Data        Data
	Modified    int64 // epoch seconds of the last save
	TTL         int64 // epoch seconds after which the record is unreadable
}

// Data is the application state carried by a session. Named fields cover
// everything the gateway itself reads and writes; Extra is reserved for
// provider-specific additions.
type Data struct {
	Referer    string         `json:"referer,omitempty" dynamodbav:"referer,omitempty"`
	User       map[string]any `json:"user,omitempty" dynamodbav:"user,omitempty"`
	TokenCache string         `json:"token_cache,omitempty" dynamodbav:"token_cache,omitempty"`
	SourceIP   string         `json:"source_ip,omitempty" dynamodbav:"source_ip,omitempty"`
	Extra      map[string]any `json:"extra,omitempty" dynamodbav:"extra,omitempty"`
}

// Authenticated reports whether the session carries decoded identity claims.
func (s *Session) Authenticated() bool {
	return len(s.Data.User) > 0
}

// newSessionID returns a fresh session id. The session is only as secure as
// its cookie, so the id is long: 64 random bytes, hex encoded.
func newSessionID() string {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		panic("sessions: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
