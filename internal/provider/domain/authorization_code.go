package domain

import "time"

// AuthorizationCode binds a single-use opaque code to the client, PKCE
// challenge, redirect URI, and granted scopes it was minted for. Codes are
// resolved purely by store lookup and deleted on exchange.
type AuthorizationCode struct {
	Code          string
	ClientID      string
	CodeChallenge string
	RedirectURI   string
	Scopes        []string
	Resource      string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the code is past its deadline.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
