package domain

import "time"

// AuthorizationParams are the request parameters of an in-flight /authorize
// request. Only the PKCE challenge is ever stored; the verifier stays with
// the client.
type AuthorizationParams struct {
	RedirectURI   string   `json:"redirectUri,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
	Resource      string   `json:"resource,omitempty"`
	State         string   `json:"state,omitempty"`
	CodeChallenge string   `json:"codeChallenge,omitempty"`
}

// PendingAuthorization is the server-side record of an /authorize request
// awaiting user login and/or consent, keyed by the browser session id.
// UserID is attached once the session authenticates.
type PendingAuthorization struct {
	SessionID   string
	Client      Client // snapshot of the requesting client
	Params      AuthorizationParams
	ValidScopes []string
	UserID      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the pending authorization is past its deadline.
func (p PendingAuthorization) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
