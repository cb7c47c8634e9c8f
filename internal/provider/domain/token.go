package domain

import "time"

// TokenType distinguishes access tokens from refresh tokens; both share the
// same stored shape.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Token is a stored access or refresh token. Tokens are opaque random values
// resolved by store lookup, not JWTs. Access tokens link to the refresh token
// minted alongside them; both record the authorization code that produced
// them, when any.
type Token struct {
	Value             string
	ClientID          string
	Scopes            []string
	Type              TokenType
	Resource          string
	RefreshToken      string // for access tokens, the paired refresh token
	AuthorizationCode string // provenance
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Expired reports whether the token is past its deadline.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is what the token endpoint returns: a fresh access token plus
// the refresh token that can mint successors.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "bearer"
	ExpiresIn    time.Duration
	Scope        string // space-delimited
}

// AuthInfo describes a verified access token for resource-side checks.
type AuthInfo struct {
	Token     string
	ClientID  string
	Scopes    []string
	ExpiresAt int64 // unix seconds
	Resource  string
}
