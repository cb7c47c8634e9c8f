package domain

import "time"

// Session records that a browser is logged in as a user. Expiry is absolute:
// a session's age since CreatedAt determines whether it is live, regardless
// of last use.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// ExpiresAfter reports whether the session is past the given lifetime at now.
func (s Session) ExpiresAfter(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ttl
}
