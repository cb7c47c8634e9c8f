package domain

import "time"

// Client is a registered OAuth2 client. Secret is the plaintext secret as
// issued at registration; it is stripped before any list-style exposure.
// The json tags cover the snapshot embedded in pending authorizations.
type Client struct {
	ID              string    `json:"client_id"`
	Secret          string    `json:"client_secret,omitempty"`
	Name            string    `json:"client_name,omitempty"`
	RedirectURIs    []string  `json:"redirect_uris,omitempty"`
	Scopes          []string  `json:"scopes,omitempty"`
	IssuedAt        int64     `json:"client_id_issued_at"`
	SecretExpiresAt int64     `json:"client_secret_expires_at"` // 0 = never expires
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// DisplayName returns the human-facing name for consent pages, falling back
// to the client id when no name was registered.
func (c Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Sanitized returns a copy with the secret removed.
func (c Client) Sanitized() Client {
	c.Secret = ""
	return c
}

// ClientUpdate describes a partial update to a client registration. Nil
// fields are left untouched.
type ClientUpdate struct {
	Name         *string
	RedirectURIs *[]string
	Scope        *string
}
