package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrLoginRequired      = errors.New("login_required")
	ErrInvalidAction      = errors.New("invalid_action")

	// ErrNoPendingAuthorization signals that the session has no in-flight
	// authorization request, either because none was started or because it
	// expired before the user decided.
	ErrNoPendingAuthorization = errors.New("no_pending_authorization")
)

// ScopeError is returned when a request names scopes outside the allow-list.
// It unwraps to ErrInvalidScope so callers can match on the sentinel while
// the message still names the offending scopes and the allowed set.
type ScopeError struct {
	Invalid []string
	Allowed []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("invalid scopes requested: %s (allowed: %s)",
		strings.Join(e.Invalid, ", "), strings.Join(e.Allowed, " "))
}

func (e *ScopeError) Unwrap() error { return ErrInvalidScope }
