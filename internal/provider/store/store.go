package store

import (
	"context"
	"errors"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Each sub-repository owns exactly
// one collection and is the sole mutator of its records; the provider only
// touches state through these methods.
type Store interface {
	Clients() Clients
	Users() Users
	Sessions() Sessions
	PendingAuthorizations() PendingAuthorizations
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed. This is the
	// recommended way to handle multi-step mutations such as code redemption.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClient fetches a client by its client_id.
	GetClient(ctx context.Context, id string) (domain.Client, error)

	// CreateClient inserts a new client registration.
	CreateClient(ctx context.Context, c domain.Client) error

	// UpdateClient merges the non-nil fields of upd into the stored client
	// and returns the updated record.
	UpdateClient(ctx context.Context, id string, upd domain.Client) (domain.Client, error)

	// DeleteClient removes a client registration.
	DeleteClient(ctx context.Context, id string) error

	// ListClients returns all clients ordered by creation date (newest
	// first). Secrets are NOT stripped here; callers sanitize before
	// exposure.
	ListClients(ctx context.Context) ([]domain.Client, error)
}

type Users interface {
	// GetUser fetches a user by username.
	GetUser(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists when the
	// username is taken; uniqueness is enforced at the storage layer.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, username, newHash string) error

	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, username string) error

	// ListUsers returns all users. Password hashes are NOT stripped here;
	// callers redact before exposure.
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Sessions interface {
	// CreateSession records a logged-in browser session.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession fetches a session by its id.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// DeleteSession removes a session (logout or expiry).
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions created before now-ttl.
	DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// ListSessions returns all sessions.
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

type PendingAuthorizations interface {
	// CreatePendingAuthorization inserts a new in-flight request.
	CreatePendingAuthorization(ctx context.Context, p domain.PendingAuthorization) error

	// GetPendingAuthorization fetches the in-flight request for a session.
	GetPendingAuthorization(ctx context.Context, sessionID string) (domain.PendingAuthorization, error)

	// UpsertFresh applies the update-if-live / replace-if-stale / insert
	// policy as a single store operation: a live record for the session is
	// overwritten with p, a stale one is deleted and recreated, a missing
	// one is inserted.
	UpsertFresh(ctx context.Context, p domain.PendingAuthorization, now time.Time) error

	// AttachUser sets the user id on an existing pending authorization
	// once the session has authenticated.
	AttachUser(ctx context.Context, sessionID, userID string) error

	// DeletePendingAuthorization removes the record (consent decision or
	// expiry).
	DeletePendingAuthorization(ctx context.Context, sessionID string) error

	// DeleteExpiredPendingAuthorizations removes records past expires_at.
	DeleteExpiredPendingAuthorizations(ctx context.Context) (int64, error)

	// ListPendingAuthorizations returns all in-flight requests.
	ListPendingAuthorizations(ctx context.Context) ([]domain.PendingAuthorization, error)
}

type AuthorizationCodes interface {
	// CreateCode stores a freshly minted authorization code.
	CreateCode(ctx context.Context, c domain.AuthorizationCode) error

	// GetCode fetches a code by its opaque value.
	GetCode(ctx context.Context, code string) (domain.AuthorizationCode, error)

	// DeleteCode removes a code. Returns ErrNotFound when the code was
	// already gone, which redemption paths treat as already-consumed.
	DeleteCode(ctx context.Context, code string) error

	// DeleteExpiredCodes removes codes past expires_at.
	DeleteExpiredCodes(ctx context.Context) (int64, error)

	// ListCodes returns all stored codes.
	ListCodes(ctx context.Context) ([]domain.AuthorizationCode, error)

	// GetCodesByClient returns all codes issued to a client.
	GetCodesByClient(ctx context.Context, clientID string) ([]domain.AuthorizationCode, error)

	// DeleteCodesByClient removes all codes issued to a client.
	DeleteCodesByClient(ctx context.Context, clientID string) (int64, error)
}

type Tokens interface {
	// CreateToken stores a new access or refresh token.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetToken fetches a token by its opaque value. When typ is non-empty
	// the lookup is restricted to that token type.
	GetToken(ctx context.Context, value string, typ domain.TokenType) (domain.Token, error)

	// DeleteToken removes a token. Returns ErrNotFound when the token was
	// already gone.
	DeleteToken(ctx context.Context, value string) error

	// DeleteExpiredTokens removes tokens past expires_at.
	DeleteExpiredTokens(ctx context.Context) (int64, error)

	// ListTokens returns all stored tokens.
	ListTokens(ctx context.Context) ([]domain.Token, error)

	// GetTokensByClient returns all tokens issued to a client.
	GetTokensByClient(ctx context.Context, clientID string) ([]domain.Token, error)

	// DeleteTokensByClient removes all tokens issued to a client.
	DeleteTokensByClient(ctx context.Context, clientID string) (int64, error)
}
