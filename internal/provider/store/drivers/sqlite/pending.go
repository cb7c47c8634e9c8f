package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
)

type pendingRepo struct {
	db dbtx
}

const pendingColumns = `session_id, client_json, redirect_uri, scopes, resource, state, code_challenge, valid_scopes, user_id, created_at, expires_at`

func scanPending(row interface{ Scan(dest ...any) error }) (domain.PendingAuthorization, error) {
	var (
		p           domain.PendingAuthorization
		clientJSON  string
		scopes      string
		validScopes string
	)
	err := row.Scan(
		&p.SessionID, &clientJSON,
		&p.Params.RedirectURI, &scopes, &p.Params.Resource, &p.Params.State, &p.Params.CodeChallenge,
		&validScopes, &p.UserID, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return domain.PendingAuthorization{}, err
	}
	if err := json.Unmarshal([]byte(clientJSON), &p.Client); err != nil {
		return domain.PendingAuthorization{}, err
	}
	p.Params.Scopes = splitAndFilter(scopes)
	p.ValidScopes = splitAndFilter(validScopes)
	return p, nil
}

func (r *pendingRepo) CreatePendingAuthorization(ctx context.Context, p domain.PendingAuthorization) error {
	clientJSON, err := json.Marshal(p.Client)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pending_authorizations (`+pendingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, string(clientJSON),
		p.Params.RedirectURI, strings.Join(p.Params.Scopes, " "), p.Params.Resource,
		p.Params.State, p.Params.CodeChallenge,
		strings.Join(p.ValidScopes, " "), p.UserID, p.CreatedAt, p.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *pendingRepo) GetPendingAuthorization(ctx context.Context, sessionID string) (domain.PendingAuthorization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_authorizations WHERE session_id = ?`, sessionID)
	p, err := scanPending(row)
	if err != nil {
		return domain.PendingAuthorization{}, mapNotFound(err)
	}
	return p, nil
}

// UpsertFresh overwrites any record for the session with p. SQLite's upsert
// makes the live/stale distinction moot here since a stale record is replaced
// wholesale either way, which matches the replace-if-expired policy.
func (r *pendingRepo) UpsertFresh(ctx context.Context, p domain.PendingAuthorization, now time.Time) error {
	clientJSON, err := json.Marshal(p.Client)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pending_authorizations (`+pendingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			client_json = excluded.client_json,
			redirect_uri = excluded.redirect_uri,
			scopes = excluded.scopes,
			resource = excluded.resource,
			state = excluded.state,
			code_challenge = excluded.code_challenge,
			valid_scopes = excluded.valid_scopes,
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		p.SessionID, string(clientJSON),
		p.Params.RedirectURI, strings.Join(p.Params.Scopes, " "), p.Params.Resource,
		p.Params.State, p.Params.CodeChallenge,
		strings.Join(p.ValidScopes, " "), p.UserID, p.CreatedAt, p.ExpiresAt,
	)
	return err
}

func (r *pendingRepo) AttachUser(ctx context.Context, sessionID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_authorizations SET user_id = ? WHERE session_id = ?`,
		userID, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *pendingRepo) DeletePendingAuthorization(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_authorizations WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *pendingRepo) DeleteExpiredPendingAuthorizations(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_authorizations WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *pendingRepo) ListPendingAuthorizations(ctx context.Context) ([]domain.PendingAuthorization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_authorizations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []domain.PendingAuthorization
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
