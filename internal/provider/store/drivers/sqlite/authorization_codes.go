package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
)

type authorizationCodesRepo struct {
	db dbtx
}

const codeColumns = `code, client_id, code_challenge, redirect_uri, scopes, resource, created_at, expires_at`

func scanCode(row interface{ Scan(dest ...any) error }) (domain.AuthorizationCode, error) {
	var (
		c      domain.AuthorizationCode
		scopes string
	)
	err := row.Scan(
		&c.Code, &c.ClientID, &c.CodeChallenge, &c.RedirectURI,
		&scopes, &c.Resource, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return domain.AuthorizationCode{}, err
	}
	c.Scopes = splitAndFilter(scopes)
	return c, nil
}

func (r *authorizationCodesRepo) CreateCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (`+codeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.ClientID, c.CodeChallenge, c.RedirectURI,
		strings.Join(c.Scopes, " "), c.Resource, c.CreatedAt, c.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *authorizationCodesRepo) GetCode(ctx context.Context, code string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM authorization_codes WHERE code = ?`, code)
	c, err := scanCode(row)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	return c, nil
}

// DeleteCode removes the code row. The RowsAffected check doubles as the
// single-use guard: a second redeemer observes ErrNotFound.
func (r *authorizationCodesRepo) DeleteCode(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE code = ?`, code)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *authorizationCodesRepo) DeleteExpiredCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *authorizationCodesRepo) ListCodes(ctx context.Context) ([]domain.AuthorizationCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+codeColumns+` FROM authorization_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCodes(rows)
}

func (r *authorizationCodesRepo) GetCodesByClient(ctx context.Context, clientID string) ([]domain.AuthorizationCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+codeColumns+` FROM authorization_codes WHERE client_id = ? ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCodes(rows)
}

func (r *authorizationCodesRepo) DeleteCodesByClient(ctx context.Context, clientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE client_id = ?`, clientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectCodes(rows *sql.Rows) ([]domain.AuthorizationCode, error) {
	var codes []domain.AuthorizationCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
