package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
)

type tokensRepo struct {
	db dbtx
}

const tokenColumns = `value, client_id, scopes, type, resource, refresh_token, authorization_code, created_at, expires_at`

func scanToken(row interface{ Scan(dest ...any) error }) (domain.Token, error) {
	var (
		t      domain.Token
		scopes string
		typ    string
	)
	err := row.Scan(
		&t.Value, &t.ClientID, &scopes, &typ, &t.Resource,
		&t.RefreshToken, &t.AuthorizationCode, &t.CreatedAt, &t.ExpiresAt,
	)
	if err != nil {
		return domain.Token{}, err
	}
	t.Scopes = splitAndFilter(scopes)
	t.Type = domain.TokenType(typ)
	return t, nil
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Value, t.ClientID, strings.Join(t.Scopes, " "), string(t.Type),
		t.Resource, t.RefreshToken, t.AuthorizationCode, t.CreatedAt, t.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *tokensRepo) GetToken(ctx context.Context, value string, typ domain.TokenType) (domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE value = ?`
	args := []any{value}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	row := r.db.QueryRowContext(ctx, query, args...)
	t, err := scanToken(row)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) DeleteToken(ctx context.Context, value string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE value = ?`, value)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *tokensRepo) ListTokens(ctx context.Context) ([]domain.Token, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

func (r *tokensRepo) GetTokensByClient(ctx context.Context, clientID string) ([]domain.Token, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE client_id = ? ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

func (r *tokensRepo) DeleteTokensByClient(ctx context.Context, clientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE client_id = ?`, clientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectTokens(rows *sql.Rows) ([]domain.Token, error) {
	var tokens []domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
