package sqlite

import (
	"context"
	"strings"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, secret, name, redirect_uris, scopes, issued_at, secret_expires_at, created_at, updated_at`

func scanClient(row interface{ Scan(dest ...any) error }) (domain.Client, error) {
	var (
		c            domain.Client
		redirectURIs string
		scopes       string
	)
	err := row.Scan(
		&c.ID, &c.Secret, &c.Name, &redirectURIs, &scopes,
		&c.IssuedAt, &c.SecretExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Client{}, err
	}
	c.RedirectURIs = splitAndFilter(redirectURIs)
	c.Scopes = splitAndFilter(scopes)
	return c, nil
}

func (r *clientsRepo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, secret, name, redirect_uris, scopes, issued_at, secret_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Secret, c.Name,
		strings.Join(c.RedirectURIs, " "), strings.Join(c.Scopes, " "),
		c.IssuedAt, c.SecretExpiresAt, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *clientsRepo) UpdateClient(ctx context.Context, id string, upd domain.Client) (domain.Client, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET name = ?, redirect_uris = ?, scopes = ?, updated_at = ?
		WHERE id = ?`,
		upd.Name, strings.Join(upd.RedirectURIs, " "), strings.Join(upd.Scopes, " "),
		upd.UpdatedAt, id,
	)
	if err != nil {
		return domain.Client{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Client{}, store.ErrNotFound
	}
	return r.GetClient(ctx, id)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
