package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

var ErrClientNotFound = errors.New("client not found")

// ClientService manages OAuth2 client registrations and owns scope
// validation against the server-wide allow-list.
type ClientService struct {
	Store         store.Store
	AllowedScopes []string
}

// RegisterClientRequest carries the client-supplied registration metadata.
// Scope is space-delimited per the wire format; empty means "all allowed".
type RegisterClientRequest struct {
	Name         string
	RedirectURIs []string
	Scope        string
}

// RegisterClient creates a new client registration, generating the client_id
// and client_secret. The returned client includes the plaintext secret; it is
// never returned again by list operations.
func (s *ClientService) RegisterClient(ctx context.Context, req RegisterClientRequest) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	scopes, err := s.normalizeScopes(req.Scope)
	if err != nil {
		return domain.Client{}, err
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:              uuid.NewString(),
		Secret:          uuid.NewString(),
		Name:            req.Name,
		RedirectURIs:    req.RedirectURIs,
		Scopes:          scopes,
		IssuedAt:        now.Unix(),
		SecretExpiresAt: 0, // never expires
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Store.Clients().CreateClient(ctx, client); err != nil {
		l.Error("failed to create client", "error", err)
		return domain.Client{}, err
	}

	l.Info("client registered", "client_id", client.ID, "name", client.Name, "scopes", strings.Join(scopes, " "))
	return client, nil
}

// GetClient fetches a client by id. Returns ErrClientNotFound when absent.
func (s *ClientService) GetClient(ctx context.Context, id string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClient(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	return client, nil
}

// UpdateClient merges the provided partial update into the stored client.
// A scope update is re-validated against the allow-list.
func (s *ClientService) UpdateClient(ctx context.Context, id string, upd domain.ClientUpdate) (domain.Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	if upd.Name != nil {
		client.Name = *upd.Name
	}
	if upd.RedirectURIs != nil {
		client.RedirectURIs = *upd.RedirectURIs
	}
	if upd.Scope != nil {
		scopes, err := s.normalizeScopes(*upd.Scope)
		if err != nil {
			return domain.Client{}, err
		}
		client.Scopes = scopes
	}
	client.UpdatedAt = time.Now().UTC()

	updated, err := s.Store.Clients().UpdateClient(ctx, id, client)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrClientNotFound
		}
		return domain.Client{}, err
	}
	return updated, nil
}

// DeleteClient removes a client registration along with any outstanding
// codes and tokens it was issued, so nothing minted for a deleted client
// remains redeemable.
func (s *ClientService) DeleteClient(ctx context.Context, id string) error {
	var codes, tokens int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().DeleteClient(ctx, id); err != nil {
			return err
		}
		var err error
		if codes, err = tx.AuthorizationCodes().DeleteCodesByClient(ctx, id); err != nil {
			return err
		}
		tokens, err = tx.Tokens().DeleteTokensByClient(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("client deleted", "client_id", id, "codes_removed", codes, "tokens_removed", tokens)
	return nil
}

// ClientActivity reports what a client currently has outstanding.
type ClientActivity struct {
	Codes  []domain.AuthorizationCode
	Tokens []domain.Token
}

// GetClientActivity returns the outstanding codes and tokens for a client.
func (s *ClientService) GetClientActivity(ctx context.Context, id string) (ClientActivity, error) {
	if _, err := s.GetClient(ctx, id); err != nil {
		return ClientActivity{}, err
	}

	codes, err := s.Store.AuthorizationCodes().GetCodesByClient(ctx, id)
	if err != nil {
		return ClientActivity{}, err
	}
	tokens, err := s.Store.Tokens().GetTokensByClient(ctx, id)
	if err != nil {
		return ClientActivity{}, err
	}
	return ClientActivity{Codes: codes, Tokens: tokens}, nil
}

// ListClients returns all registered clients with secrets stripped.
func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	clients, err := s.Store.Clients().ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i] = clients[i].Sanitized()
	}
	return clients, nil
}

// normalizeScopes parses a space-delimited scope string, defaulting to the
// full allowed set when empty and rejecting any scope outside the allow-list.
func (s *ClientService) normalizeScopes(scope string) ([]string, error) {
	requested := strings.Fields(scope)
	if len(requested) == 0 {
		return dedupe(s.AllowedScopes), nil
	}
	requested = dedupe(requested)
	if invalid := subtractScopes(requested, s.AllowedScopes); len(invalid) > 0 {
		return nil, &ScopeError{Invalid: invalid, Allowed: s.AllowedScopes}
	}
	return requested, nil
}
