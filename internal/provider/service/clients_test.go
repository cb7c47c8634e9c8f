package service

import (
	"context"
	"testing"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/stretchr/testify/require"
)

func TestClientRegistration(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) *ClientService {
		return &ClientService{
			Store:         newTestStore(t),
			AllowedScopes: []string{"read", "write", "admin"},
		}
	}

	t.Run("generates credentials", func(t *testing.T) {
		svc := newService(t)
		client, err := svc.RegisterClient(ctx, RegisterClientRequest{
			Name:         "my-app",
			RedirectURIs: []string{"https://app.example/cb"},
			Scope:        "read write",
		})
		require.NoError(t, err)
		require.NotEmpty(t, client.ID)
		require.NotEmpty(t, client.Secret)
		require.Equal(t, []string{"read", "write"}, client.Scopes)
		require.NotZero(t, client.IssuedAt)
		require.Zero(t, client.SecretExpiresAt)
	})

	t.Run("absent scope defaults to full allowed set", func(t *testing.T) {
		svc := newService(t)
		client, err := svc.RegisterClient(ctx, RegisterClientRequest{
			RedirectURIs: []string{"https://app.example/cb"},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"read", "write", "admin"}, client.Scopes)
	})

	t.Run("scope outside the allow-list is rejected with detail", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.RegisterClient(ctx, RegisterClientRequest{
			Scope: "read superuser",
		})
		require.ErrorIs(t, err, ErrInvalidScope)

		var scopeErr *ScopeError
		require.ErrorAs(t, err, &scopeErr)
		require.Equal(t, []string{"superuser"}, scopeErr.Invalid)
		require.Contains(t, scopeErr.Error(), "superuser")
	})
}

func TestClientUpdate(t *testing.T) {
	ctx := context.Background()

	svc := &ClientService{
		Store:         newTestStore(t),
		AllowedScopes: []string{"read", "write", "admin"},
	}

	client, err := svc.RegisterClient(ctx, RegisterClientRequest{
		Name:  "before",
		Scope: "read write",
	})
	require.NoError(t, err)

	t.Run("partial merge keeps unset fields", func(t *testing.T) {
		name := "after"
		updated, err := svc.UpdateClient(ctx, client.ID, domain.ClientUpdate{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "after", updated.Name)
		require.Equal(t, []string{"read", "write"}, updated.Scopes)
	})

	t.Run("scope update is re-validated", func(t *testing.T) {
		bad := "read nope"
		_, err := svc.UpdateClient(ctx, client.ID, domain.ClientUpdate{Scope: &bad})
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("unknown client", func(t *testing.T) {
		name := "x"
		_, err := svc.UpdateClient(ctx, "missing", domain.ClientUpdate{Name: &name})
		require.ErrorIs(t, err, ErrClientNotFound)
	})
}

func TestListClientsStripsSecrets(t *testing.T) {
	ctx := context.Background()

	svc := &ClientService{
		Store:         newTestStore(t),
		AllowedScopes: []string{"read"},
	}

	_, err := svc.RegisterClient(ctx, RegisterClientRequest{Name: "a"})
	require.NoError(t, err)
	_, err = svc.RegisterClient(ctx, RegisterClientRequest{Name: "b"})
	require.NoError(t, err)

	clients, err := svc.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	for _, c := range clients {
		require.Empty(t, c.Secret)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	ctx := context.Background()

	p, s := newTestProvider(t)
	svc := &ClientService{Store: s, AllowedScopes: []string{"read", "write", "admin"}}

	code, client := issueCode(t, p, s, "verifier-cascade")
	pair, err := p.ExchangeAuthorizationCode(ctx, client.ID, client.Secret, code, "verifier-cascade", "https://app.example/callback", "")
	require.NoError(t, err)

	activity, err := svc.GetClientActivity(ctx, client.ID)
	require.NoError(t, err)
	require.Empty(t, activity.Codes) // consumed by the exchange
	require.Len(t, activity.Tokens, 2)

	require.NoError(t, svc.DeleteClient(ctx, client.ID))

	_, err = p.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GetClientActivity(ctx, client.ID)
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestDeleteClientUnknown(t *testing.T) {
	svc := &ClientService{
		Store:         newTestStore(t),
		AllowedScopes: []string{"read"},
	}
	err := svc.DeleteClient(context.Background(), "nope")
	require.ErrorIs(t, err, ErrClientNotFound)
}
