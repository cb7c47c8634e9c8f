package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/lanternhq/vestibule/internal/provider/domain"
	"github.com/lanternhq/vestibule/internal/provider/store"
	"github.com/lanternhq/vestibule/pkg/cryptox"
	"github.com/lanternhq/vestibule/pkg/idx"
	"github.com/lanternhq/vestibule/pkg/slogx"
)

// AuthorizeStep tells the binding layer which page to render next for an
// in-flight authorization attempt.
type AuthorizeStep int

const (
	StepLogin AuthorizeStep = iota
	StepConsent
)

// AuthorizeResult is the outcome of Authorize: the session id to set as the
// browser cookie plus which page comes next. Client and ValidScopes feed the
// consent page for authenticated sessions.
type AuthorizeResult struct {
	SessionID   string
	Step        AuthorizeStep
	Client      domain.Client
	ValidScopes []string
}

// ConsentPrompt carries what the consent page needs to render.
type ConsentPrompt struct {
	Client      domain.Client
	ValidScopes []string
}

// LoginResult is the outcome of Login or Register. Consent is non-nil when a
// pending authorization awaited the login; nil means a standalone login with
// nothing to resume.
type LoginResult struct {
	SessionID string
	Consent   *ConsentPrompt
}

// ConfirmResult is the outcome of a consent decision. Both branches redirect
// back to the client; Denied selects the error=access_denied form.
type ConfirmResult struct {
	Code        string
	RedirectURI string
	State       string
	Denied      bool
}

// CleanupStats counts the records removed by a cleanup sweep.
type CleanupStats struct {
	Sessions              int64 `json:"sessions"`
	PendingAuthorizations int64 `json:"pending_authorizations"`
	AuthorizationCodes    int64 `json:"authorization_codes"`
	Tokens                int64 `json:"tokens"`
}

// Provider implements the authorization code + PKCE state machine. Every
// attempt is keyed by the browser session id and walks login, consent, code
// issuance, and token exchange, with all state living in the store.
type Provider struct {
	Store store.Store
	Users *UserService

	AllowedScopes []string
	DefaultScopes []string

	CodeTTL    time.Duration
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

// pendingTTL mirrors the code TTL: an undecided authorization lives no
// longer than the code it would mint.
func (p *Provider) pendingTTL() time.Duration { return p.CodeTTL }

// Authorize begins (or refreshes) an authorization attempt for the given
// client. sessionID is the inbound cookie value and may be empty, in which
// case a fresh session id is minted and returned for the caller to set.
//
// The pending authorization is upserted on every call so repeated /authorize
// hits from the same browser tab converge on the latest request parameters.
func (p *Provider) Authorize(ctx context.Context, clientID, sessionID string, params domain.AuthorizationParams) (*AuthorizeResult, error) {
	now := time.Now().UTC()

	client, err := p.Store.Clients().GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if params.RedirectURI == "" {
		return nil, ErrInvalidRequest
	}
	if len(client.RedirectURIs) > 0 && !containsString(client.RedirectURIs, params.RedirectURI) {
		return nil, ErrInvalidRequest
	}
	if params.CodeChallenge == "" {
		return nil, ErrInvalidRequest
	}

	requested := params.Scopes
	if len(requested) == 0 {
		requested = p.DefaultScopes
	}
	validScopes := intersectScopes(requested, p.AllowedScopes)
	if len(validScopes) == 0 {
		return nil, &ScopeError{Invalid: requested, Allowed: p.AllowedScopes}
	}

	if sessionID == "" {
		sessionID = idx.New().String()
	}

	pending := domain.PendingAuthorization{
		SessionID:   sessionID,
		Client:      client,
		Params:      params,
		ValidScopes: validScopes,
		CreatedAt:   now,
		ExpiresAt:   now.Add(p.pendingTTL()),
	}

	session, err := p.liveSession(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if session != nil {
		pending.UserID = session.Username
	}

	if err := p.Store.PendingAuthorizations().UpsertFresh(ctx, pending, now); err != nil {
		return nil, err
	}

	if session == nil {
		return &AuthorizeResult{SessionID: sessionID, Step: StepLogin}, nil
	}

	return &AuthorizeResult{
		SessionID:   sessionID,
		Step:        StepConsent,
		Client:      client,
		ValidScopes: validScopes,
	}, nil
}

// Login authenticates the user and binds the browser session to them. When a
// pending authorization awaits this session the user id is attached and the
// consent prompt is returned for rendering.
func (p *Provider) Login(ctx context.Context, sessionID, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidRequest
	}

	if err := p.Users.VerifyPassword(ctx, username, password); err != nil {
		return nil, err
	}

	return p.establishSession(ctx, sessionID, username)
}

// Register creates a new user and logs them in; registration implies login,
// so the flow continues exactly as Login's post-authentication branch.
func (p *Provider) Register(ctx context.Context, sessionID, username, password, confirm string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || confirm == "" {
		return nil, ErrInvalidRequest
	}
	if password != confirm {
		return nil, ErrInvalidRequest
	}

	if _, err := p.Users.CreateUser(ctx, username, password); err != nil {
		return nil, err
	}

	return p.establishSession(ctx, sessionID, username)
}

func (p *Provider) establishSession(ctx context.Context, sessionID, username string) (*LoginResult, error) {
	now := time.Now().UTC()

	if sessionID == "" {
		sessionID = idx.New().String()
	}

	// Replace any prior login on this session id. A fresh CreatedAt restarts
	// the absolute expiry clock.
	if err := p.Store.Sessions().DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err := p.Store.Sessions().CreateSession(ctx, domain.Session{
		ID:        sessionID,
		Username:  username,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("session established", "username", username)

	result := &LoginResult{SessionID: sessionID}

	pending, err := p.Store.PendingAuthorizations().GetPendingAuthorization(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}
	if pending.Expired(now) {
		_ = p.Store.PendingAuthorizations().DeletePendingAuthorization(ctx, sessionID)
		return result, nil
	}

	if err := p.Store.PendingAuthorizations().AttachUser(ctx, sessionID, username); err != nil {
		return nil, err
	}

	result.Consent = &ConsentPrompt{
		Client:      pending.Client,
		ValidScopes: pending.ValidScopes,
	}
	return result, nil
}

// ConfirmAuthorization applies the user's consent decision. Approve mints a
// single-use authorization code and deletes the pending record; deny deletes
// the pending record and reports the denial for the redirect. Any other
// action leaves state untouched.
func (p *Provider) ConfirmAuthorization(ctx context.Context, sessionID, action string) (*ConfirmResult, error) {
	now := time.Now().UTC()

	if sessionID == "" {
		return nil, ErrNoPendingAuthorization
	}

	pending, err := p.Store.PendingAuthorizations().GetPendingAuthorization(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoPendingAuthorization
		}
		return nil, err
	}
	if pending.Expired(now) {
		_ = p.Store.PendingAuthorizations().DeletePendingAuthorization(ctx, sessionID)
		return nil, ErrNoPendingAuthorization
	}

	session, err := p.liveSession(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrLoginRequired
	}

	switch action {
	case "deny":
		if err := p.Store.PendingAuthorizations().DeletePendingAuthorization(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return &ConfirmResult{
			RedirectURI: pending.Params.RedirectURI,
			State:       pending.Params.State,
			Denied:      true,
		}, nil

	case "approve":
		code, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return nil, err
		}

		record := domain.AuthorizationCode{
			Code:          code,
			ClientID:      pending.Client.ID,
			CodeChallenge: pending.Params.CodeChallenge,
			RedirectURI:   pending.Params.RedirectURI,
			Scopes:        pending.ValidScopes,
			Resource:      pending.Params.Resource,
			CreatedAt:     now,
			ExpiresAt:     now.Add(p.CodeTTL),
		}

		if err := p.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.AuthorizationCodes().CreateCode(ctx, record); err != nil {
				return err
			}
			if err := tx.PendingAuthorizations().DeletePendingAuthorization(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return nil
		}); err != nil {
			return nil, err
		}

		slogx.FromContext(ctx).Info("authorization code issued",
			"client_id", pending.Client.ID,
			"code_fp", cryptox.FingerprintToken(code),
			"scopes", strings.Join(pending.ValidScopes, " "))

		return &ConfirmResult{
			Code:        code,
			RedirectURI: pending.Params.RedirectURI,
			State:       pending.Params.State,
		}, nil

	default:
		return nil, ErrInvalidAction
	}
}

// PendingConsent returns the consent prompt for the session's live pending
// authorization, if any. Used to re-render the consent page without mutating
// state.
func (p *Provider) PendingConsent(ctx context.Context, sessionID string) (*ConsentPrompt, error) {
	pending, err := p.Store.PendingAuthorizations().GetPendingAuthorization(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoPendingAuthorization
		}
		return nil, err
	}
	if pending.Expired(time.Now().UTC()) {
		return nil, ErrNoPendingAuthorization
	}
	return &ConsentPrompt{
		Client:      pending.Client,
		ValidScopes: pending.ValidScopes,
	}, nil
}

// ChallengeForAuthorizationCode returns the PKCE challenge stored with the
// code so a caller can run its own verifier check. Expired codes fail here
// without being deleted; deletion-on-expiry only happens on exchange.
func (p *Provider) ChallengeForAuthorizationCode(ctx context.Context, clientID, code string) (string, error) {
	record, err := p.Store.AuthorizationCodes().GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidGrant
		}
		return "", err
	}
	if record.Expired(time.Now().UTC()) {
		return "", ErrInvalidGrant
	}
	if record.ClientID != clientID {
		return "", ErrInvalidClient
	}
	return record.CodeChallenge, nil
}

// ExchangeAuthorizationCode implements the authorization_code grant. The
// code is consumed inside a transaction: its deletion is the single-use
// signal, so a second redemption of the same code fails even when the two
// attempts interleave.
func (p *Provider) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, codeVerifier, redirectURI, resource string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	client, err := p.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidGrant
	}

	var result *domain.TokenPair
	var expired bool

	err = p.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.AuthorizationCodes().GetCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if record.Expired(now) {
			// Purge the stale row. Returning nil commits the delete; the
			// grant failure is reported after the transaction so the purge
			// is not rolled back with it.
			expired = true
			return tx.AuthorizationCodes().DeleteCode(ctx, code)
		}
		if record.ClientID != client.ID {
			return ErrInvalidClient
		}
		if redirectURI != "" && record.RedirectURI != redirectURI {
			return ErrInvalidGrant
		}
		if resource != "" && record.Resource != resource {
			return ErrInvalidGrant
		}
		if !verifyCodeVerifier(record.CodeChallenge, codeVerifier) {
			return ErrInvalidGrant
		}

		// Consume the code. A concurrent redemption that lost the race sees
		// ErrNotFound here.
		if err := tx.AuthorizationCodes().DeleteCode(ctx, code); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		scopes := record.Scopes
		if len(scopes) == 0 {
			scopes = p.DefaultScopes
		}

		pair, err := p.mintTokenPair(ctx, tx, now, client.ID, scopes, record.Resource, record.Code)
		if err != nil {
			return err
		}
		result = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrInvalidGrant
	}

	l.Info("authorization code exchanged",
		"client_id", client.ID, "code_fp", cryptox.FingerprintToken(code))
	return result, nil
}

// ExchangeRefreshToken implements the refresh_token grant. A new access
// token is minted against the same refresh token; the refresh token is never
// rotated and stays valid until its own expiry or explicit revocation.
func (p *Provider) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
	requestedScopes []string,
	resource string,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	client, err := p.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	rt, err := p.Store.Tokens().GetToken(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	if rt.Expired(now) {
		_ = p.Store.Tokens().DeleteToken(ctx, rt.Value)
		return nil, ErrInvalidGrant
	}
	if rt.ClientID != client.ID {
		return nil, ErrInvalidClient
	}
	if resource != "" && rt.Resource != resource {
		return nil, ErrInvalidGrant
	}

	scopes := requestedScopes
	if len(scopes) == 0 {
		scopes = rt.Scopes
	}
	scopes = dedupe(scopes)
	if len(scopes) == 0 || !subsetOf(scopes, rt.Scopes) {
		return nil, ErrInvalidScope
	}

	accessValue, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	access := domain.Token{
		Value:             accessValue,
		ClientID:          client.ID,
		Scopes:            scopes,
		Type:              domain.TokenTypeAccess,
		Resource:          rt.Resource,
		RefreshToken:      rt.Value,
		AuthorizationCode: rt.AuthorizationCode,
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.AccessTTL),
	}
	if err := p.Store.Tokens().CreateToken(ctx, access); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("refresh token exchanged", "client_id", client.ID)

	return &domain.TokenPair{
		AccessToken:  accessValue,
		RefreshToken: rt.Value,
		TokenType:    "bearer",
		ExpiresIn:    p.AccessTTL,
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// VerifyAccessToken resolves an opaque access token to its auth info.
// Expired tokens are purged at the point of the failed lookup.
func (p *Provider) VerifyAccessToken(ctx context.Context, token string) (domain.AuthInfo, error) {
	now := time.Now().UTC()

	t, err := p.Store.Tokens().GetToken(ctx, token, domain.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthInfo{}, ErrInvalidToken
		}
		return domain.AuthInfo{}, err
	}

	if t.Expired(now) {
		_ = p.Store.Tokens().DeleteToken(ctx, t.Value)
		return domain.AuthInfo{}, ErrInvalidToken
	}

	return domain.AuthInfo{
		Token:     t.Value,
		ClientID:  t.ClientID,
		Scopes:    t.Scopes,
		ExpiresAt: t.ExpiresAt.Unix(),
		Resource:  t.Resource,
	}, nil
}

// RevokeToken deletes the token named by the request if it exists and
// belongs to the requesting client. Revoking an absent token or one owned by
// another client is a silent no-op.
func (p *Provider) RevokeToken(ctx context.Context, clientID, clientSecret, token, tokenTypeHint string) error {
	client, err := p.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	typ := domain.TokenTypeAccess
	if tokenTypeHint == "refresh_token" {
		typ = domain.TokenTypeRefresh
	}

	t, err := p.Store.Tokens().GetToken(ctx, token, typ)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if t.ClientID != client.ID {
		return nil
	}

	if err := p.Store.Tokens().DeleteToken(ctx, t.Value); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	slogx.FromContext(ctx).Info("token revoked",
		"client_id", client.ID, "type", string(t.Type),
		"token_fp", cryptox.FingerprintToken(t.Value))
	return nil
}

// Cleanup sweeps expired sessions, pending authorizations, codes, and
// tokens. Each sweep is independent; a failure in one is logged and does not
// stop the others.
func (p *Provider) Cleanup(ctx context.Context) CleanupStats {
	l := slogx.FromContext(ctx)
	var stats CleanupStats

	if n, err := p.Store.Sessions().DeleteExpiredSessions(ctx, p.SessionTTL); err != nil {
		l.Error("failed to delete expired sessions", "error", err)
	} else {
		stats.Sessions = n
	}

	if n, err := p.Store.PendingAuthorizations().DeleteExpiredPendingAuthorizations(ctx); err != nil {
		l.Error("failed to delete expired pending authorizations", "error", err)
	} else {
		stats.PendingAuthorizations = n
	}

	if n, err := p.Store.AuthorizationCodes().DeleteExpiredCodes(ctx); err != nil {
		l.Error("failed to delete expired authorization codes", "error", err)
	} else {
		stats.AuthorizationCodes = n
	}

	if n, err := p.Store.Tokens().DeleteExpiredTokens(ctx); err != nil {
		l.Error("failed to delete expired tokens", "error", err)
	} else {
		stats.Tokens = n
	}

	return stats
}

// liveSession returns the session when it exists and is within its absolute
// lifetime. Expired sessions are deleted on the spot and reported as absent.
func (p *Provider) liveSession(ctx context.Context, sessionID string, now time.Time) (*domain.Session, error) {
	session, err := p.Store.Sessions().GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if session.ExpiresAfter(p.SessionTTL, now) {
		_ = p.Store.Sessions().DeleteSession(ctx, sessionID)
		return nil, nil
	}
	return &session, nil
}

// authenticateClient loads the client and, when a secret is registered,
// requires the caller to present it.
func (p *Provider) authenticateClient(ctx context.Context, clientID, clientSecret string) (domain.Client, error) {
	client, err := p.Store.Clients().GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Client{}, ErrInvalidClient
		}
		return domain.Client{}, err
	}

	if client.Secret != "" {
		if subtle.ConstantTimeCompare([]byte(clientSecret), []byte(client.Secret)) != 1 {
			slogx.FromContext(ctx).Info("client authentication failed", "client_id", clientID)
			return domain.Client{}, ErrInvalidClient
		}
	}

	return client, nil
}

func (p *Provider) mintTokenPair(
	ctx context.Context,
	tx store.Tx,
	now time.Time,
	clientID string,
	scopes []string,
	resource, authorizationCode string,
) (*domain.TokenPair, error) {
	refreshValue, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	accessValue, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	refresh := domain.Token{
		Value:             refreshValue,
		ClientID:          clientID,
		Scopes:            scopes,
		Type:              domain.TokenTypeRefresh,
		Resource:          resource,
		AuthorizationCode: authorizationCode,
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.RefreshTTL),
	}
	access := domain.Token{
		Value:             accessValue,
		ClientID:          clientID,
		Scopes:            scopes,
		Type:              domain.TokenTypeAccess,
		Resource:          resource,
		RefreshToken:      refreshValue,
		AuthorizationCode: authorizationCode,
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.AccessTTL),
	}

	if err := tx.Tokens().CreateToken(ctx, refresh); err != nil {
		return nil, err
	}
	if err := tx.Tokens().CreateToken(ctx, access); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessValue,
		RefreshToken: refreshValue,
		TokenType:    "bearer",
		ExpiresIn:    p.AccessTTL,
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// verifyCodeVerifier checks a PKCE verifier against the stored challenge.
// The challenge format is S256 unless it matches the verifier byte for byte
// (plain).
func verifyCodeVerifier(challenge, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		// No PKCE challenge stored; accept regardless of verifier.
		return true
	}

	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}

	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) == 1
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
