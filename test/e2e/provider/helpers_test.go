package provider_test

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/lanternhq/vestibule/pkg/oauthx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for authorization server end-to-end
 * tests. This includes container setup, flow helpers, and assertions.
 */

const (
	testImageName = "vestibule-test:latest"

	testUsername = "alice"
	testPassword = "Sup3rSecret!"
	clientName   = "test-client"
	redirectURI  = "http://localhost/callback"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building authorization server Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up authorization server Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/vestibule/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupProviderContainer starts the authorization server in a container and
// returns the base URL.
func setupProviderContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"PROVIDER_ISSUER":        "http://localhost:8080",
			"PROVIDER_DATABASE_FILE": "/provider.db",
			"ENV":                    "test",
			"LOG_LEVEL":              "info",
			"LOG_FORMAT":             "json",
			// Increase rate limits for E2E tests to prevent test failures
			// Tests often make many rapid requests which would otherwise hit the strict production limits
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// browserClient returns an http.Client that keeps session cookies and does
// not follow redirects, so tests can inspect the authorization response.
func browserClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// pkcePair generates a code verifier and its S256 challenge.
func pkcePair(t *testing.T) (verifier, challenge string) {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge
}

// registerClient registers a new OAuth2 client and returns its credentials.
func registerClient(t *testing.T, baseURL, scope string) oauthx.ClientRegistration {
	t.Helper()

	body := fmt.Sprintf(`{"client_name":%q,"redirect_uris":[%q],"scope":%q}`, clientName, redirectURI, scope)
	resp, err := http.Post(baseURL+"/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reg oauthx.ClientRegistration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reg))
	require.NotEmpty(t, reg.ClientID)
	require.NotEmpty(t, reg.ClientSecret)
	return reg
}

// startAuthorization performs GET /authorize and asserts the login page is
// served. The session cookie lands in the client's jar.
func startAuthorization(t *testing.T, client *http.Client, baseURL, clientID, challenge, scope, state string) {
	t.Helper()

	q := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"state":                 {state},
	}
	if scope != "" {
		q.Set("scope", scope)
	}

	resp, err := client.Get(baseURL + "/authorize?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

// registerUser submits the signup form on the login page.
func registerUser(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()

	form := url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	}
	resp, err := client.PostForm(baseURL+"/authorize/register", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// login submits the login form and expects the consent page back.
func login(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()

	form := url.Values{
		"username": {username},
		"password": {password},
	}
	resp, err := client.PostForm(baseURL+"/authorize/login", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// approveConsent submits the consent decision and extracts the code and
// state from the redirect.
func approveConsent(t *testing.T, client *http.Client, baseURL, action string) *url.URL {
	t.Helper()

	form := url.Values{"action": {action}}
	resp, err := client.PostForm(baseURL+"/authorize/consent", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(loc.String(), redirectURI))
	return loc
}

// obtainCode runs the full interactive leg (authorize, register, consent)
// and returns the authorization code.
func obtainCode(t *testing.T, baseURL, clientID, challenge, scope string) string {
	t.Helper()

	client := browserClient(t)
	state := "state-" + challenge[:8]

	startAuthorization(t, client, baseURL, clientID, challenge, scope, state)
	registerUser(t, client, baseURL, testUsername+"-"+challenge[:6], testPassword)

	loc := approveConsent(t, client, baseURL, "approve")
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	require.Equal(t, state, loc.Query().Get("state"))
	return code
}

// exchangeCode redeems an authorization code at the token endpoint.
func exchangeCode(t *testing.T, baseURL, clientID, clientSecret, code, verifier string) (*oauthx.TokenResponse, int) {
	t.Helper()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code_verifier": {verifier},
		"redirect_uri":  {redirectURI},
	}
	return postToken(t, baseURL, form)
}

// refreshToken exchanges a refresh token for a new access token.
func refreshToken(t *testing.T, baseURL, clientID, clientSecret, refresh, scope string) (*oauthx.TokenResponse, int) {
	t.Helper()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	return postToken(t, baseURL, form)
}

func postToken(t *testing.T, baseURL string, form url.Values) (*oauthx.TokenResponse, int) {
	t.Helper()

	resp, err := http.PostForm(baseURL+"/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Logf("token endpoint returned %d: %s", resp.StatusCode, body)
		return nil, resp.StatusCode
	}

	var token oauthx.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&token))
	return &token, resp.StatusCode
}

// revokeToken posts to the revocation endpoint.
func revokeToken(t *testing.T, baseURL, clientID, clientSecret, token, hint string) int {
	t.Helper()

	form := url.Values{
		"token":         {token},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if hint != "" {
		form.Set("token_type_hint", hint)
	}
	resp, err := http.PostForm(baseURL+"/revoke", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *oauthx.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "bearer", resp.TokenType, "Token type should be bearer")
	require.NotEmpty(t, resp.Scope, "Scope should not be empty")
}
