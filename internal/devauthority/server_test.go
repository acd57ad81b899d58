package devauthority

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	t      *testing.T
	server *Server
	http   *httptest.Server
	client *http.Client
	base   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	server := New(Config{BcryptCost: bcrypt.MinCost, Secret: []byte("test-secret")})
	require.NoError(t, server.AddUser("ada@example.com", "pw-1", "Ada"))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		t:      t,
		server: server,
		http:   ts,
		client: &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }},
		base:   ts.URL + "/api",
	}
}

func (h *harness) post(path string, body any, headers map[string]string) *http.Response {
	h.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(h.t, err)
	}
	req, err := http.NewRequest(http.MethodPost, h.base+path, bytes.NewReader(payload))
	require.NoError(h.t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) get(path, token string) *http.Response {
	h.t.Helper()

	req, err := http.NewRequest(http.MethodGet, h.base+path, nil)
	require.NoError(h.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) cookie(name string) string {
	u, _ := url.Parse(h.base + "/auth/refresh")
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func decodeTokens(t *testing.T, resp *http.Response) tokenBody {
	t.Helper()
	var body tokenBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func (h *harness) login(remember bool) tokenBody {
	h.t.Helper()
	resp := h.post("/auth/login", map[string]any{"email": "ada@example.com", "password": "pw-1", "rememberMe": remember}, nil)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	return decodeTokens(h.t, resp)
}

func TestLoginIssuesSignedTokenAndCredentialCookies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post("/auth/login", map[string]any{"email": "ADA@example.com", "password": "pw-1", "rememberMe": true}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tokens := decodeTokens(t, resp)

	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, "ada@example.com", tokens.User.Email)
	assert.InDelta(t, DefaultAccessTTL.Seconds(), float64(tokens.ExpiresIn), 2)

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, claims)
	require.NoError(t, err)
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, tokens.ExpiresAt, exp.UnixMilli())

	var refreshCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == refreshCookieName {
			refreshCookie = c
		}
	}
	require.NotNil(t, refreshCookie)
	assert.True(t, refreshCookie.HttpOnly)
	assert.Equal(t, int(DefaultRememberTTL/time.Second), refreshCookie.MaxAge)
	assert.NotEmpty(t, h.cookie(domain.CSRFCookieName))
}

func TestLoginWithoutRememberUsesSessionCookies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post("/auth/login", map[string]any{"email": "ada@example.com", "password": "pw-1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		assert.Zero(t, c.MaxAge, c.Name)
		assert.True(t, c.Expires.IsZero(), c.Name)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post("/auth/login", map[string]any{"email": "ada@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.post("/auth/login", map[string]any{"email": "nobody@example.com", "password": "pw-1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignupCreatesAccountAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	resp := h.post("/auth/signup", map[string]any{"email": "bob@example.com", "password": "pw-2", "name": "Bob"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Bob", decodeTokens(t, resp).User.DisplayName)

	resp = h.post("/auth/signup", map[string]any{"email": "bob@example.com", "password": "pw-3"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRefreshRequiresAntiForgeryHeader(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(false)

	resp := h.post("/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.post("/auth/refresh", nil, map[string]string{domain.CSRFHeaderName: "forged"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, h.server.RefreshCalls())
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(true)
	first := h.cookie(refreshCookieName)
	csrf := map[string]string{domain.CSRFHeaderName: h.cookie(domain.CSRFCookieName)}

	resp := h.post("/auth/refresh", nil, csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decodeTokens(t, resp).AccessToken)

	second := h.cookie(refreshCookieName)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(1), h.server.RefreshCalls())

	// Replaying the rotated-out token fails.
	u, _ := url.Parse(h.base + "/auth/refresh")
	h.client.Jar.SetCookies(u, []*http.Cookie{{Name: refreshCookieName, Value: first, Path: "/api/auth"}})
	resp = h.post("/auth/refresh", nil, csrf)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRejectRefreshSwitch(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(true)
	h.server.RejectRefresh(true)

	resp := h.post("/auth/refresh", nil, map[string]string{domain.CSRFHeaderName: h.cookie(domain.CSRFCookieName)})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), h.server.RefreshCalls())
}

func TestProtectedResourcesRequireCurrentAccessToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	tokens := h.login(false)

	assert.Equal(t, http.StatusUnauthorized, h.get("/products", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, h.get("/products", "garbage").StatusCode)
	assert.Equal(t, http.StatusOK, h.get("/products", tokens.AccessToken).StatusCode)

	h.server.ExpireAccess()
	assert.Equal(t, http.StatusUnauthorized, h.get("/orders", tokens.AccessToken).StatusCode)

	resp := h.post("/auth/refresh", nil, map[string]string{domain.CSRFHeaderName: h.cookie(domain.CSRFCookieName)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh := decodeTokens(t, resp)
	assert.Equal(t, http.StatusOK, h.get("/orders", fresh.AccessToken).StatusCode)
}

func TestLogoutEndsSessionAndClearsCookies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(true)
	refresh := h.cookie(refreshCookieName)
	csrf := h.cookie(domain.CSRFCookieName)

	resp := h.post("/auth/logout", nil, map[string]string{domain.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, h.cookie(refreshCookieName))

	u, _ := url.Parse(h.base + "/auth/refresh")
	h.client.Jar.SetCookies(u, []*http.Cookie{
		{Name: refreshCookieName, Value: refresh, Path: "/api/auth"},
		{Name: domain.CSRFCookieName, Value: csrf, Path: "/"},
	})
	resp = h.post("/auth/refresh", nil, map[string]string{domain.CSRFHeaderName: csrf})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocialAuthorizeAndExchangeWithPKCE(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	verifier := "verifier-0123456789-0123456789-0123456789"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	q := url.Values{}
	q.Set("provider", "github")
	q.Set("redirect_uri", "http://127.0.0.1:9999/auth/callback")
	q.Set("state", "st-1")
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	resp := h.get("/auth/social/authorize?"+q.Encode(), "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "st-1", location.Query().Get("state"))
	code := location.Query().Get("code")
	require.NotEmpty(t, code)

	bad := h.post("/auth/social/exchange", map[string]any{"provider": "github", "code": code, "codeVerifier": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	// A failed attempt burns the code.
	again := h.post("/auth/social/exchange", map[string]any{"provider": "github", "code": code, "codeVerifier": verifier}, nil)
	assert.Equal(t, http.StatusUnauthorized, again.StatusCode)
}

func TestSocialExchangeSucceeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	verifier := "another-verifier-0123456789-0123456789"
	sum := sha256.Sum256([]byte(verifier))

	q := url.Values{}
	q.Set("provider", "google")
	q.Set("redirect_uri", "http://localhost:4000/auth/callback")
	q.Set("state", "s")
	q.Set("code_challenge", base64.RawURLEncoding.EncodeToString(sum[:]))
	q.Set("code_challenge_method", "S256")
	q.Set("login_hint", "ada@example.com")
	resp := h.get("/auth/social/authorize?"+q.Encode(), "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	resp = h.post("/auth/social/exchange", map[string]any{
		"provider":     "google",
		"code":         location.Query().Get("code"),
		"codeVerifier": verifier,
		"redirectUri":  "http://localhost:4000/auth/callback",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada", decodeTokens(t, resp).User.DisplayName)
}

func TestSocialAuthorizeRejectsNonLoopbackRedirect(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	q := url.Values{}
	q.Set("provider", "github")
	q.Set("redirect_uri", "https://attacker.example.com/cb")
	q.Set("state", "s")
	q.Set("code_challenge", "c")
	q.Set("code_challenge_method", "S256")

	assert.Equal(t, http.StatusBadRequest, h.get("/auth/social/authorize?"+q.Encode(), "").StatusCode)
}
