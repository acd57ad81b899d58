// Package authority talks to the remote authentication authority over HTTP.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/google/uuid"
)

const (
	maxAuthorityResponseBytes = 1 << 20
	defaultRequestTimeout     = 30 * time.Second
)

// CookieSource exposes the cookie values the client echoes back as headers.
type CookieSource interface {
	Value(u *url.URL, name string) (string, bool)
}

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	// Cookies supplies the anti-forgery token for refresh and logout. The
	// HTTPClient's jar is expected to hold the same cookies.
	Cookies CookieSource
}

var _ ports.Authority = Client{}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name,omitempty"`
	RememberMe  bool   `json:"rememberMe"`
}

type socialExchangeRequest struct {
	Provider     string `json:"provider"`
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri"`
	RememberMe   bool   `json:"rememberMe"`
}

type tokenResponse struct {
	AccessToken string           `json:"accessToken"`
	ExpiresAt   int64            `json:"expiresAt"`
	ExpiresIn   int64            `json:"expiresIn"`
	User        *domain.Identity `json:"user"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c Client) Login(ctx context.Context, creds domain.Credentials, remember bool) (ports.AuthorityTokens, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return ports.AuthorityTokens{}, errors.New("email is required")
	}
	if creds.Password == "" {
		return ports.AuthorityTokens{}, errors.New("password is required")
	}

	return c.tokenCall(ctx, domain.PathLogin, loginRequest{
		Email:      creds.Email,
		Password:   creds.Password,
		RememberMe: remember,
	})
}

func (c Client) Signup(ctx context.Context, req domain.SignupRequest) (ports.AuthorityTokens, error) {
	if strings.TrimSpace(req.Email) == "" {
		return ports.AuthorityTokens{}, errors.New("email is required")
	}
	if req.Password == "" {
		return ports.AuthorityTokens{}, errors.New("password is required")
	}

	return c.tokenCall(ctx, domain.PathSignup, signupRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		RememberMe:  req.Remember,
	})
}

// Refresh relies on the standing credential carried by the cookie jar.
func (c Client) Refresh(ctx context.Context) (ports.AuthorityTokens, error) {
	return c.tokenCall(ctx, domain.PathRefresh, nil)
}

func (c Client) Logout(ctx context.Context) error {
	resp, err := c.post(ctx, domain.PathLogout, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if !successStatus(resp.StatusCode) {
		return decodeStatusError(domain.PathLogout, resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAuthorityResponseBytes))
	return nil
}

func (c Client) ExchangeSocialCode(ctx context.Context, req ports.SocialExchange) (ports.AuthorityTokens, error) {
	if req.Provider == "" {
		return ports.AuthorityTokens{}, errors.New("provider is required")
	}
	if req.Code == "" {
		return ports.AuthorityTokens{}, errors.New("authorization code is required")
	}
	if req.CodeVerifier == "" {
		return ports.AuthorityTokens{}, errors.New("code verifier is required")
	}

	return c.tokenCall(ctx, domain.PathSocialExchange, socialExchangeRequest{
		Provider:     req.Provider,
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
		RedirectURI:  req.RedirectURI,
		RememberMe:   req.Remember,
	})
}

func (c Client) tokenCall(ctx context.Context, path string, body any) (ports.AuthorityTokens, error) {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return ports.AuthorityTokens{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if !successStatus(resp.StatusCode) {
		return ports.AuthorityTokens{}, decodeStatusError(path, resp)
	}

	var payload tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAuthorityResponseBytes)).Decode(&payload); err != nil {
		return ports.AuthorityTokens{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	if payload.AccessToken == "" {
		return ports.AuthorityTokens{}, fmt.Errorf("%s response missing access token", path)
	}

	tokens := ports.AuthorityTokens{
		AccessToken: payload.AccessToken,
		Identity:    payload.User,
	}
	if payload.ExpiresAt > 0 {
		tokens.ExpiresAt = time.UnixMilli(payload.ExpiresAt)
	}
	if payload.ExpiresIn > 0 {
		tokens.ExpiresIn = time.Duration(payload.ExpiresIn) * time.Second
	}
	return tokens, nil
}

func (c Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(domain.RequestIDHeader, uuid.NewString())
	if domain.NeedsAntiForgery(path) && c.Cookies != nil {
		if token, ok := c.Cookies.Value(req.URL, domain.CSRFCookieName); ok {
			req.Header.Set(domain.CSRFHeaderName, token)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func successStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func decodeStatusError(path string, resp *http.Response) error {
	var payload errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxAuthorityResponseBytes))
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
	}
	return domain.NewStatusError(path, resp.StatusCode, payload.Error, payload.Message)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("authority base url is required")
	}
	if path == "" {
		return "", errors.New("authority path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse authority base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("authority base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("authority base url host is required")
	}

	// Keep any base path prefix such as /api.
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/" + strings.TrimLeft(path, "/")
	parsed.RawPath = ""
	return parsed.String(), nil
}
