// Package api is the JSON client for the platform's protected resources.
// Authentication is handled by the transport underneath it.
package api

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

	"github.com/bnema/stayctl/internal/domain"
)

const maxAPIResponseBytes = 4 << 20

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

func (c Client) PostJSON(ctx context.Context, path string, in any, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, in, out)
}

// DoJSON sends in as the JSON body (when non-nil) and decodes the response
// into out (when non-nil).
func (c Client) DoJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Do performs the call and returns the raw response body of a 2xx answer.
func (c Client) Do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	endpoint, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(path, resp.StatusCode, data)
	}
	return data, nil
}

func statusError(path string, statusCode int, data []byte) error {
	var payload errorResponse
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
	}

	statusErr := domain.NewStatusError(path, statusCode, payload.Error, payload.Message)
	if domain.IsAuthorizationStatus(statusCode) {
		return statusErr.WithCause(domain.ErrSessionExpired)
	}
	return statusErr
}

func (c Client) resolve(path string) (string, error) {
	if c.BaseURL == "" {
		return "", errors.New("api base url is required")
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	if ref.IsAbs() {
		return "", fmt.Errorf("api path %q must be relative to the base url", path)
	}

	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	base.RawPath = ""
	base.RawQuery = ref.RawQuery
	return base.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
