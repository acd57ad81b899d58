// Package transport attaches session credentials to outgoing API requests and
// recovers once from an authorization failure by refreshing the session.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/google/uuid"
)

const maxDrainBytes = 64 << 10

// Session is the part of the auth service the interceptor depends on.
// RefreshForRetry must coalesce concurrent callers into one refresh.
type Session interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshForRetry(ctx context.Context) (domain.Session, error)
}

type CookieSource interface {
	Value(u *url.URL, name string) (string, bool)
}

type Interceptor struct {
	Base    http.RoundTripper
	Session Session
	// Cookies is optional and only consulted for the anti-forgery header.
	Cookies CookieSource
	Metrics ports.AuthMetrics
	Logger  *slog.Logger
}

var _ http.RoundTripper = (*Interceptor)(nil)

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(domain.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	protected := !domain.IsAuthEndpoint(req.URL.Path)
	token := ""
	if protected {
		token, _ = i.Session.AccessToken(ctx)
	}

	resp, err := i.send(req, getBody, requestID, token)
	if err != nil {
		return nil, err
	}
	if !protected || !domain.IsAuthorizationStatus(resp.StatusCode) {
		return resp, nil
	}

	status := resp.StatusCode
	drainAndClose(resp.Body)

	fresh, err := i.tokenForRetry(ctx, token)
	if err != nil {
		return nil, err
	}

	i.metrics().RecordRetry(status)
	i.logger().Debug("retrying request with refreshed session",
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", status),
	)

	return i.send(req, getBody, requestID, fresh)
}

// tokenForRetry skips the refresh when another request already replaced the
// token that was rejected, or when the session was destroyed after the request
// went out.
func (i *Interceptor) tokenForRetry(ctx context.Context, sent string) (string, error) {
	current, ok := i.Session.AccessToken(ctx)
	switch {
	case ok && current != "" && current != sent:
		return current, nil
	case sent != "" && (!ok || current == ""):
		return "", fmt.Errorf("%w: session ended while the request was in flight", domain.ErrSessionExpired)
	}

	session, err := i.Session.RefreshForRetry(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}
	return session.AccessToken, nil
}

func (i *Interceptor) send(req *http.Request, getBody func() (io.ReadCloser, error), requestID, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}

	out.Header.Set(domain.RequestIDHeader, requestID)
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	if domain.NeedsAntiForgery(out.URL.Path) && i.Cookies != nil && out.Header.Get(domain.CSRFHeaderName) == "" {
		if csrf, ok := i.Cookies.Value(out.URL, domain.CSRFCookieName); ok {
			out.Header.Set(domain.CSRFHeaderName, csrf)
		}
	}

	return i.base().RoundTrip(out)
}

// replayableBody returns a body factory so the request can be sent twice. The
// caller's body is always closed.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	_ = body.Close()
}

func (i *Interceptor) base() http.RoundTripper {
	if i.Base != nil {
		return i.Base
	}
	return http.DefaultTransport
}

func (i *Interceptor) metrics() ports.AuthMetrics {
	if i.Metrics != nil {
		return i.Metrics
	}
	return ports.NopMetrics{}
}

func (i *Interceptor) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}
