package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
)

const (
	keyAccessToken  = "access_token"
	keyAccessExpiry = "access_token_expiry"
	keyRememberMe   = "remember_me"
)

// TokenStore keeps the session in exactly one of two persistence areas. The
// remember flag always lives in the durable area so a fresh process knows
// which area to read. Storage failures are logged and swallowed.
type TokenStore struct {
	durable   ports.KeyValueStore
	ephemeral ports.KeyValueStore
	logger    *slog.Logger
	metrics   ports.AuthMetrics
}

func NewTokenStore(durable, ephemeral ports.KeyValueStore, logger *slog.Logger, metrics ports.AuthMetrics) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}

	return &TokenStore{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *TokenStore) Persist(ctx context.Context, session domain.Session, remember bool) {
	target := domain.AreaFor(remember)
	stale := target.Other()

	s.deleteKeys(ctx, stale, keyAccessToken, keyAccessExpiry)

	s.put(ctx, target, keyAccessToken, session.AccessToken)
	s.put(ctx, target, keyAccessExpiry, formatExpiry(session.ExpiresAt))

	if remember {
		s.put(ctx, domain.AreaDurable, keyRememberMe, "true")
	} else {
		s.deleteKeys(ctx, domain.AreaDurable, keyRememberMe)
	}
}

// Read returns the session from the area the remember flag points to. The
// expiry is zero when it is missing or unreadable.
func (s *TokenStore) Read(ctx context.Context) (domain.Session, bool) {
	remember := s.Remembered(ctx)
	area := domain.AreaFor(remember)

	token, ok := s.get(ctx, area, keyAccessToken)
	if !ok || token == "" {
		return domain.Session{}, false
	}

	session := domain.Session{AccessToken: token, Remember: remember}
	if raw, ok := s.get(ctx, area, keyAccessExpiry); ok {
		session.ExpiresAt = parseExpiry(raw)
	}

	return session, true
}

func (s *TokenStore) Remembered(ctx context.Context) bool {
	raw, ok := s.get(ctx, domain.AreaDurable, keyRememberMe)
	if !ok {
		return false
	}
	remember, err := strconv.ParseBool(raw)
	return err == nil && remember
}

func (s *TokenStore) Clear(ctx context.Context) {
	s.deleteKeys(ctx, domain.AreaDurable, keyAccessToken, keyAccessExpiry, keyRememberMe)
	s.deleteKeys(ctx, domain.AreaEphemeral, keyAccessToken, keyAccessExpiry)
}

func (s *TokenStore) area(area domain.Area) ports.KeyValueStore {
	if area == domain.AreaDurable {
		return s.durable
	}
	return s.ephemeral
}

func (s *TokenStore) get(ctx context.Context, area domain.Area, key string) (string, bool) {
	value, err := s.area(area).Get(ctx, key)
	if err == nil {
		return value, true
	}
	if !errors.Is(err, domain.ErrKeyNotFound) {
		s.storageFailure(area, "get", key, err)
	}
	return "", false
}

func (s *TokenStore) put(ctx context.Context, area domain.Area, key, value string) {
	if err := s.area(area).Put(ctx, key, value); err != nil {
		s.storageFailure(area, "put", key, err)
	}
}

func (s *TokenStore) deleteKeys(ctx context.Context, area domain.Area, keys ...string) {
	for _, key := range keys {
		if err := s.area(area).Delete(ctx, key); err != nil {
			s.storageFailure(area, "delete", key, err)
		}
	}
}

func (s *TokenStore) storageFailure(area domain.Area, op, key string, err error) {
	s.metrics.RecordStorageFailure(area, op)
	s.logger.Warn("session storage unavailable",
		slog.String("area", string(area)),
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

func formatExpiry(expiresAt time.Time) string {
	if expiresAt.IsZero() {
		return "0"
	}
	return strconv.FormatInt(expiresAt.UnixMilli(), 10)
}

func parseExpiry(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// DefaultFallbackTTL is assumed when a token carries no readable expiry.
const DefaultFallbackTTL = 15 * time.Minute
