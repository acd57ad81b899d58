package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

type AuthServiceConfig struct {
	Authority ports.Authority
	Tokens    *TokenStore
	Scheduler *RefreshScheduler
	Codec     ports.TokenCodec
	// Jar is optional; when set it is loaded on Initialize and wiped on logout.
	Jar     ports.CredentialJar
	Clock   ports.Clock
	Logger  *slog.Logger
	Metrics ports.AuthMetrics
}

// AuthService is the single owner of the process-wide session. Refreshes are
// coalesced: at most one call to the authority is outstanding and every
// concurrent caller receives its outcome.
type AuthService struct {
	authority ports.Authority
	tokens    *TokenStore
	scheduler *RefreshScheduler
	codec     ports.TokenCodec
	jar       ports.CredentialJar
	clock     ports.Clock
	logger    *slog.Logger
	metrics   ports.AuthMetrics

	flights singleflight.Group

	lifecycle context.Context
	stop      context.CancelFunc

	mu       sync.Mutex
	identity *domain.Identity
	onLogout []func(reason error)
	// epoch advances on every logout; refreshes started in an older epoch
	// must not restore the session.
	epoch uint64
}

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewRefreshScheduler(cfg.Clock, DefaultRefreshBuffer, cfg.Logger)
	}

	lifecycle, stop := context.WithCancel(context.Background())
	s := &AuthService{
		authority: cfg.Authority,
		tokens:    cfg.Tokens,
		scheduler: cfg.Scheduler,
		codec:     cfg.Codec,
		jar:       cfg.Jar,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		lifecycle: lifecycle,
		stop:      stop,
	}
	s.scheduler.SetOnDue(s.refreshFromTimer)

	return s
}

// OnLogout registers a hook that runs after local session state is gone.
// reason is nil for a user-requested logout.
func (s *AuthService) OnLogout(hook func(reason error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, hook)
}

func (s *AuthService) Login(ctx context.Context, creds domain.Credentials, remember bool) (domain.Session, error) {
	tokens, err := s.authority.Login(ctx, creds, remember)
	if err != nil {
		s.metrics.RecordLogin(false)
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusBadRequest) {
			return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
		}
		return domain.Session{}, err
	}

	s.metrics.RecordLogin(true)
	return s.establish(ctx, tokens, remember), nil
}

func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (domain.Session, error) {
	tokens, err := s.authority.Signup(ctx, req)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign up: %w", err)
	}

	return s.establish(ctx, tokens, req.Remember), nil
}

func (s *AuthService) CompleteSocialLogin(ctx context.Context, exchange ports.SocialExchange) (domain.Session, error) {
	tokens, err := s.authority.ExchangeSocialCode(ctx, exchange)
	if err != nil {
		s.metrics.RecordLogin(false)
		return domain.Session{}, fmt.Errorf("exchange social login code: %w", err)
	}

	s.metrics.RecordLogin(true)
	return s.establish(ctx, tokens, exchange.Remember), nil
}

// Refresh obtains a new access token, keeping the current remember preference.
// A 401/403 from the authority means the standing credential is gone: the
// session is logged out and the returned error wraps domain.ErrRefreshRejected.
func (s *AuthService) Refresh(ctx context.Context) (domain.Session, error) {
	return s.refresh(ctx, ports.RefreshTriggerManual)
}

// RefreshForRetry is Refresh as seen by the request interceptor.
func (s *AuthService) RefreshForRetry(ctx context.Context) (domain.Session, error) {
	return s.refresh(ctx, ports.RefreshTriggerInterceptor)
}

// Logout never fails: the remote call is best-effort and local cleanup always
// runs.
func (s *AuthService) Logout(ctx context.Context) {
	s.logout(ctx, nil)
}

// Initialize restores the session at process start and reports whether the
// user is authenticated. Every failure resolves to false.
func (s *AuthService) Initialize(ctx context.Context) bool {
	if s.jar != nil {
		if err := s.jar.Load(ctx); err != nil {
			s.logger.Warn("load standing credentials", slog.String("error", err.Error()))
		}
	}

	if session, ok := s.Current(ctx); ok && session.Valid(s.clock.Now()) {
		s.scheduler.Arm(session.ExpiresAt)
		return true
	}

	if !s.tokens.Remembered(ctx) {
		return false
	}

	if _, err := s.refresh(ctx, ports.RefreshTriggerStartup); err != nil {
		s.logger.Info("session restore failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// Current reads the stored session, decoding the expiry from the token when
// none was stored.
func (s *AuthService) Current(ctx context.Context) (domain.Session, bool) {
	session, ok := s.tokens.Read(ctx)
	if !ok {
		return domain.Session{}, false
	}
	if session.ExpiresAt.IsZero() && s.codec != nil {
		session.ExpiresAt = s.codec.DecodeExpiry(session.AccessToken)
	}
	return session, true
}

func (s *AuthService) AccessToken(ctx context.Context) (string, bool) {
	session, ok := s.tokens.Read(ctx)
	if !ok {
		return "", false
	}
	return session.AccessToken, true
}

func (s *AuthService) Identity(ctx context.Context) (domain.Identity, bool) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity != nil {
		return *identity, true
	}

	session, ok := s.tokens.Read(ctx)
	if !ok || s.codec == nil {
		return domain.Identity{}, false
	}
	return s.codec.DecodeIdentity(session.AccessToken)
}

func (s *AuthService) NextRefresh() (time.Time, bool) {
	return s.scheduler.NextFire()
}

// Close stops the silent refresh. Stored state is left untouched.
func (s *AuthService) Close() {
	s.scheduler.Cancel()
	s.stop()
}

func (s *AuthService) refresh(ctx context.Context, trigger ports.RefreshTrigger) (domain.Session, error) {
	leader := false
	results := s.flights.DoChan(refreshFlightKey, func() (any, error) {
		leader = true
		return s.refreshOnce(context.WithoutCancel(ctx), trigger)
	})

	select {
	case result := <-results:
		if !leader {
			s.metrics.RecordRefreshJoined()
		}
		if result.Err != nil {
			return domain.Session{}, result.Err
		}
		return result.Val.(domain.Session), nil
	case <-ctx.Done():
		return domain.Session{}, ctx.Err()
	}
}

func (s *AuthService) refreshOnce(ctx context.Context, trigger ports.RefreshTrigger) (domain.Session, error) {
	remember := s.tokens.Remembered(ctx)
	epoch := s.currentEpoch()

	tokens, err := s.authority.Refresh(ctx)
	if err != nil {
		s.metrics.RecordRefresh(trigger, false)
		if domain.IsAuthorizationFailure(err) {
			reason := fmt.Errorf("%w: %w", domain.ErrRefreshRejected, err)
			s.logout(ctx, reason)
			return domain.Session{}, reason
		}
		return domain.Session{}, fmt.Errorf("refresh session: %w", err)
	}

	s.metrics.RecordRefresh(trigger, true)
	session, ok := s.establishInEpoch(ctx, tokens, remember, epoch)
	if !ok {
		s.logger.Debug("discarding refresh that finished after logout", slog.String("trigger", string(trigger)))
		return domain.Session{}, fmt.Errorf("%w: logged out during refresh", domain.ErrNotAuthenticated)
	}
	s.logger.Debug("session refreshed",
		slog.String("trigger", string(trigger)),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

func (s *AuthService) refreshFromTimer() {
	ctx := s.lifecycle
	if ctx.Err() != nil {
		return
	}

	_, err := s.refresh(ctx, ports.RefreshTriggerTimer)
	if err == nil || errors.Is(err, domain.ErrRefreshRejected) || errors.Is(err, domain.ErrNotAuthenticated) {
		return
	}

	if session, ok := s.Current(ctx); ok && session.Valid(s.clock.Now()) {
		s.logger.Warn("silent refresh failed, retrying while token is valid",
			slog.String("error", err.Error()),
			slog.Time("expires_at", session.ExpiresAt),
		)
		s.scheduler.Arm(session.ExpiresAt)
		return
	}

	s.logger.Warn("silent refresh failed after expiry", slog.String("error", err.Error()))
	s.logout(ctx, fmt.Errorf("%w: %w", domain.ErrSessionExpired, err))
}

func (s *AuthService) establish(ctx context.Context, tokens ports.AuthorityTokens, remember bool) domain.Session {
	session, _ := s.establishInEpoch(ctx, tokens, remember, s.currentEpoch())
	return session
}

// establishInEpoch stores tokens only while no logout has happened since
// epoch was read. The lock is held across persisting so a concurrent logout
// either runs entirely before or entirely after.
func (s *AuthService) establishInEpoch(ctx context.Context, tokens ports.AuthorityTokens, remember bool, epoch uint64) (domain.Session, bool) {
	session := domain.Session{
		AccessToken: tokens.AccessToken,
		ExpiresAt:   s.resolveExpiry(tokens),
		Remember:    remember,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return domain.Session{}, false
	}

	s.tokens.Persist(ctx, session, remember)
	s.scheduler.Arm(session.ExpiresAt)
	s.identity = tokens.Identity

	return session, true
}

func (s *AuthService) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *AuthService) resolveExpiry(tokens ports.AuthorityTokens) time.Time {
	switch {
	case !tokens.ExpiresAt.IsZero():
		return tokens.ExpiresAt
	case tokens.ExpiresIn > 0:
		return s.clock.Now().Add(tokens.ExpiresIn)
	case s.codec != nil:
		return s.codec.DecodeExpiry(tokens.AccessToken)
	default:
		return s.clock.Now().Add(DefaultFallbackTTL)
	}
}

func (s *AuthService) logout(ctx context.Context, reason error) {
	remoteOK := true
	if err := s.authority.Logout(ctx); err != nil {
		remoteOK = false
		s.logger.Warn("remote logout failed", slog.String("error", err.Error()))
	}
	s.metrics.RecordLogout(remoteOK)

	s.mu.Lock()
	s.epoch++
	s.scheduler.Cancel()
	s.tokens.Clear(ctx)
	s.identity = nil
	hooks := append([]func(error){}, s.onLogout...)
	s.mu.Unlock()

	if s.jar != nil {
		if err := s.jar.Clear(ctx); err != nil {
			s.logger.Warn("clear standing credentials", slog.String("error", err.Error()))
		}
	}

	for _, hook := range hooks {
		hook(reason)
	}
}
