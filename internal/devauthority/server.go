// Package devauthority is a self-contained authority for local development
// and integration tests. It implements the same contract as the platform's
// authentication endpoints: short-lived bearer tokens, a rotating refresh
// cookie and double-submit anti-forgery protection.
package devauthority

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBasePath    = "/api"
	DefaultAccessTTL   = 15 * time.Minute
	DefaultRememberTTL = 30 * 24 * time.Hour

	refreshCookieName = "refresh_token"
	socialCodeTTL     = 2 * time.Minute
)

var (
	ErrUserExists = errors.New("user already exists")
	errBadRequest = errors.New("bad request")
)

type Config struct {
	BasePath    string
	AccessTTL   time.Duration
	RememberTTL time.Duration
	// Secret signs access tokens. A random secret is generated when empty.
	Secret     []byte
	BcryptCost int
	Logger     *slog.Logger
	Now        func() time.Time
}

type user struct {
	id           string
	email        string
	name         string
	roles        []string
	passwordHash []byte
}

type refreshSession struct {
	userID   string
	remember bool
	expires  time.Time
}

type socialGrant struct {
	provider    string
	challenge   string
	redirectURI string
	email       string
	expires     time.Time
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	users    map[string]*user // by email
	sessions map[string]refreshSession
	grants   map[string]socialGrant

	generation    atomic.Int64
	refreshCalls  atomic.Int32
	rejectRefresh atomic.Bool
}

func New(cfg Config) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.BasePath == "/" {
		cfg.BasePath = ""
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = DefaultRememberTTL
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte(uuid.NewString() + uuid.NewString())
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		now:      cfg.Now,
		users:    map[string]*user{},
		sessions: map[string]refreshSession{},
		grants:   map[string]socialGrant{},
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	mount := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(requireAntiForgery)
				r.Post("/refresh", s.handleRefresh)
				r.Post("/logout", s.handleLogout)
			})

			r.Get("/social/authorize", s.handleSocialAuthorize)
			r.Post("/social/exchange", s.handleSocialExchange)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Get("/categories", s.handleCategories)
			r.Get("/products", s.handleProducts)
			r.Get("/orders", s.handleOrders)
			r.Post("/orders", s.handleCreateOrder)
		})
	}

	if s.cfg.BasePath == "" {
		mount(r)
	} else {
		r.Route(s.cfg.BasePath, mount)
	}
	return r
}

// AddUser registers an account. It is how seed users are created.
func (s *Server) AddUser(email, password, name string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", errBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return ErrUserExists
	}
	s.users[email] = &user{
		id:           uuid.NewString(),
		email:        email,
		name:         name,
		roles:        []string{"customer"},
		passwordHash: hash,
	}
	return nil
}

// RefreshCalls counts refresh requests, accepted or not.
func (s *Server) RefreshCalls() int32 {
	return s.refreshCalls.Load()
}

// RejectRefresh makes every refresh answer 401 while set.
func (s *Server) RejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

// ExpireAccess invalidates every access token issued so far. Protected
// resources answer 401 until the client refreshes.
func (s *Server) ExpireAccess() {
	s.generation.Add(1)
}

func (s *Server) authenticate(email, password string) (*user, bool) {
	s.mu.Lock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.Unlock()
	if !ok || u.passwordHash == nil {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, false
	}
	return u, true
}

func (s *Server) userByID(id string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == id {
			return u, true
		}
	}
	return nil, false
}

func (s *Server) startSession(w http.ResponseWriter, u *user, remember bool) {
	token := uuid.NewString()
	expires := s.now().Add(s.cfg.RememberTTL)
	if !remember {
		// Session cookies still need a server-side bound.
		expires = s.now().Add(24 * time.Hour)
	}

	s.mu.Lock()
	s.sessions[token] = refreshSession{userID: u.id, remember: remember, expires: expires}
	s.mu.Unlock()

	s.setCredentialCookies(w, token, uuid.NewString(), remember)
}

func (s *Server) setCredentialCookies(w http.ResponseWriter, refreshToken, csrfToken string, remember bool) {
	maxAge := 0
	if remember {
		maxAge = int(s.cfg.RememberTTL / time.Second)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     s.cfg.BasePath + "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     domain.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearCredentialCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Path: s.cfg.BasePath + "/auth", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: domain.CSRFCookieName, Path: "/", MaxAge: -1})
}

// rotate swaps a refresh token for a new one. The old token stops working.
func (s *Server) rotate(token string) (*user, string, bool, error) {
	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if !ok || !session.expires.After(s.now()) {
		return nil, "", false, errors.New("refresh token is not valid")
	}
	u, ok := s.userByID(session.userID)
	if !ok {
		return nil, "", false, errors.New("account no longer exists")
	}

	next := uuid.NewString()
	s.mu.Lock()
	s.sessions[next] = refreshSession{userID: u.id, remember: session.remember, expires: session.expires}
	s.mu.Unlock()

	return u, next, session.remember, nil
}

func (s *Server) endSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Server) createGrant(g socialGrant) string {
	code := uuid.NewString()
	s.mu.Lock()
	s.grants[code] = g
	s.mu.Unlock()
	return code
}

func (s *Server) redeemGrant(code, verifier, provider string) (socialGrant, error) {
	s.mu.Lock()
	grant, ok := s.grants[code]
	delete(s.grants, code)
	s.mu.Unlock()

	switch {
	case !ok || !grant.expires.After(s.now()):
		return socialGrant{}, errors.New("authorization code is not valid")
	case grant.provider != provider:
		return socialGrant{}, errors.New("provider mismatch")
	case s256(verifier) != grant.challenge:
		return socialGrant{}, errors.New("code verifier mismatch")
	}
	return grant, nil
}

// socialUser finds or creates the account a provider identity maps to.
func (s *Server) socialUser(email, provider string) *user {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u
	}
	u := &user{id: uuid.NewString(), email: email, name: provider + " user", roles: []string{"customer"}}
	s.users[email] = u
	return u
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("dev authority request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", r.Header.Get(domain.RequestIDHeader)),
			slog.Duration("duration", s.now().Sub(start)),
		)
	})
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
