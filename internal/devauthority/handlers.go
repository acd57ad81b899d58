package devauthority

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/google/uuid"
)

const maxRequestBytes = 1 << 20

type credentialsBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	RememberMe bool   `json:"rememberMe"`
}

type socialExchangeBody struct {
	Provider     string `json:"provider"`
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri"`
	RememberMe   bool   `json:"rememberMe"`
}

type tokenBody struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   int64           `json:"expiresAt"`
	ExpiresIn   int64           `json:"expiresIn"`
	User        domain.Identity `json:"user"`
}

type claimsKey struct{}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := s.AddUser(body.Email, body.Password, body.Name); err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			writeError(w, http.StatusConflict, "user_exists", "an account with this email already exists")
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", "could not create account")
		}
		return
	}

	u, _ := s.authenticate(body.Email, body.Password)
	s.startSession(w, u, body.RememberMe)
	s.writeTokens(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	u, ok := s.authenticate(body.Email, body.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "wrong email or password")
		return
	}

	s.startSession(w, u, body.RememberMe)
	s.writeTokens(w, http.StatusOK, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if s.rejectRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "refresh_rejected", "refresh token revoked")
		return
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing_refresh_token", "no refresh token presented")
		return
	}

	u, next, remember, err := s.rotate(cookie.Value)
	if err != nil {
		s.clearCredentialCookies(w)
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", err.Error())
		return
	}

	csrf, _ := r.Cookie(domain.CSRFCookieName)
	s.setCredentialCookies(w, next, csrf.Value, remember)
	s.writeTokens(w, http.StatusOK, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		s.endSession(cookie.Value)
	}
	s.clearCredentialCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSocialAuthorize stands in for the provider consent page: it approves
// immediately and redirects back with a one-time code.
func (s *Server) handleSocialAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	provider := q.Get("provider")
	redirectURI := q.Get("redirect_uri")
	challenge := q.Get("code_challenge")

	target, err := url.Parse(redirectURI)
	if err != nil || provider == "" || challenge == "" || q.Get("state") == "" ||
		q.Get("code_challenge_method") != "S256" || !isLoopback(target) {
		writeError(w, http.StatusBadRequest, "invalid_request", "provider, loopback redirect_uri, state and S256 challenge are required")
		return
	}

	email := q.Get("login_hint")
	if email == "" {
		email = "guest@" + provider + ".example"
	}
	code := s.createGrant(socialGrant{
		provider:    provider,
		challenge:   challenge,
		redirectURI: redirectURI,
		email:       email,
		expires:     s.now().Add(socialCodeTTL),
	})

	params := target.Query()
	params.Set("code", code)
	params.Set("state", q.Get("state"))
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) handleSocialExchange(w http.ResponseWriter, r *http.Request) {
	var body socialExchangeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	grant, err := s.redeemGrant(body.Code, body.CodeVerifier, body.Provider)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_grant", err.Error())
		return
	}
	if body.RedirectURI != "" && body.RedirectURI != grant.redirectURI {
		writeError(w, http.StatusUnauthorized, "invalid_grant", "redirect uri mismatch")
		return
	}

	u := s.socialUser(grant.email, grant.provider)
	s.startSession(w, u, body.RememberMe)
	s.writeTokens(w, http.StatusOK, u)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": "cabins", "name": "Cabins"},
		{"id": "lofts", "name": "City lofts"},
		{"id": "villas", "name": "Villas"},
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products := []map[string]any{
		{"id": "p-100", "category": "cabins", "title": "Lakeside cabin", "nightly": 120},
		{"id": "p-200", "category": "lofts", "title": "Canal loft", "nightly": 180},
		{"id": "p-300", "category": "villas", "title": "Hillside villa", "nightly": 420},
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := products[:0]
		for _, p := range products {
			if p["category"] == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey{}).(*accessClaims)
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": "o-1", "userId": claims.Subject, "productId": "p-200", "nights": 2},
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey{}).(*accessClaims)

	var order map[string]any
	if err := decodeBody(r, &order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	order["id"] = "o-" + uuid.NewString()[:8]
	order["userId"] = claims.Subject
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
			return
		}

		claims, err := s.verifyAccess(token)
		if err != nil {
			s.logger.Debug("access token rejected", slog.String("error", err.Error()))
			writeError(w, http.StatusUnauthorized, "invalid_token", "access token is not valid")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// requireAntiForgery is the double-submit check: the csrf cookie must be
// echoed in the header.
func requireAntiForgery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(domain.CSRFCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, "csrf_failed", "missing anti-forgery cookie")
			return
		}
		if header := r.Header.Get(domain.CSRFHeaderName); header == "" || header != cookie.Value {
			writeError(w, http.StatusForbidden, "csrf_failed", "anti-forgery token mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeTokens(w http.ResponseWriter, status int, u *user) {
	issued, err := s.issueAccess(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "could not issue token")
		return
	}

	writeJSON(w, status, tokenBody{
		AccessToken: issued.value,
		ExpiresAt:   issued.expiresAt.UnixMilli(),
		ExpiresIn:   int64(issued.expiresAt.Sub(s.now()).Seconds()),
		User: domain.Identity{
			UserID:      u.id,
			Email:       u.email,
			DisplayName: u.name,
			Roles:       u.roles,
		},
	})
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(out); err != nil {
		return errors.New("request body must be a JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}
