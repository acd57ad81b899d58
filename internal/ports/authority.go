package ports

import (
	"context"
	"time"

	"github.com/bnema/stayctl/internal/domain"
)

// AuthorityTokens is what login, refresh and social exchange return. ExpiresAt
// and ExpiresIn are zero when the authority did not send them.
type AuthorityTokens struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   time.Duration
	Identity    *domain.Identity
}

type SocialExchange struct {
	Provider     string
	Code         string
	CodeVerifier string
	RedirectURI  string
	Remember     bool
}

type Authority interface {
	Login(ctx context.Context, creds domain.Credentials, remember bool) (AuthorityTokens, error)
	Signup(ctx context.Context, req domain.SignupRequest) (AuthorityTokens, error)
	Refresh(ctx context.Context) (AuthorityTokens, error)
	Logout(ctx context.Context) error
	ExchangeSocialCode(ctx context.Context, req SocialExchange) (AuthorityTokens, error)
}

// CredentialJar holds the standing session credential (cookies) between runs.
type CredentialJar interface {
	Load(ctx context.Context) error
	Clear(ctx context.Context) error
}

type TokenCodec interface {
	DecodeExpiry(token string) time.Time
	DecodeIdentity(token string) (domain.Identity, bool)
}
