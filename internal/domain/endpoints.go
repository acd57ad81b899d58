package domain

import "strings"

const (
	PathLogin          = "/auth/login"
	PathSignup         = "/auth/signup"
	PathRefresh        = "/auth/refresh"
	PathLogout         = "/auth/logout"
	PathSocialPrefix   = "/auth/social/"
	PathSocialExchange = "/auth/social/exchange"
	PathSocialAuth     = "/auth/social/authorize"
)

var authEndpoints = []string{PathLogin, PathSignup, PathRefresh, PathLogout}

// IsAuthEndpoint reports whether path targets the authority itself. The check
// matches on suffix so a base path like "/api" in front is tolerated.
func IsAuthEndpoint(path string) bool {
	path = strings.TrimRight(path, "/")
	for _, endpoint := range authEndpoints {
		if strings.HasSuffix(path, endpoint) {
			return true
		}
	}
	return strings.Contains(path+"/", PathSocialPrefix)
}

// NeedsAntiForgery reports whether the standing credential is used to change
// state, which requires the anti-forgery header.
func NeedsAntiForgery(path string) bool {
	path = strings.TrimRight(path, "/")
	return strings.HasSuffix(path, PathRefresh) || strings.HasSuffix(path, PathLogout)
}

// Double-submit anti-forgery contract: the authority sets the cookie and
// expects its value echoed in the header.
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"

	RequestIDHeader = "X-Request-ID"
)
