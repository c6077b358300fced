package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/medflow/medstock/internal/auth/repository"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/httputil"
)

type contextKey string

const sessionKey contextKey = "session"

// LoginPage is where anonymous page requests are sent
const LoginPage = "/login.html"

// SessionValidator resolves a cookie value to an authenticated session or nil
type SessionValidator interface {
	Validate(ctx context.Context, token string) *repository.Session
}

// GuardConfig lists what anonymous callers may reach
type GuardConfig struct {
	CookieName     string
	PublicPaths    []string
	PublicPrefixes []string
	AssetExts      []string
}

// DefaultPublicPaths are reachable without a session
var DefaultPublicPaths = []string{"/login", LoginPage, "/logout", "/health"}

// DefaultAssetExts are static file types served without a session
var DefaultAssetExts = []string{".css", ".js", ".png", ".jpg", ".svg", ".ico", ".woff2"}

// Guard rejects requests without an authenticated session.
// API callers get a 401 JSON body; page requests are redirected to the login page.
func Guard(sessions SessionValidator, cfg GuardConfig) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	exts := make(map[string]struct{}, len(cfg.AssetExts))
	for _, e := range cfg.AssetExts {
		exts[strings.ToLower(e)] = struct{}{}
	}

	allowed := func(p string) bool {
		if _, ok := public[p]; ok {
			return true
		}
		for _, prefix := range cfg.PublicPrefixes {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		_, ok := exts[strings.ToLower(path.Ext(p))]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var token string
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				token = c.Value
			}

			s := sessions.Validate(r.Context(), token)
			if s == nil {
				if httputil.IsAPIRequest(r) {
					httputil.Error(w, apperrors.Unauthorized("authentication required"))
					return
				}
				http.Redirect(w, r, LoginPage, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// WithSession stores the authenticated session in the context
func WithSession(ctx context.Context, s *repository.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the authenticated session, if any
func SessionFromContext(ctx context.Context) (*repository.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*repository.Session)
	return s, ok && s != nil
}
