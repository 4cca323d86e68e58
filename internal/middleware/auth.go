package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"folio/internal/auth"
	"folio/internal/httputil"
)

// AuthOptions configures AuthMiddleware
type AuthOptions struct {
	// Verifier may be nil when only the dev user is accepted
	Verifier auth.JWTVerifier
	// DevUserID is used for requests without a bearer token. Empty disables the bypass.
	DevUserID string
	// PublicPaths skip authentication entirely
	PublicPaths []string
	Logger      *slog.Logger
}

// AuthMiddleware validates the bearer token and stores the subject as the user ID
func AuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || slices.Contains(opts.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, found := bearerToken(r)
			if !found {
				if opts.DevUserID != "" {
					next.ServeHTTP(w, httputil.WithUserID(r, opts.DevUserID))
					return
				}
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if opts.Verifier == nil {
				httputil.RespondError(w, http.StatusUnauthorized, "token verification is not configured")
				return
			}

			claims, err := opts.Verifier.VerifyToken(token)
			if err != nil {
				opts.Logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
