package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/docshelf/internal/ctxkeys"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/ui"
)

// AuthMiddleware resolves the session token from the auth cookie or a bearer
// header and puts the user into the context. Requests without a valid
// session continue anonymously.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := authService.VerifyJWT(token)
			if err != nil {
				if fromCookie {
					authService.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByID(r.Context(), userID)
			if err != nil {
				if fromCookie {
					authService.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			// The hash never travels further than the services
			user.PasswordHash = ""

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUser(r.Context(), user)))
		})
	}
}

func sessionToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(service.AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token), false
	}
	return "", false
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			ui.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireAccountAccess loads the account named by the {account} path value
// and checks that the signed-in user owns it or is a member. Accounts the
// user cannot see are reported as missing.
func RequireAccountAccess(accountService *service.AccountService, next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())

		account, err := accountService.ByName(r.Context(), r.PathValue("account"))
		if err != nil {
			if errors.Is(err, service.ErrAccountNotFound) {
				ui.Error(w, http.StatusNotFound, "account not found")
				return
			}
			slog.Error("failed to load account", "error", err, "account", r.PathValue("account"))
			ui.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !account.IsAccessibleBy(user.ID) {
			ui.Error(w, http.StatusNotFound, "account not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(ctxkeys.WithAccount(r.Context(), account)))
	})
}
