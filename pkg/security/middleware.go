package security

import (
	"context"
	"errors"
	"net/http"

	"github.com/bitechdev/DataBrowser/pkg/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserKey holds the authenticated *User
	UserKey contextKey = "user"
)

// ErrNoCredentials means the request carried no credentials at all.
var ErrNoCredentials = errors.New("no credentials")

// AuthenticateFunc resolves the user making the request.
// If error is not nil, the request is treated as anonymous.
type AuthenticateFunc func(r *http.Request) (*User, error)

// AuthMiddleware resolves the user with authenticate and stores it in the
// request context. Anonymous requests pass through; RequireStaff rejects them.
func AuthMiddleware(authenticate AuthenticateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authenticate == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticate(r)
			if err != nil {
				if !errors.Is(err, ErrNoCredentials) {
					logger.Debug("Authentication failed: %v", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireStaff allows only active staff users through: 401 without a user,
// 403 for everyone else.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if !user.ActiveStaff() {
			http.Error(w, "Staff access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser extracts the user from context
func GetUser(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(UserKey).(*User)
	return user, ok && user != nil
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) (int64, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return 0, false
	}
	return user.ID, true
}
