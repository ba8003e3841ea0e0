package security

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// ValidateToken parses and validates a JWT token string with the given secret.
func ValidateToken(tokenString string, secret []byte, issuer string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("no secret configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// NewToken creates a new JWT token for the given user.
func NewToken(secret []byte, issuer string, user *User, expiry time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("no secret configured")
	}
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Username: user.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// TokenCookie is the cookie checked when no Authorization header is sent.
const TokenCookie = "databrowser_token"

// bearerToken extracts the token from the Authorization header or the
// token cookie.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// JWTAuthenticator resolves bearer tokens to users.
func JWTAuthenticator(secret []byte, issuer string, users *UserStore) AuthenticateFunc {
	return func(r *http.Request) (*User, error) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			return nil, ErrNoCredentials
		}
		claims, err := ValidateToken(tokenString, secret, issuer)
		if err != nil {
			return nil, fmt.Errorf("validate token: %w", err)
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad token subject %q", claims.Subject)
		}
		return users.Get(r.Context(), id)
	}
}
